package ner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGazetteer_DetectEntities(t *testing.T) {
	g := NewGazetteer()
	require.Positive(t, g.Len())

	tests := []struct {
		text       string
		wantPerson bool
		wantSpan   string
		wantStart  int
	}{
		{"Jane Doe", true, "Jane Doe", 0},
		{"JANE DOE", true, "JANE DOE", 0},
		{"Dr. Priya Sharma", true, "Priya Sharma", 4},
		{"Mr John Ronald Reuel Tolkien", true, "John Ronald Reuel Tolkien", 3},
		{"Jane Doe,", true, "Jane Doe", 0},
		{"jane doe", false, "", 0},
		{"Jane", false, "", 0},
		{"Acme Corp", false, "", 0},
		{"Jane Doe 42", false, "", 0},
		{"John Paul George Ringo Starr", false, "", 0},
		{"", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ents, err := g.DetectEntities(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPerson, HasPerson(ents))
			if tt.wantPerson {
				require.Len(t, ents, 1)
				assert.Equal(t, tt.wantSpan, ents[0].Text)
				assert.Equal(t, tt.wantStart, ents[0].Start)
				assert.Equal(t, tt.wantSpan, tt.text[ents[0].Start:ents[0].End])
			}
		})
	}
}

func TestGazetteer_LoadNamesFile(t *testing.T) {
	g := NewGazetteer()
	assert.False(t, g.Knows("Zephyrine"))

	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("# extra\nZephyrine\n\n  Quillon  \n"), 0o600))
	require.NoError(t, g.LoadNamesFile(path))

	assert.True(t, g.Knows("zephyrine"))
	assert.True(t, g.Knows("QUILLON"))

	require.Error(t, g.LoadNamesFile(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestGazetteer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGazetteer().DetectEntities(ctx, "Jane Doe")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPRecognizer_DetectEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ents", r.URL.Path)

		var req entsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "en_core_web_sm", req.Model)

		w.Header().Set("Content-Type", "application/json")
		if req.Text == "Jane Doe" {
			_, _ = w.Write([]byte(`{"ents":[{"start":0,"end":8,"label":"PERSON"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"ents":[]}`))
	}))
	defer srv.Close()

	h, err := NewHTTPRecognizer(srv.URL+"/", "", time.Second)
	require.NoError(t, err)

	ents, err := h.DetectEntities(context.Background(), "Jane Doe")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, card.Entity{Text: "Jane Doe", Label: card.LabelPerson, Start: 0, End: 8}, ents[0])

	ents, err = h.DetectEntities(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestHTTPRecognizer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h, err := NewHTTPRecognizer(srv.URL, "custom", 0)
	require.NoError(t, err)

	_, err = h.DetectEntities(context.Background(), "Jane Doe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestNewHTTPRecognizer_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "://bad"} {
		_, err := NewHTTPRecognizer(u, "", 0)
		assert.Error(t, err, "url %q", u)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	failing := card.EntityRecognizerFunc(func(context.Context, string) ([]card.Entity, error) {
		return nil, errors.New("down")
	})
	org := card.EntityRecognizerFunc(func(_ context.Context, text string) ([]card.Entity, error) {
		return []card.Entity{{Text: text, Label: "ORG"}}, nil
	})

	ents, err := Chain{failing, NewGazetteer()}.DetectEntities(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.True(t, HasPerson(ents))

	ents, err = Chain{org, NewGazetteer()}.DetectEntities(ctx, "Acme Corp")
	require.NoError(t, err)
	assert.False(t, HasPerson(ents))
	assert.Len(t, ents, 1)

	_, err = Chain{failing, failing}.DetectEntities(ctx, "Jane Doe")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	rec, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Gazetteer{}, rec)

	rec, err = New(Config{Kind: "none"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = New(Config{Kind: "HTTP", URL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPRecognizer{}, rec)

	rec, err = New(Config{Kind: "chain", URL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.IsType(t, Chain{}, rec)

	_, err = New(Config{Kind: "http"})
	require.Error(t, err)

	_, err = New(Config{Kind: "spacy"})
	require.Error(t, err)

	_, err = New(Config{NamesFile: filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
}

func TestGazetteer_WithExtractor(t *testing.T) {
	frags := []card.Fragment{
		{Box: card.BoundingBox{{X: 0, Y: 1}}, Text: "ACME CORP"},
		{Box: card.BoundingBox{{X: 0, Y: 2}}, Text: "Priya Sharma"},
		{Box: card.BoundingBox{{X: 0, Y: 3}}, Text: "priya@acme.in"},
	}
	rec, err := card.NewExtractor(card.WithRecognizer(NewGazetteer())).Extract(context.Background(), frags)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", rec.Name)
}
