package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCommand_Fragments(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "jane.json"), janeFragments)

	out, _, err := runCLI(t, "extract", "--fragments", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Name:    Jane Doe\n")
	assert.Contains(t, out, "Email:   jane.doe@acme.in\n")
	assert.Contains(t, out, "Phone:   555-123-4567\n")
	assert.Contains(t, out, "Address: Tel: 555-123-4567, 12/4 MG Road\n")
}

func TestExtractCommand_FragmentsJSON(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "ravi.json"), `[
		[[[0, 10], [90, 10], [90, 20], [0, 20]], "Ravi Kumar", 96]
	]`)

	out, _, err := runCLI(t, "extract", "--fragments", "--format", "json", path)
	require.NoError(t, err)

	var res struct {
		Record map[string]any `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Ravi Kumar", res.Record["name"])
	assert.Nil(t, res.Record["email"])
	assert.Nil(t, res.Record["phone"])
	assert.Equal(t, "Not Provided", res.Record["address"])
}

func TestExtractCommand_FragmentEngineSaves(t *testing.T) {
	dir := t.TempDir()
	cardPath := writeFile(t, filepath.Join(dir, "cards", "jane.json"), janeFragments)
	dsn := filepath.Join(dir, "cards.db")
	cfgPath := writeFile(t, filepath.Join(dir, "cardscan.yaml"), "store:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	out, _, err := runCLI(t, "--config", cfgPath, "extract", "--engine", "fragments", "--save", cardPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Name:    Jane Doe\n")
	assert.Contains(t, out, "Stored:  #1\n")

	st, err := store.Open(store.Config{DSN: dsn})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	cards, err := st.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Jane Doe", cards[0].Name)
	assert.Equal(t, "jane.json", cards[0].ImageName)
}

func TestExtractCommand_Errors(t *testing.T) {
	_, _, err := runCLI(t, "extract")
	require.Error(t, err)

	_, _, err = runCLI(t, "extract", "--fragments", "--format", "xml", "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	_, _, err = runCLI(t, "extract", "--engine", "paddle", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ocr engine")

	_, _, err = runCLI(t, "extract", "--engine", "fragments", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")

	bad := writeFile(t, filepath.Join(t.TempDir(), "bad.json"), `{"text": "x"}`)
	_, _, err = runCLI(t, "extract", "--fragments", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")

	notes := writeFile(t, filepath.Join(t.TempDir(), "notes.txt"), "x")
	_, _, err = runCLI(t, "extract", "--engine", "fragments", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
