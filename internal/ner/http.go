package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
)

const (
	defaultModel   = "en_core_web_sm"
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 512
)

// HTTPRecognizer queries a spaCy-style REST service:
// POST {baseURL}/ents with {"text", "model"} returns {"ents": [...]}.
type HTTPRecognizer struct {
	endpoint string
	model    string
	client   *http.Client
}

type entsRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type entsResponse struct {
	Ents []struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		Label string `json:"label"`
		Text  string `json:"text"`
	} `json:"ents"`
}

// NewHTTPRecognizer creates a client for the service at baseURL.
func NewHTTPRecognizer(baseURL, model string, timeout time.Duration) (*HTTPRecognizer, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("ner service URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ner service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid ner service URL scheme %q", u.Scheme)
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRecognizer{
		endpoint: strings.TrimRight(baseURL, "/") + "/ents",
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// DetectEntities implements card.EntityRecognizer.
func (h *HTTPRecognizer) DetectEntities(ctx context.Context, text string) ([]card.Entity, error) {
	body, err := json.Marshal(entsRequest{Text: text, Model: h.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("ner request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out entsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ents := make([]card.Entity, 0, len(out.Ents))
	for _, e := range out.Ents {
		span := e.Text
		if span == "" && e.Start >= 0 && e.End <= len(text) && e.Start < e.End {
			span = text[e.Start:e.End]
		}
		ents = append(ents, card.Entity{Text: span, Label: e.Label, Start: e.Start, End: e.End})
	}
	return ents, nil
}
