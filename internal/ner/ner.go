// Package ner provides named-entity recognizers used to spot person names
// on business cards.
package ner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
)

// Recognizer kinds accepted by New.
const (
	KindGazetteer = "gazetteer"
	KindHTTP      = "http"
	KindChain     = "chain"
	KindNone      = "none"
)

// Config selects and configures a recognizer.
type Config struct {
	Kind      string
	URL       string
	Model     string
	Timeout   time.Duration
	NamesFile string
}

// New builds the recognizer described by cfg. KindNone returns a nil
// recognizer, which disables entity detection.
func New(cfg Config) (card.EntityRecognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindGazetteer:
		g, err := newGazetteer(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindHTTP:
		h, err := NewHTTPRecognizer(cfg.URL, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return h, nil
	case KindChain:
		remote, err := NewHTTPRecognizer(cfg.URL, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		local, err := newGazetteer(cfg)
		if err != nil {
			return nil, err
		}
		return Chain{remote, local}, nil
	case KindNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown recognizer kind %q", cfg.Kind)
	}
}

func newGazetteer(cfg Config) (*Gazetteer, error) {
	g := NewGazetteer()
	if cfg.NamesFile != "" {
		if err := g.LoadNamesFile(cfg.NamesFile); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Chain asks each recognizer in turn and returns the first result holding a
// person. Errors are reported only when no recognizer succeeded.
type Chain []card.EntityRecognizer

// DetectEntities implements card.EntityRecognizer.
func (c Chain) DetectEntities(ctx context.Context, text string) ([]card.Entity, error) {
	var (
		all       []card.Entity
		errs      []error
		succeeded bool
	)
	for _, r := range c {
		if r == nil {
			continue
		}
		ents, err := r.DetectEntities(ctx, text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		succeeded = true
		if HasPerson(ents) {
			return ents, nil
		}
		all = append(all, ents...)
	}
	if !succeeded && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// HasPerson reports whether any entity is labeled as a person.
func HasPerson(ents []card.Entity) bool {
	for _, e := range ents {
		if e.Label == card.LabelPerson {
			return true
		}
	}
	return false
}
