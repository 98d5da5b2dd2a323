package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/MeKo-Tech/cardscan/internal/ner"
	"github.com/MeKo-Tech/cardscan/internal/notify"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/MeKo-Tech/cardscan/internal/store"
)

// runtimeDeps holds everything a command needs and must release afterwards.
type runtimeDeps struct {
	service *intake.Service
	engine  ocr.Engine
	store   *store.GormStore
}

// Close releases the engine and the store.
func (d *runtimeDeps) Close() error {
	var errs []error
	if d.engine != nil {
		errs = append(errs, d.engine.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// buildExtractor creates the field extractor from the rules and NER sections.
func buildExtractor(cfg *config.Config) (*card.Extractor, error) {
	rules, err := card.NewRules(cfg.ToRulesConfig())
	if err != nil {
		return nil, fmt.Errorf("invalid extraction rules: %w", err)
	}
	recognizer, err := ner.New(cfg.ToNERConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create entity recognizer: %w", err)
	}
	return card.NewExtractor(
		card.WithRules(rules),
		card.WithRecognizer(recognizer),
		card.WithLogger(slog.Default()),
	), nil
}

// buildRuntime creates the OCR engine, the extractor and, when withStore is
// set and a driver is configured, the card store.
func buildRuntime(ctx context.Context, cfg *config.Config, withStore bool) (*runtimeDeps, error) {
	extractor, err := buildExtractor(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(ctx, cfg.ToOCRConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}
	deps := &runtimeDeps{engine: engine}

	opts := []intake.Option{
		intake.WithNotifier(notify.NewLogNotifier(nil)),
		intake.WithLogger(slog.Default()),
	}
	if storeCfg, ok := cfg.ToStoreConfig(); ok && withStore {
		st, err := store.Open(storeCfg)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.store = st
		opts = append(opts, intake.WithStore(st))
	}

	deps.service, err = intake.NewService(cfg.ToIntakeConfig(), engine, extractor, opts...)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	return deps, nil
}
