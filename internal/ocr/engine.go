// Package ocr adapts OCR engines to the card fragment model.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MeKo-Tech/cardscan/internal/card"
)

// Engine kinds accepted by NewEngine.
const (
	KindTesseract  = "tesseract"
	KindDocumentAI = "documentai"
	KindAzure      = "azure"
	KindFragments  = "fragments"
)

// Text granularity for engines that can report either.
const (
	LevelLine = "line"
	LevelWord = "word"
)

// Engine recognizes text regions in an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) ([]card.Fragment, error)
	Name() string
	Close() error
}

// DocumentAIConfig addresses a Google Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
}

// AzureConfig addresses an Azure Computer Vision resource.
type AzureConfig struct {
	Endpoint string
	Key      string
}

// Config selects and configures an engine.
type Config struct {
	Engine     string
	Language   string
	Level      string
	DocumentAI DocumentAIConfig
	Azure      AzureConfig
}

// Factory builds an engine from configuration.
type Factory func(ctx context.Context, cfg Config) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine kind available to NewEngine. Engines that need
// cgo live in their own package and register themselves from init.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(kind)] = f
}

// NewEngine creates the engine named by cfg.Engine. Tesseract is the default.
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Engine))
	if kind == "" {
		kind = KindTesseract
	}

	var (
		e   Engine
		err error
	)
	switch kind {
	case KindDocumentAI:
		e, err = NewDocumentAIEngine(ctx, cfg.DocumentAI)
	case KindAzure:
		e, err = NewAzureEngine(cfg.Azure, cfg.Language)
	case KindFragments:
		e = NewFragmentFileEngine()
	default:
		registryMu.RLock()
		f, ok := registry[kind]
		registryMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
		}
		e, err = f(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// quad returns the four corners of an axis-aligned rectangle, clockwise from
// the top left.
func quad(x, y, w, h float64) card.BoundingBox {
	return card.BoundingBox{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}
