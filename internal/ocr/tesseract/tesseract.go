// Package tesseract provides the Tesseract OCR engine. Importing it registers
// the "tesseract" engine kind with package ocr.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

func init() {
	ocr.Register(ocr.KindTesseract, func(_ context.Context, cfg ocr.Config) (ocr.Engine, error) {
		e, err := NewEngine(cfg.Language, cfg.Level)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Engine runs Tesseract through gosseract. A fresh client is used per image.
type Engine struct {
	languages     []string
	level         gosseract.PageIteratorLevel
	clientFactory func() *gosseract.Client
}

// NewEngine creates a Tesseract engine. language is a "+"-separated list of
// Tesseract language codes ("eng" when empty); level is "line" or "word".
func NewEngine(language, level string) (*Engine, error) {
	ril, err := iteratorLevel(level)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = "eng"
	}
	return &Engine{
		languages:     strings.Split(language, "+"),
		level:         ril,
		clientFactory: gosseract.NewClient,
	}, nil
}

func iteratorLevel(level string) (gosseract.PageIteratorLevel, error) {
	switch strings.ToLower(level) {
	case "", ocr.LevelLine:
		return gosseract.RIL_TEXTLINE, nil
	case ocr.LevelWord:
		return gosseract.RIL_WORD, nil
	default:
		return 0, fmt.Errorf("unsupported tesseract level %q", level)
	}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return ocr.KindTesseract }

// Close implements ocr.Engine.
func (e *Engine) Close() error { return nil }

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, imagePath string) ([]card.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image %s: %w", imagePath, err)
	}

	boxes, err := c.GetBoundingBoxes(e.level)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	return fragmentsFromBoxes(boxes), nil
}

// fragmentsFromBoxes converts Tesseract boxes, dropping regions without text.
func fragmentsFromBoxes(boxes []gosseract.BoundingBox) []card.Fragment {
	frags := make([]card.Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		r := b.Box
		frags = append(frags, card.Fragment{
			Box: card.BoundingBox{
				{X: float64(r.Min.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Max.Y)},
				{X: float64(r.Min.X), Y: float64(r.Max.Y)},
			},
			Text:       text,
			Confidence: b.Confidence,
		})
	}
	return frags
}
