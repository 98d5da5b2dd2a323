package ocr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/card"
)

// FragmentFileEngine reads fragments recorded as JSON instead of running OCR.
// For an image it looks for card.json and then card.png.json next to it; a
// .json path is read directly.
type FragmentFileEngine struct{}

// NewFragmentFileEngine returns a FragmentFileEngine.
func NewFragmentFileEngine() *FragmentFileEngine { return &FragmentFileEngine{} }

// Name implements Engine.
func (e *FragmentFileEngine) Name() string { return KindFragments }

// Close implements Engine.
func (e *FragmentFileEngine) Close() error { return nil }

// Recognize implements Engine.
func (e *FragmentFileEngine) Recognize(ctx context.Context, imagePath string) ([]card.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range SidecarCandidates(imagePath) {
		f, err := os.Open(p) //nolint:gosec // G304: sidecar next to the caller's image
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open fragments %s: %w", p, err)
		}
		frags, err := card.DecodeFragments(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("fragments %s: %w", p, err)
		}
		return frags, nil
	}
	return nil, fmt.Errorf("no fragment file found for %s", imagePath)
}

// SidecarCandidates lists the JSON files that may hold fragments for path.
func SidecarCandidates(path string) []string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".json") {
		return []string{path}
	}
	return []string{
		strings.TrimSuffix(path, ext) + ".json",
		path + ".json",
	}
}
