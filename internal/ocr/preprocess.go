package ocr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// Preprocessor writes an enhanced copy of an image next to the original.
type Preprocessor struct {
	opts utils.EnhanceOptions
}

// NewPreprocessor creates a Preprocessor with the given options.
func NewPreprocessor(opts utils.EnhanceOptions) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Process enhances path and returns the location of the processed copy.
func (p *Preprocessor) Process(path string) (string, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return "", fmt.Errorf("opening image %s: %w", path, err)
	}
	enhanced, err := utils.EnhanceForOCR(img, p.opts)
	if err != nil {
		return "", err
	}
	out := utils.ProcessedPath(path)
	if err := utils.SaveImage(enhanced, out); err != nil {
		return "", fmt.Errorf("saving processed image: %w", err)
	}
	return out, nil
}

// Cleanup removes a processed copy. A missing file is not an error.
func (p *Preprocessor) Cleanup(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
