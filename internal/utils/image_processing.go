package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the size of images handed to an OCR engine.
// Images with a side below the minimum are doubled, images above the maximum
// are scaled down to fit.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for card photos.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  4000,
		MaxHeight: 4000,
		MinWidth:  300,
		MinHeight: 300,
	}
}

// EnhanceOptions controls EnhanceForOCR.
type EnhanceOptions struct {
	Constraints ImageConstraints
	Contrast    float64
	Sharpen     float64
}

// DefaultEnhanceOptions returns settings that work well for printed cards.
func DefaultEnhanceOptions() EnhanceOptions {
	return EnhanceOptions{
		Constraints: DefaultImageConstraints(),
		Contrast:    10,
		Sharpen:     1.1,
	}
}

// ResizeImage applies the size constraints using Lanczos resampling.
func ResizeImage(img image.Image, c ImageConstraints) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: fmt.Errorf("empty image %dx%d", w, h)}
	}

	if w < c.MinWidth || h < c.MinHeight {
		img = imaging.Resize(img, w*2, h*2, imaging.Lanczos)
		b = img.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if (c.MaxWidth > 0 && w > c.MaxWidth) || (c.MaxHeight > 0 && h > c.MaxHeight) {
		maxW, maxH := c.MaxWidth, c.MaxHeight
		if maxW <= 0 {
			maxW = w
		}
		if maxH <= 0 {
			maxH = h
		}
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}
	return img, nil
}

// EnhanceForOCR resizes, converts to grayscale, raises contrast and sharpens.
func EnhanceForOCR(img image.Image, opts EnhanceOptions) (image.Image, error) {
	resized, err := ResizeImage(img, opts.Constraints)
	if err != nil {
		return nil, err
	}
	out := imaging.Grayscale(resized)
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}
	if opts.Sharpen > 0 {
		out = imaging.Sharpen(out, opts.Sharpen)
	}
	return out, nil
}

// SaveImage writes img to path, picking the format from the extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	return nil
}
