package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genTestImage generates a simple test image.
func genTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			val := uint8((x + y) % 256)
			img.Set(x, y, color.RGBA{val, val, val, 255})
		}
	}
	return img
}

// TestResizeImage_WithinMaximum verifies resized images never exceed the maximum.
func TestResizeImage_WithinMaximum(t *testing.T) {
	properties := gopter.NewProperties(nil)
	constraints := ImageConstraints{MaxWidth: 256, MaxHeight: 256, MinWidth: 64, MinHeight: 64}

	properties.Property("resize stays within max constraints", prop.ForAll(
		func(width, height int) bool {
			resized, err := ResizeImage(genTestImage(width, height), constraints)
			if err != nil {
				return false
			}
			b := resized.Bounds()
			return b.Dx() >= 1 && b.Dy() >= 1 && b.Dx() <= constraints.MaxWidth && b.Dy() <= constraints.MaxHeight
		},
		gen.IntRange(16, 400),
		gen.IntRange(16, 400),
	))

	properties.TestingRun(t)
}
