package utils

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeImage_UpscalesSmallImages(t *testing.T) {
	img := genTestImage(200, 100)
	got, err := ResizeImage(img, DefaultImageConstraints())
	require.NoError(t, err)
	assert.Equal(t, 400, got.Bounds().Dx())
	assert.Equal(t, 200, got.Bounds().Dy())
}

func TestResizeImage_FitsLargeImages(t *testing.T) {
	img := genTestImage(800, 400)
	got, err := ResizeImage(img, ImageConstraints{MaxWidth: 400, MaxHeight: 400})
	require.NoError(t, err)
	assert.Equal(t, 400, got.Bounds().Dx())
	assert.Equal(t, 200, got.Bounds().Dy())
}

func TestResizeImage_Errors(t *testing.T) {
	_, err := ResizeImage(nil, DefaultImageConstraints())
	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "resize", ipe.Operation)

	_, err = ResizeImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultImageConstraints())
	require.Error(t, err)
}

func TestEnhanceForOCR_Grayscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 320))
	for y := range 320 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	out, err := EnhanceForOCR(img, DefaultEnhanceOptions())
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), out.Bounds().Size())

	r, g, b, _ := out.At(100, 100).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.png")
	require.NoError(t, SaveImage(genTestImage(40, 20), path))

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 40, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.Positive(t, meta.SizeBytes)

	_, _, err = LoadImage("")
	require.Error(t, err)

	_, _, err = LoadImage(filepath.Join(dir, "card.gif"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	_, _, err = LoadImage(bad)
	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "decode", ipe.Operation)
}

func TestSupportedFormats(t *testing.T) {
	assert.True(t, IsSupportedImage("a/B.TIFF"))
	assert.True(t, IsSupportedImage("scan.bmp"))
	assert.False(t, IsSupportedImage("card.pdf"))
	assert.True(t, IsPDF("card.PDF"))
	assert.False(t, IsPDF("card.png"))
}

func TestProcessedPath(t *testing.T) {
	assert.Equal(t, "dir/card_processed.jpg", ProcessedPath("dir/card.jpg"))
	assert.Equal(t, "card_processed", ProcessedPath("card"))
}
