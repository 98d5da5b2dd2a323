// Package pdf pulls embedded card scans out of PDF files.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
)

// ErrNoImages is returned when the selected pages hold no decodable image.
var ErrNoImages = errors.New("no images found in PDF")

// Options controls image extraction.
type Options struct {
	// PageRange selects pages, e.g. "1-3,5". Empty means all pages.
	PageRange string
	// Password opens encrypted files.
	Password string
}

// ExtractImages extracts the embedded images of a PDF grouped by page number.
func ExtractImages(filename string, opts Options) (map[int][]image.Image, error) {
	pages, err := ParsePageRange(opts.PageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.PageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "cardscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	conf := model.NewDefaultConfiguration()
	if opts.Password != "" {
		conf.UserPW = opts.Password
		conf.OwnerPW = opts.Password
	}
	if err := api.ExtractImagesFile(filename, tempDir, selected, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(tempDir)
}

// FirstImage writes the largest image of the first page that has one to a
// PNG in dir and returns its path. The caller removes the file.
func FirstImage(filename, dir string, opts Options) (string, error) {
	byPage, err := ExtractImages(filename, opts)
	if err != nil {
		return "", err
	}
	img := largestOnFirstPage(byPage)
	if img == nil {
		return "", ErrNoImages
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	out, err := os.CreateTemp(dir, base+"-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	path := out.Name()
	_ = out.Close()

	if err := utils.SaveImage(img, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func largestOnFirstPage(byPage map[int][]image.Image) image.Image {
	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, p := range pages {
		var best image.Image
		bestArea := 0
		for _, img := range byPage[p] {
			b := img.Bounds()
			if area := b.Dx() * b.Dy(); area > bestArea {
				best, bestArea = img, area
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: files extracted into our temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// collectExtractedImages groups pdfcpu output files (<name>_<page>_<id>.<ext>)
// by page. Undecodable files are skipped.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted images: %w", err)
	}

	result := make(map[int][]image.Image)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, err := pageFromFilename(e.Name())
		if err != nil {
			continue
		}
		img, err := loadImageFile(filepath.Join(dir, e.Name()))
		if err != nil || img == nil {
			continue
		}
		result[page] = append(result[page], img)
	}
	return result, nil
}

// pageFromFilename reads the page number from names such as
// card_1_Im0.png or page_2_image_1.jpg.
func pageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	for i := len(parts) - 2; i >= 0; i-- {
		if n, err := strconv.Atoi(parts[i]); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no page number in %q", filename)
}

// ParsePageRange parses a page selection such as "1-5" or "1,3,5".
// Empty input selects all pages and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	startStr, endStr, isRange := strings.Cut(part, "-")
	if !isRange {
		page, err := parsePage(part)
		if err != nil {
			return nil, err
		}
		return []int{page}, nil
	}
	start, err := parsePage(startStr)
	if err != nil {
		return nil, err
	}
	end, err := parsePage(endStr)
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}

func parsePage(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid page number: %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers start at 1, got %d", n)
	}
	return n, nil
}
