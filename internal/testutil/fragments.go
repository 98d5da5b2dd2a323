package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// LineSpacing is the vertical distance between fixture lines.
const LineSpacing = 20

// FragmentsJSON encodes lines as raw OCR fragments, one per line, stacked
// top to bottom in the given order with full confidence.
func FragmentsJSON(lines ...string) string {
	raw := make([]any, 0, len(lines))
	for i, text := range lines {
		top := float64(10 + i*LineSpacing)
		box := [][2]float64{{0, top}, {200, top}, {200, top + 10}, {0, top + 10}}
		raw = append(raw, []any{box, text, 95})
	}
	data, _ := json.Marshal(raw)
	return string(data)
}

// WriteFragments writes lines as a fragments file at path, creating parent
// directories, and returns path.
func WriteFragments(path string, lines ...string) (string, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(FragmentsJSON(lines...)), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
