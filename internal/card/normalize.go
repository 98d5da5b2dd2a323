package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFC normalization and trims surrounding whitespace.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(norm.NFC.String(s))
}

// CoerceText converts a raw OCR text value to a string.
// Sequences are joined with single spaces, scalars are formatted.
func CoerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, elem := range t {
			parts[i] = CoerceText(elem)
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(t, " ")
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// CoerceConfidence converts a raw confidence value to a float.
// Anything that does not parse as a number yields 0.
func CoerceConfidence(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// CoerceBox converts a raw list of [x, y] corners to a BoundingBox.
// Malformed shapes yield a nil box, whose top is 0.
func CoerceBox(v any) BoundingBox {
	corners, ok := v.([]any)
	if !ok || len(corners) == 0 {
		return nil
	}
	box := make(BoundingBox, 0, len(corners))
	for _, c := range corners {
		p, ok := coercePoint(c)
		if !ok {
			return nil
		}
		box = append(box, p)
	}
	return box
}

func coercePoint(v any) (Point, bool) {
	switch t := v.(type) {
	case []any:
		if len(t) < 2 {
			return Point{}, false
		}
		x, okX := number(t[0])
		y, okY := number(t[1])
		return Point{X: x, Y: y}, okX && okY
	case map[string]any:
		x, okX := number(t["x"])
		y, okY := number(t["y"])
		return Point{X: x, Y: y}, okX && okY
	default:
		return Point{}, false
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DecodeFragments reads raw fragments encoded as JSON.
func DecodeFragments(r io.Reader) ([]Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading fragments: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &InvalidInputError{Index: -1, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return NormalizeRaw(raw)
}

// NormalizeRaw converts decoded JSON into fragments. Each element is either a
// [box, text, confidence] triple or an object with box/bbox, text and
// confidence/conf keys. Anything else is rejected with *InvalidInputError.
func NormalizeRaw(raw any) ([]Fragment, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, &InvalidInputError{Index: -1, Reason: fmt.Sprintf("expected a list of fragments, got %T", raw)}
	}
	frags := make([]Fragment, 0, len(items))
	for i, item := range items {
		switch t := item.(type) {
		case []any:
			if len(t) != 3 {
				return nil, &InvalidInputError{Index: i, Reason: fmt.Sprintf("expected [box, text, confidence], got %d elements", len(t))}
			}
			frags = append(frags, Fragment{
				Box:        CoerceBox(t[0]),
				Text:       CoerceText(t[1]),
				Confidence: CoerceConfidence(t[2]),
			})
		case map[string]any:
			box, ok := t["box"]
			if !ok {
				box = t["bbox"]
			}
			conf, ok := t["confidence"]
			if !ok {
				conf = t["conf"]
			}
			frags = append(frags, Fragment{
				Box:        CoerceBox(box),
				Text:       CoerceText(t["text"]),
				Confidence: CoerceConfidence(conf),
			})
		default:
			return nil, &InvalidInputError{Index: i, Reason: fmt.Sprintf("unexpected fragment type %T", item)}
		}
	}
	return frags, nil
}

// CleanFragments normalizes fragment text and drops fragments left empty.
func CleanFragments(frags []Fragment) []Fragment {
	cleaned := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		f.Text = NormalizeText(f.Text)
		if f.Text == "" {
			continue
		}
		cleaned = append(cleaned, f)
	}
	return cleaned
}
