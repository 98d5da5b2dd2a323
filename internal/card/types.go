// Package card turns OCR fragments of a business card into a contact record.
//
// The package is pure: every resolver is a deterministic function of the
// reading-order lines (and, for the address, of the fields resolved before it).
// OCR and named-entity recognition are consumed through small interfaces so
// engines can be swapped without touching the resolvers.
package card

import (
	"context"
	"encoding/json"
)

const (
	// UnknownName is returned when no name candidate is available.
	UnknownName = "Unknown"
	// AddressNotProvided is returned when no address lines remain.
	AddressNotProvided = "Not Provided"
)

// Point is a single bounding box corner in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox holds the corners of a detected text region, normally four.
type BoundingBox []Point

// Top returns the smallest y coordinate of the box, or 0 for an empty box.
func (b BoundingBox) Top() float64 {
	if len(b) == 0 {
		return 0
	}
	top := b[0].Y
	for _, p := range b[1:] {
		if p.Y < top {
			top = p.Y
		}
	}
	return top
}

// Fragment is one OCR-detected text region.
type Fragment struct {
	Box        BoundingBox `json:"box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

// Line is a fragment reduced to a reading-order unit.
type Line struct {
	Text string  `json:"text"`
	Y    float64 `json:"y"`
}

// Record is the extracted contact. Empty Email or Phone means unresolved.
type Record struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// MarshalJSON encodes unresolved email and phone as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string  `json:"name"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address string  `json:"address"`
	}{
		Name:    r.Name,
		Email:   optional(r.Email),
		Phone:   optional(r.Phone),
		Address: r.Address,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Entity is a span classified by a named-entity recognizer.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// LabelPerson is the entity label that marks a person name.
const LabelPerson = "PERSON"

// EntityRecognizer classifies spans of a text. Implementations may be remote.
type EntityRecognizer interface {
	DetectEntities(ctx context.Context, text string) ([]Entity, error)
}

// EntityRecognizerFunc adapts a plain function to EntityRecognizer.
type EntityRecognizerFunc func(ctx context.Context, text string) ([]Entity, error)

// DetectEntities calls f.
func (f EntityRecognizerFunc) DetectEntities(ctx context.Context, text string) ([]Entity, error) {
	return f(ctx, text)
}
