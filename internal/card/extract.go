package card

import (
	"context"
	"io"
	"log/slog"
)

// Extractor turns OCR fragments into a Record. It holds no mutable state and
// is safe for concurrent use.
type Extractor struct {
	rules      *Rules
	recognizer EntityRecognizer
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the default pattern library.
func WithRules(r *Rules) Option {
	return func(e *Extractor) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithRecognizer sets the entity recognizer used by the name resolver.
func WithRecognizer(rec EntityRecognizer) Option {
	return func(e *Extractor) { e.recognizer = rec }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		rules:  DefaultRules,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the pattern library in use.
func (e *Extractor) Rules() *Rules { return e.rules }

// Extract resolves name, email, phone and address from frags.
// The error is non-nil only when ctx is already done.
func (e *Extractor) Extract(ctx context.Context, frags []Fragment) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	lines := AssembleLines(CleanFragments(frags))
	texts := LineTexts(lines)
	e.logger.Debug("assembled OCR lines", "count", len(lines), "lines", texts)

	candidates := texts
	if n := e.rules.NameCandidates(); len(candidates) > n {
		candidates = candidates[:n]
	}

	var rec Record
	rec.Name = resolveName(ctx, e.recognizer, candidates, e.logger)
	rec.Email, _ = e.rules.ResolveEmail(lines)
	rec.Phone, _ = e.rules.ResolvePhone(lines)
	rec.Address = ResolveAddress(lines, rec.Name, rec.Email, rec.Phone)

	e.logger.Debug("extracted card fields",
		"name", rec.Name,
		"email", rec.Email,
		"phone", rec.Phone,
		"address", rec.Address)
	return rec, nil
}

// ExtractRaw decodes JSON fragments from r and extracts a Record.
// Structurally invalid input returns *InvalidInputError.
func (e *Extractor) ExtractRaw(ctx context.Context, r io.Reader) (Record, error) {
	frags, err := DecodeFragments(r)
	if err != nil {
		return Record{}, err
	}
	return e.Extract(ctx, frags)
}

// ExtractDetails extracts a Record with the default rules and no entity
// recognizer, so names come from the shape heuristic.
func ExtractDetails(frags []Fragment) Record {
	rec, _ := NewExtractor().Extract(context.Background(), frags)
	return rec
}
