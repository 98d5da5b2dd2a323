package card

import (
	"context"
	"log/slog"
	"strings"
)

// ResolveName picks the name from the candidate lines. A candidate holding a
// PERSON entity wins, then the first line shaped like a name, then the first
// candidate as is. Recognizer errors count as no person for that line; a nil
// recognizer skips entity detection.
func ResolveName(ctx context.Context, rec EntityRecognizer, candidates []string) string {
	return resolveName(ctx, rec, candidates, slog.Default())
}

func resolveName(ctx context.Context, rec EntityRecognizer, candidates []string, logger *slog.Logger) string {
	if rec != nil {
		for _, c := range candidates {
			if hasPerson(ctx, rec, c, logger) {
				return strings.TrimSpace(c)
			}
		}
	}
	for _, c := range candidates {
		trimmed := strings.TrimSpace(c)
		if MatchesNameShape(trimmed) {
			return trimmed
		}
	}
	if len(candidates) == 0 {
		return UnknownName
	}
	if first := strings.TrimSpace(candidates[0]); first != "" {
		return first
	}
	return UnknownName
}

func hasPerson(ctx context.Context, rec EntityRecognizer, text string, logger *slog.Logger) bool {
	ents, err := rec.DetectEntities(ctx, text)
	if err != nil {
		logger.Warn("entity detection failed", "text", text, "error", err)
		return false
	}
	for _, e := range ents {
		if e.Label == LabelPerson {
			return true
		}
	}
	return false
}
