package card

import "strings"

// ResolveEmail finds an email address in lines using the default rules.
func ResolveEmail(lines []Line) (string, bool) {
	return DefaultRules.ResolveEmail(lines)
}

// ResolveEmail scans tokens line by line, then retries over the joined text
// so tokens split by OCR across lines still get a chance.
func (r *Rules) ResolveEmail(lines []Line) (string, bool) {
	for _, l := range lines {
		if email, ok := r.emailFromTokens(strings.Fields(l.Text)); ok {
			return email, true
		}
	}
	joined := strings.Join(LineTexts(lines), " ")
	return r.emailFromTokens(strings.Fields(joined))
}

func (r *Rules) emailFromTokens(tokens []string) (string, bool) {
	for _, tok := range tokens {
		if !r.IsEmailCandidate(tok) {
			continue
		}
		if m := emailPattern.FindString(tok); m != "" {
			return r.FixEmailCandidate(m), true
		}
	}
	return "", false
}
