package card

import (
	"regexp"
	"strings"
)

const addressSeparator = ", "

var (
	letterPattern = regexp.MustCompile(`[A-Za-z]`)
	digitPattern  = regexp.MustCompile(`\d`)
)

// ResolveAddress returns the text below the line carrying the email. When
// that yields nothing it joins every line that is not the name and does not
// contain the email or phone. The result is never empty.
func ResolveAddress(lines []Line, name, email, phone string) string {
	if addr := addressBelowEmail(lines, email); addr != "" {
		return addr
	}

	remaining := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == name {
			continue
		}
		if email != "" && strings.Contains(l.Text, email) {
			continue
		}
		if phone != "" && strings.Contains(l.Text, phone) {
			continue
		}
		remaining = append(remaining, l.Text)
	}
	if addr := strings.TrimSpace(strings.Join(remaining, addressSeparator)); addr != "" {
		return addr
	}
	return AddressNotProvided
}

func addressBelowEmail(lines []Line, email string) string {
	if email == "" {
		return ""
	}
	emailY, found := 0.0, false
	for _, l := range lines {
		if strings.Contains(l.Text, email) {
			emailY, found = l.Y, true
			break
		}
	}
	if !found {
		return ""
	}
	var below []string
	for _, l := range lines {
		if l.Y > emailY {
			below = append(below, l.Text)
		}
	}
	return strings.TrimSpace(strings.Join(below, addressSeparator))
}

// IsAddressLine reports whether s looks like a street address line: no '@',
// a '/' or '-', and at least one letter and one digit.
func IsAddressLine(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return false
	}
	if !strings.ContainsAny(s, "/-") {
		return false
	}
	return letterPattern.MatchString(s) && digitPattern.MatchString(s)
}
