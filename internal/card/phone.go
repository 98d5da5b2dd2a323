package card

// ResolvePhone finds a phone number in lines using the default rules.
func ResolvePhone(lines []Line) (string, bool) {
	return DefaultRules.ResolvePhone(lines)
}

// ResolvePhone tries labeled lines in order and falls back to the first match
// anywhere.
func (r *Rules) ResolvePhone(lines []Line) (string, bool) {
	for _, l := range lines {
		if !r.hasPhoneLabel(l.Text) {
			continue
		}
		if m := phonePattern.FindString(l.Text); m != "" {
			return m, true
		}
	}
	for _, l := range lines {
		if m := phonePattern.FindString(l.Text); m != "" {
			return m, true
		}
	}
	return "", false
}
