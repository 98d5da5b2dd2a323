package card

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern     = regexp.MustCompile(`[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+\.[a-zA-Z0-9.\-]+`)
	phonePattern     = regexp.MustCompile(`\+?\d{1,4}[\-.\s]?\(?\d{1,3}\)?[\-.\s]?\d{1,4}[\-.\s]?\d{1,4}[\-.\s]?\d{1,9}`)
	nameShapePattern = regexp.MustCompile(`^[A-Za-z\s.\-]+$`)
	emailHintPattern = regexp.MustCompile(`(gmail|hotmail|\.(in|com))`)
)

// DefaultNameCandidates is the number of top lines considered for the name.
const DefaultNameCandidates = 3

// Correction maps an OCR misread to its corrected text. Matching is case-insensitive.
type Correction struct {
	Wrong string `mapstructure:"wrong" yaml:"wrong" json:"wrong"`
	Right string `mapstructure:"right" yaml:"right" json:"right"`
}

// DomainHint completes a dotless email domain containing Keyword.
type DomainHint struct {
	Keyword string
	Domain  string
}

// DefaultCorrections returns the built-in misread table.
func DefaultCorrections() []Correction {
	return []Correction{
		{Wrong: "gmaik", Right: "gmail"},
		{Wrong: "hotmaik", Right: "hotmail"},
	}
}

// DefaultDomainHints returns the domain inference order.
func DefaultDomainHints() []DomainHint {
	return []DomainHint{
		{Keyword: "gmail", Domain: "gmail.com"},
		{Keyword: "hotmail", Domain: "hotmail.com"},
		{Keyword: "yahoo", Domain: "yahoo.com"},
	}
}

// DefaultPhoneLabels returns the labels that mark a phone line.
func DefaultPhoneLabels() []string {
	return []string{"tel", "phone", "mob"}
}

// RulesConfig customizes the pattern library. Zero values keep the defaults.
type RulesConfig struct {
	// Corrections run after the default table, in order.
	Corrections    []Correction
	PhoneLabels    []string
	NameCandidates int
}

type correction struct {
	wrong *regexp.Regexp
	right string
}

// Rules holds the compiled patterns and tables used by the resolvers.
// A Rules value is immutable after construction and safe for concurrent use.
type Rules struct {
	corrections    []correction
	domainHints    []DomainHint
	phoneLabels    []string
	nameCandidates int
}

// DefaultRules is the pattern library with built-in tables.
var DefaultRules = mustRules(RulesConfig{})

func mustRules(cfg RulesConfig) *Rules {
	r, err := NewRules(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRules compiles a pattern library from cfg.
func NewRules(cfg RulesConfig) (*Rules, error) {
	r := &Rules{
		domainHints:    DefaultDomainHints(),
		phoneLabels:    DefaultPhoneLabels(),
		nameCandidates: DefaultNameCandidates,
	}
	for _, c := range append(DefaultCorrections(), cfg.Corrections...) {
		if c.Wrong == "" {
			return nil, fmt.Errorf("correction for %q has an empty misread", c.Right)
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(c.Wrong))
		if err != nil {
			return nil, fmt.Errorf("compile correction %q: %w", c.Wrong, err)
		}
		r.corrections = append(r.corrections, correction{wrong: re, right: c.Right})
	}
	if len(cfg.PhoneLabels) > 0 {
		r.phoneLabels = make([]string, 0, len(cfg.PhoneLabels))
		for _, l := range cfg.PhoneLabels {
			l = strings.ToLower(strings.TrimSpace(l))
			if l == "" {
				continue
			}
			r.phoneLabels = append(r.phoneLabels, l)
		}
	}
	if cfg.NameCandidates < 0 {
		return nil, fmt.Errorf("name candidates must not be negative, got %d", cfg.NameCandidates)
	}
	if cfg.NameCandidates > 0 {
		r.nameCandidates = cfg.NameCandidates
	}
	return r, nil
}

// NameCandidates returns how many top lines the name resolver considers.
func (r *Rules) NameCandidates() int { return r.nameCandidates }

// PhoneLabels returns a copy of the phone label list.
func (r *Rules) PhoneLabels() []string {
	return append([]string(nil), r.phoneLabels...)
}

// IsEmailCandidate reports whether s looks like it could hold an email address.
func (r *Rules) IsEmailCandidate(s string) bool {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "@") {
		return true
	}
	return emailHintPattern.MatchString(lower)
}

// CorrectMisreads applies the misread table in order.
func (r *Rules) CorrectMisreads(s string) string {
	for _, c := range r.corrections {
		s = c.wrong.ReplaceAllLiteralString(s, c.right)
	}
	return s
}

// FixEmailCandidate corrects misreads and completes a domain without a dot.
func (r *Rules) FixEmailCandidate(s string) string {
	s = r.CorrectMisreads(s)
	local, domain, ok := strings.Cut(s, "@")
	if !ok {
		return s
	}
	if !strings.Contains(domain, ".") {
		domain = r.repairDomain(domain)
	}
	return local + "@" + domain
}

func (r *Rules) repairDomain(domain string) string {
	lower := strings.ToLower(domain)
	for _, h := range r.domainHints {
		if strings.Contains(lower, h.Keyword) {
			return h.Domain
		}
	}
	return domain + ".com"
}

func (r *Rules) hasPhoneLabel(s string) bool {
	lower := strings.ToLower(s)
	for _, l := range r.phoneLabels {
		if strings.Contains(lower, l) {
			return true
		}
	}
	return false
}

// IsEmailCandidate reports whether s looks like it could hold an email address.
func IsEmailCandidate(s string) bool { return DefaultRules.IsEmailCandidate(s) }

// FixEmailCandidate repairs s with the default tables.
func FixEmailCandidate(s string) string { return DefaultRules.FixEmailCandidate(s) }

// MatchesNameShape reports whether the whole of s consists of letters,
// whitespace, periods and hyphens.
func MatchesNameShape(s string) bool {
	return nameShapePattern.MatchString(s)
}
