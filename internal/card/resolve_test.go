package card

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesOf(texts ...string) []Line {
	lines := make([]Line, len(texts))
	for i, s := range texts {
		lines[i] = Line{Text: s, Y: float64(10 * (i + 1))}
	}
	return lines
}

func TestAssembleLines_SortsByTopEdge(t *testing.T) {
	frags := []Fragment{
		{Text: "bottom", Box: BoundingBox{{0, 90}, {10, 90}, {10, 99}, {0, 99}}},
		{Text: "top", Box: BoundingBox{{0, 12}, {10, 10}, {10, 20}, {0, 20}}},
		{Text: "no box"},
		{Text: "middle", Box: BoundingBox{{0, 50}, {10, 50}, {10, 60}, {0, 60}}},
	}
	lines := AssembleLines(frags)
	assert.Equal(t, []string{"no box", "top", "middle", "bottom"}, LineTexts(lines))
	assert.InDelta(t, 0.0, lines[0].Y, 1e-9)
	assert.InDelta(t, 10.0, lines[1].Y, 1e-9)
}

func TestAssembleLines_StableOnTies(t *testing.T) {
	box := BoundingBox{{0, 5}, {1, 5}, {1, 6}, {0, 6}}
	frags := []Fragment{
		{Text: "first", Box: box},
		{Text: "second", Box: box},
		{Text: "third", Box: box},
	}
	assert.Equal(t, []string{"first", "second", "third"}, LineTexts(AssembleLines(frags)))
}

func TestIsEmailCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"jane@acme.org", true},
		{"GMAIL", true},
		{"hotmail", true},
		{"www.acme.com", true},
		{"site.in", true},
		{"Acme", false},
		{"555-1234", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEmailCandidate(tt.in), "input %q", tt.in)
	}
}

func TestFixEmailCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"contact@yahoo", "contact@yahoo.com"},
		{"x@gmaik", "x@gmail.com"},
		{"x@mygmailbox", "x@gmail.com"},
		{"x@Hotmaik", "x@hotmail.com"},
		{"x@acme", "x@acme.com"},
		{"j.doe@gmaik.com", "j.doe@gmail.com"},
		{"J.DOE@GMAIK.COM", "J.DOE@gmail.COM"},
		{"jane@acme.co.uk", "jane@acme.co.uk"},
		{"no at sign", "no at sign"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FixEmailCandidate(tt.in), "input %q", tt.in)
	}
}

func TestNewRules_ExtraCorrectionsRunAfterDefaults(t *testing.T) {
	rules, err := NewRules(RulesConfig{
		Corrections: []Correction{{Wrong: "yahooo", Right: "yahoo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a@yahoo.com", rules.FixEmailCandidate("a@YAHOOO.com"))
	assert.Equal(t, "a@gmail.com", rules.FixEmailCandidate("a@gmaik.com"))
	assert.Equal(t, DefaultNameCandidates, rules.NameCandidates())
}

func TestNewRules_Invalid(t *testing.T) {
	_, err := NewRules(RulesConfig{Corrections: []Correction{{Wrong: "", Right: "x"}}})
	require.Error(t, err)

	_, err = NewRules(RulesConfig{NameCandidates: -1})
	require.Error(t, err)
}

func TestResolveEmail(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  string
		found bool
	}{
		{"misread domain", linesOf("J Doe", "j.doe@gmaik.com", "123 Main St - 5"), "j.doe@gmail.com", true},
		{"token inside a labeled line", linesOf("Email: jane@acme.co.uk,"), "jane@acme.co.uk", true},
		{"candidate without match keeps scanning", linesOf("www.acme.com", "bob@acme.org"), "bob@acme.org", true},
		{"first match wins", linesOf("a@one.com b@two.com"), "a@one.com", true},
		{"dotless domain is not matched", linesOf("contact@yahoo"), "", false},
		{"nothing", linesOf("Jane Doe", "Acme Ltd"), "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveEmail(tt.lines)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePhone(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  string
		found bool
	}{
		{"labeled", linesOf("Tel: 555-123-4567", "some text"), "555-123-4567", true},
		{"label beats earlier number", linesOf("Order 12345678", "Mob: +91 98765 43210"), "+91 98765 43210", true},
		{"label without number falls back", linesOf("Phone: n/a", "555.987.6543"), "555.987.6543", true},
		{"later labeled line wins", linesOf("Hotel Grand Plaza", "PO Box 56001", "Mob: 98765 43210"), "98765 43210", true},
		{"second label after empty one", linesOf("Tel: n/a", "Phone: 555-123-4567"), "555-123-4567", true},
		{"unlabeled", linesOf("Jane Doe", "+1 (555) 987-6543"), "+1 (555) 987-6543", true},
		{"no digits", linesOf("Jane Doe", "jane@acme.com"), "", false},
		{"too few digits", linesOf("Suite 12"), "", false},
		{"full-width digits", linesOf("Tel: \uff15\uff15\uff15\uff11\uff12\uff13\uff14\uff15\uff16\uff17"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolvePhone(tt.lines)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePhone_CustomLabels(t *testing.T) {
	rules, err := NewRules(RulesConfig{PhoneLabels: []string{" Fax "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"fax"}, rules.PhoneLabels())

	got, ok := rules.ResolvePhone(linesOf("Tel 111-222-3333", "FAX 444-555-6666"))
	require.True(t, ok)
	assert.Equal(t, "444-555-6666", got)
}

// personFor returns a recognizer that tags exactly the given texts as persons.
func personFor(texts ...string) EntityRecognizer {
	set := make(map[string]bool, len(texts))
	for _, s := range texts {
		set[s] = true
	}
	return EntityRecognizerFunc(func(_ context.Context, text string) ([]Entity, error) {
		if set[text] {
			return []Entity{{Text: text, Label: LabelPerson, End: len(text)}}, nil
		}
		return []Entity{{Text: text, Label: "ORG", End: len(text)}}, nil
	})
}

func TestResolveName(t *testing.T) {
	ctx := context.Background()
	failing := EntityRecognizerFunc(func(context.Context, string) ([]Entity, error) {
		return nil, errors.New("service down")
	})

	tests := []struct {
		name       string
		recognizer EntityRecognizer
		candidates []string
		want       string
	}{
		{"entity wins over shape", personFor(" Jane Doe "), []string{"ACME CORP", " Jane Doe ", "Engineer"}, "Jane Doe"},
		{"first person wins", personFor("Jane Doe", "John Roe"), []string{"John Roe", "Jane Doe"}, "John Roe"},
		{"shape fallback", nil, []string{"123 Corp", "Dr. Jane Doe", "x"}, "Dr. Jane Doe"},
		{"no person uses shape", personFor(), []string{"#1 Agency", "Mary-Ann Smith"}, "Mary-Ann Smith"},
		{"first candidate verbatim", personFor(), []string{"ACME #1", "555-1234", "a@b.co"}, "ACME #1"},
		{"recognizer error falls back", failing, []string{"Jane Doe"}, "Jane Doe"},
		{"no candidates", personFor(), nil, UnknownName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveName(ctx, tt.recognizer, tt.candidates))
		})
	}
}

func TestResolveAddress(t *testing.T) {
	positioned := []Line{
		{Text: "Jane Doe", Y: 10},
		{Text: "Engineer", Y: 30},
		{Text: "jane@acme.com", Y: 50},
		{Text: "12 High St", Y: 70},
		{Text: "London", Y: 90},
	}

	tests := []struct {
		name                string
		lines               []Line
		rName, email, phone string
		want                string
	}{
		{"below email", positioned, "Jane Doe", "jane@acme.com", "", "12 High St, London"},
		{
			"nothing below email falls back",
			[]Line{{Text: "Jane Doe", Y: 10}, {Text: "12 High St", Y: 20}, {Text: "jane@acme.com", Y: 30}},
			"Jane Doe", "jane@acme.com", "", "12 High St",
		},
		{
			"email and phone unresolved",
			linesOf("Jane Doe", "Acme", "12 High St"),
			"Jane Doe", "", "", "Acme, 12 High St",
		},
		{
			"phone line excluded",
			linesOf("Jane Doe", "Tel 555-123-4567", "12 High St"),
			"Jane Doe", "", "555-123-4567", "12 High St",
		},
		{
			"corrected email does not match misread line",
			linesOf("J Doe", "j.doe@gmaik.com", "Main St"),
			"J Doe", "j.doe@gmail.com", "", "j.doe@gmaik.com, Main St",
		},
		{"only the name", linesOf("Jane Doe"), "Jane Doe", "", "", AddressNotProvided},
		{"no lines", nil, UnknownName, "", "", AddressNotProvided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAddress(tt.lines, tt.rName, tt.email, tt.phone))
		})
	}
}

func TestIsAddressLine(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12/4 MG Road", true},
		{" Flat-5 Block C ", true},
		{"jane@x-1.com", false},
		{"Main Street", false},
		{"123-456", false},
		{"12 High St", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAddressLine(tt.in), "input %q", tt.in)
	}
}
