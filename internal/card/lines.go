package card

import "sort"

// AssembleLines orders fragments top to bottom by the top edge of their box.
// Ties keep input order. Horizontal position is not considered.
func AssembleLines(frags []Fragment) []Line {
	lines := make([]Line, len(frags))
	for i, f := range frags {
		lines[i] = Line{Text: f.Text, Y: f.Box.Top()}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Y < lines[j].Y
	})
	return lines
}

// LineTexts returns the text of each line.
func LineTexts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}
