package card

import "fmt"

// InvalidInputError reports fragment input that does not have the expected shape.
// Index is the position of the offending element, or -1 for the top level.
type InvalidInputError struct {
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid fragment input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid fragment input at index %d: %s", e.Index, e.Reason)
}
