// Package revision implements the revision label sequence used for
// document revisions.
//
// Labels run A..Y skipping I, O, Q, S, X and Z: those letters are too
// easy to confuse with digits or each other on a printed drawing.
// The label "-" marks the initial upload before the first real revision.
package revision

import "errors"

var (
	// ErrLimitReached means the label sequence is exhausted at "Y".
	// The condition is terminal for the document, not transient.
	ErrLimitReached = errors.New("maximum revision reached")

	// ErrInvalidLabel means the input is not "-" and not in the alphabet.
	ErrInvalidLabel = errors.New("invalid revision label")
)

// Labels is the ordered revision alphabet, 20 letters.
var Labels = []string{
	"A", "B", "C", "D", "E", "F", "G", "H",
	"J", "K", "L", "M", "N",
	"P", "R",
	"T", "U", "V", "W",
	"Y",
}

var labelIndex = func() map[string]int {
	m := make(map[string]int, len(Labels))
	for i, l := range Labels {
		m[l] = i
	}
	return m
}()

// Next returns the label following current. Next("-") is "A";
// Next("Y") fails with ErrLimitReached.
func Next(current string) (string, error) {
	if current == "-" {
		return Labels[0], nil
	}
	idx, ok := labelIndex[current]
	if !ok {
		return "", ErrInvalidLabel
	}
	if idx == len(Labels)-1 {
		return "", ErrLimitReached
	}
	return Labels[idx+1], nil
}

// Valid reports whether label is "-" or a member of the alphabet.
func Valid(label string) bool {
	if label == "-" {
		return true
	}
	_, ok := labelIndex[label]
	return ok
}
