package domain

import "golang.org/x/text/cases"

// Fold returns the case-folded form of s used for case-insensitive matching.
// A Caser holds state, so each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}
