package util

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFKC form of s with surrounding whitespace removed.
// Usernames are normalized before they leave the console so that visually
// identical input always produces the same login request.
func Normalize(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

// Fold returns a caseless form of s suitable for substring matching.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr appears in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
