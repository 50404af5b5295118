package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// sanitizeName normalizes a display name before duplicate checks and storage:
// NFKC form so accented characters survive composition, every whitespace rune
// becomes a plain space, anything that is not a letter, number, or space is
// dropped, runs of spaces collapse, and the result is lowercased.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKC.String(name) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}
