package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes s to NFC, drops every rune that is not a letter, digit
// or whitespace, and collapses whitespace runs to a single space. The result
// is trimmed and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}

	// Dropping marks can leave composable neighbours behind.
	return norm.NFC.String(b.String())
}

// Matches reports whether extracted equals any expected string after both are
// normalized and case folded. Empty text never matches.
func Matches(extracted string, expected []string) bool {
	got := fold(Normalize(extracted))
	if got == "" {
		return false
	}
	for _, want := range expected {
		if fold(Normalize(want)) == got {
			return true
		}
	}
	return false
}

// cases.Caser is stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
