// Package textnorm canonicalizes free text before it is compared.
package textnorm

import "strings"

// Normalize lower-cases s, turns every rune outside [a-z0-9] and whitespace
// into a space, collapses whitespace runs and trims the result.
// "Paris." and "paris" normalize to the same string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		if isKept(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		// Punctuation, symbols, non-ASCII letters and whitespace all
		// act as separators.
		pendingSpace = true
	}
	return b.String()
}

// Keywords splits the normalized form of s into whitespace-delimited tokens.
// Duplicates are kept so a repeated keyword weighs proportionally more.
func Keywords(s string) []string {
	return strings.Fields(Normalize(s))
}

func isKept(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
