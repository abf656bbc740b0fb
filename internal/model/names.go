package model

import (
	"strings"
	"unicode"
)

// NormalizeName folds a character name or guess for comparison: lower case,
// punctuation dropped, hyphens read as spaces and runs of whitespace collapsed.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '-':
			b.WriteRune(' ')
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Names returns the canonical name followed by every alias
func (c *Character) Names() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// Matches reports whether guess names this character. Names are compared
// normalised, and again with spaces removed so "spiderman" finds "Spider-Man".
func (c *Character) Matches(guess string) bool {
	g := NormalizeName(guess)
	if g == "" {
		return false
	}
	gCompact := strings.ReplaceAll(g, " ", "")

	for _, name := range c.Names() {
		n := NormalizeName(name)
		if n == "" {
			continue
		}
		if g == n || gCompact == strings.ReplaceAll(n, " ", "") {
			return true
		}
	}
	return false
}
