package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Spider-Man", "spider man"},
		{"  SPIDER   man ", "spider man"},
		{"Mr. Fantastic", "mr fantastic"},
		{"The Flash!", "the flash"},
		{"T'Challa", "tchalla"},
		{"Hulk\t\n", "hulk"},
		{"---", ""},
		{"Zoë", "zoë"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestCharacterMatches(t *testing.T) {
	spidey := &Character{
		ID:      "marvel-spider-man",
		Name:    "Spider-Man",
		Aliases: []string{"Peter Parker", "Spidey"},
	}

	matches := []string{
		"Spider-Man",
		"spider man",
		"spiderman",
		"SPIDER-MAN",
		"  spider   man  ",
		"Peter Parker",
		"peterparker",
		"spidey",
		"Spider-Man!",
	}
	for _, guess := range matches {
		assert.True(t, spidey.Matches(guess), "expected %q to match", guess)
	}

	misses := []string{
		"",
		"   ",
		"spider",
		"iron man",
		"peter",
		"spider-woman",
	}
	for _, guess := range misses {
		assert.False(t, spidey.Matches(guess), "expected %q not to match", guess)
	}
}

func TestCharacterNamesIncludesAliases(t *testing.T) {
	c := &Character{Name: "Batman", Aliases: []string{"Bruce Wayne"}}
	assert.Equal(t, []string{"Batman", "Bruce Wayne"}, c.Names())
}
