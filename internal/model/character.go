package model

// CharacterID uniquely identifies a character across all tracks
type CharacterID string

// Character is an answer candidate for a track's daily puzzle.
// Characters are reference data; they are only written by content seeding.
type Character struct {
	ID       CharacterID `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Track    Track       `json:"track" yaml:"-"`
	Aliases  []string    `json:"aliases,omitempty" yaml:"aliases"`
	ImageKey string      `json:"image_key" yaml:"image_key"`
}
