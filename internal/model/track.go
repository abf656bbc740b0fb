package model

import "strings"

// Track is a publisher universe with its own daily puzzle
type Track string

const (
	TrackMarvel Track = "marvel"
	TrackDC     Track = "dc"
	TrackImage  Track = "image"
)

var allTracks = []Track{TrackMarvel, TrackDC, TrackImage}

// AllTracks returns every track in a fixed order
func AllTracks() []Track {
	tracks := make([]Track, len(allTracks))
	copy(tracks, allTracks)
	return tracks
}

// ParseTrack parses a track name, ignoring case and surrounding whitespace
func ParseTrack(s string) (Track, error) {
	t := Track(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidTrack
	}
	return t, nil
}

// Valid reports whether t is one of the known tracks
func (t Track) Valid() bool {
	for _, known := range allTracks {
		if t == known {
			return true
		}
	}
	return false
}

func (t Track) String() string {
	return string(t)
}
