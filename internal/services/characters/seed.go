package characters

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/comicguess/internal/model"
)

// ParseSeed decodes a seed document mapping track name to its characters.
// Characters without an id get one derived from the track and name.
func ParseSeed(data []byte) (map[model.Track][]*model.Character, error) {
	var raw map[string][]*model.Character
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	pools := make(map[model.Track][]*model.Character, len(raw))
	for name, pool := range raw {
		track, err := model.ParseTrack(name)
		if err != nil {
			return nil, fmt.Errorf("parse seed: track %q: %w", name, err)
		}
		for i, c := range pool {
			if c == nil {
				return nil, fmt.Errorf("parse seed: track %q: entry %d is empty", name, i+1)
			}
			c.Track = track
			c.Name = strings.TrimSpace(c.Name)
			if c.ID == "" {
				c.ID = DefaultID(track, c.Name)
			}
		}
		pools[track] = pool
	}
	return pools, nil
}

// DefaultID derives a stable character id such as "marvel-spider-man"
func DefaultID(track model.Track, name string) model.CharacterID {
	slug := strings.ReplaceAll(model.NormalizeName(name), " ", "-")
	return model.CharacterID(fmt.Sprintf("%s-%s", track, slug))
}

// CheckUniqueIDs reports ids shared by characters of different tracks
func CheckUniqueIDs(pools map[model.Track][]*model.Character) error {
	owners := make(map[model.CharacterID]model.Track)
	var errs []error
	for _, track := range model.AllTracks() {
		for _, c := range pools[track] {
			owner, ok := owners[c.ID]
			if ok && owner != track {
				errs = append(errs, fmt.Errorf("%w: %s: id used by %s and %s", model.ErrInvalidPool, c.ID, owner, track))
				continue
			}
			owners[c.ID] = track
		}
	}
	return errors.Join(errs...)
}
