package characters

import (
	"fmt"
	"path"
	"strings"

	"github.com/mcoot/comicguess/internal/model"
)

// Severity ranks a validation issue
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

const maxNameLength = 100

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// Issue is a single problem found in a pool
type Issue struct {
	Severity    Severity
	CharacterID model.CharacterID
	Message     string
}

func (i Issue) String() string {
	if i.CharacterID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.CharacterID, i.Message)
}

// Report collects the issues found in one track's pool
type Report struct {
	Track  model.Track
	Issues []Issue
}

// Blocking reports whether the pool must not be loaded
func (r *Report) Blocking() bool {
	for _, i := range r.Issues {
		if i.Severity != SeverityWarning {
			return true
		}
	}
	return false
}

func (r *Report) add(sev Severity, id model.CharacterID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, CharacterID: id, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a track's pool before it is stored
func Validate(track model.Track, pool []*model.Character) *Report {
	r := &Report{Track: track}

	if len(pool) == 0 {
		r.add(SeverityCritical, "", "pool is empty")
		return r
	}

	ids := make(map[model.CharacterID]bool, len(pool))
	names := make(map[string]model.CharacterID, len(pool))

	for _, c := range pool {
		if c.ID == "" {
			r.add(SeverityError, "", "character %q has no id", c.Name)
		} else if ids[c.ID] {
			r.add(SeverityError, c.ID, "duplicate id")
		}
		ids[c.ID] = true

		name := strings.TrimSpace(c.Name)
		if name == "" {
			r.add(SeverityError, c.ID, "name is empty")
		} else if len([]rune(name)) > maxNameLength {
			r.add(SeverityWarning, c.ID, "name longer than %d characters", maxNameLength)
		}

		for _, n := range c.Names() {
			key := model.NormalizeName(n)
			if key == "" {
				continue
			}
			if other, ok := names[key]; ok && other != c.ID {
				r.add(SeverityError, c.ID, "name %q duplicates %s", n, other)
			}
			names[key] = c.ID
		}

		switch {
		case c.ImageKey == "":
			r.add(SeverityError, c.ID, "image key is empty")
		case !strings.HasPrefix(c.ImageKey, string(track)+"/"):
			r.add(SeverityError, c.ID, "image key %q must start with %s/", c.ImageKey, track)
		case !imageExtensions[strings.ToLower(path.Ext(c.ImageKey))]:
			r.add(SeverityWarning, c.ID, "image key %q has an unusual extension", c.ImageKey)
		}
	}

	return r
}
