package testutil

import "github.com/mcoot/comicguess/internal/model"

// Pools returns a small, valid character pool for every track
func Pools() map[model.Track][]*model.Character {
	return map[model.Track][]*model.Character{
		model.TrackMarvel: {
			{ID: "marvel-spider-man", Name: "Spider-Man", Aliases: []string{"Peter Parker", "Spidey"}, ImageKey: "marvel/spider-man.jpg"},
			{ID: "marvel-iron-man", Name: "Iron Man", Aliases: []string{"Tony Stark"}, ImageKey: "marvel/iron-man.jpg"},
			{ID: "marvel-thor", Name: "Thor", ImageKey: "marvel/thor.jpg"},
		},
		model.TrackDC: {
			{ID: "dc-batman", Name: "Batman", Aliases: []string{"Bruce Wayne"}, ImageKey: "dc/batman.jpg"},
			{ID: "dc-superman", Name: "Superman", Aliases: []string{"Clark Kent", "Kal-El"}, ImageKey: "dc/superman.jpg"},
		},
		model.TrackImage: {
			{ID: "image-spawn", Name: "Spawn", ImageKey: "image/spawn.jpg"},
			{ID: "image-invincible", Name: "Invincible", Aliases: []string{"Mark Grayson"}, ImageKey: "image/invincible.jpg"},
		},
	}
}
