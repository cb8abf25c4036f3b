// Package achievements holds the static achievement catalog. Profiles are
// seeded with each achievement's declared initial state; progression is
// computed outside the aggregation core.
package achievements

import "github.com/apetrov-dev/piutop/internal/model"

// Achievement describes one catalog entry.
type Achievement struct {
	Name         string
	Description  string
	InitialState model.AchievementState
}

// Catalog is keyed by achievement name.
var Catalog = map[string]Achievement{
	"firstResult": {
		Name:        "firstResult",
		Description: "Submit a first recognized result",
	},
	"centuryClub": {
		Name:        "centuryClub",
		Description: "Hold best results on 100 different charts",
	},
	"perfectionist": {
		Name:        "perfectionist",
		Description: "Earn an SSS on any chart",
	},
	"highRoller": {
		Name:        "highRoller",
		Description: "Earn an S or better on a level 20+ chart",
	},
	"gladiator": {
		Name:        "gladiator",
		Description: "Take part in 1000 battles",
	},
	"marathoner": {
		Name:        "marathoner",
		Description: "Hold best results on every duration of the same song",
	},
}

// InitialStates returns a fresh per-player achievement state map.
func InitialStates() map[string]model.AchievementState {
	states := make(map[string]model.AchievementState, len(Catalog))
	for name, ach := range Catalog {
		states[name] = ach.InitialState
	}
	return states
}
