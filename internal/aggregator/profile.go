package aggregator

import (
	"github.com/apetrov-dev/piutop/internal/achievements"
	"github.com/apetrov-dev/piutop/internal/exp"
	"github.com/apetrov-dev/piutop/internal/model"
)

// coopChartType marks cooperative charts, which stay out of the per-grade and
// per-level profile indexes.
const coopChartType = "COOP"

// newProfile seeds a profile from a player's first qualifying best result:
// one empty level bucket per supported level, the achievement catalog's
// initial states, and the result's date as the initial date range.
func newProfile(res *model.Result, players map[int]model.Player) *model.Profile {
	levels := make(map[int][]model.ResultOnChart, model.ChartLevelMax)
	for lvl := model.ChartLevelMin; lvl <= model.ChartLevelMax; lvl++ {
		levels[lvl] = nil
	}

	profile := &model.Profile{
		ID:              res.PlayerID,
		Nickname:        res.Nickname,
		ArcadeName:      res.ArcadeName,
		Region:          players[res.PlayerID].Region,
		Grades:          make(map[model.Grade]int, len(model.BaseGrades)),
		ResultsByGrade:  make(map[model.Grade][]model.ResultOnChart),
		ResultsByLevel:  levels,
		FirstResultDate: res.DateObject,
		LastResultDate:  res.DateObject,
		Achievements:    achievements.InitialStates(),
	}
	for _, g := range model.BaseGrades {
		profile.Grades[g] = 0
	}
	return profile
}

// foldResult accumulates one current-best result into its player's profile.
// Called once per qualifying best during aggregation, never for superseded
// attempts.
func foldResult(profile *model.Profile, res *model.Result, chart *model.ChartAggregate) {
	profile.Count++
	if res.Accuracy != nil && *res.Accuracy > 0 {
		profile.CountAcc++
		profile.SumAccuracy += *res.Accuracy
	}
	profile.Grades[res.Grade.Base()]++

	if chart.ChartType != coopChartType {
		profile.ResultsByGrade[res.Grade] = append(profile.ResultsByGrade[res.Grade], model.ResultOnChart{Result: res, Chart: chart})
		profile.ResultsByLevel[chart.ChartLevelNum] = append(profile.ResultsByLevel[chart.ChartLevelNum], model.ResultOnChart{Result: res, Chart: chart})
	}

	// Imprecise personal-best/machine-best dates must not distort the known
	// played range.
	if res.IsExactDate {
		if profile.LastResultDate.Before(res.DateObject) {
			profile.LastResultDate = res.DateObject
		}
		if profile.FirstResultDate.After(res.DateObject) {
			profile.FirstResultDate = res.DateObject
		}
	}

	profile.Exp += exp.ForResult(res, chart)
}
