package aggregator

import "github.com/apetrov-dev/piutop/internal/model"

// GenerateBattles derives the ordered pairwise encounters fed to the rating
// model. For every result in chronological order it scans its chart's best
// list from the top and stops at the first entry submitted later: later
// entries did not exist yet and cannot be incumbents.
//
// A battle never pairs a result with itself or its own player, never crosses
// charts, never mixes rank modes, and skips unknown players and zero scores.
func GenerateBattles(chronological []*model.Result, charts map[string]*model.ChartAggregate) []model.Battle {
	var battles []model.Battle
	for _, res := range chronological {
		if res.IsUnknownPlayer {
			continue
		}
		chart := charts[res.SharedChartID]
		if chart == nil {
			continue
		}
		for _, enemy := range chart.Results {
			if res.DateObject.Before(enemy.DateObject) {
				break
			}
			if !enemy.IsUnknownPlayer &&
				enemy.IsRank == res.IsRank &&
				enemy.PlayerID != res.PlayerID &&
				res.Score != 0 &&
				enemy.Score != 0 {
				battles = append(battles, model.Battle{Incoming: res, Incumbent: enemy, Chart: chart})
			}
		}
	}
	return battles
}
