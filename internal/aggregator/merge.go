package aggregator

import (
	"fmt"

	"github.com/apetrov-dev/piutop/internal/model"
)

// Merge layers a new feed batch onto a previously aggregated snapshot. A
// batch entry replaces its chart wholly (the feed always re-sends a chart's
// full result stream), untouched charts carry over, and profiles plus the
// chronological sequence are re-derived from the merged chart set. The result
// equals aggregating the union of old and new raw data in one pass, which is
// what makes cached snapshots safe to reuse.
//
// Rating-model-owned profile fields (rating, history, battle counts) are
// preserved from the previous snapshot; the engine does not compute them.
func Merge(prev *model.Snapshot, batch map[string]model.RawChart, players map[int]model.Player) (*Output, error) {
	if prev == nil {
		return Aggregate(batch, players)
	}
	if batch == nil {
		return nil, fmt.Errorf("nil chart data")
	}

	merged := make(map[string]*model.ChartAggregate, len(prev.Charts)+len(batch))
	for id, chart := range prev.Charts {
		merged[id] = chart
	}
	for id, chart := range aggregateCharts(batch, players) {
		merged[id] = chart
	}

	out := assemble(merged, players)
	for id, profile := range out.Profiles {
		old, ok := prev.Profiles[id]
		if !ok {
			continue
		}
		if profile.Region == "" {
			// Delta batches may carry a trimmed player directory.
			profile.Region = old.Region
		}
		profile.Rating = old.Rating
		profile.RatingHistory = old.RatingHistory
		profile.BattleCount = old.BattleCount
		profile.LastBattleDate = old.LastBattleDate
	}
	return out, nil
}
