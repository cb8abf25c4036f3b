// Package aggregator turns the raw result feed into per-chart leaderboards,
// the global chronological result sequence, per-player profiles and the
// pairwise battle list consumed by the rating model.
package aggregator

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/apetrov-dev/piutop/internal/model"
)

// Output is the result of one aggregation pass.
type Output struct {
	Charts map[string]*model.ChartAggregate
	// Chronological holds every folded result ordered ascending by
	// submission date.
	Chronological []*model.Result
	Profiles      map[int]*model.Profile
}

// Aggregate processes a full raw dataset. Charts are independent units of
// work and aggregate in parallel; the chronological sequence and profiles are
// assembled sequentially afterwards so the result is deterministic.
//
// Aggregation is total over its input: malformed charts or results are
// dropped, never fatal.
func Aggregate(rawCharts map[string]model.RawChart, players map[int]model.Player) (*Output, error) {
	if rawCharts == nil {
		return nil, fmt.Errorf("nil chart data")
	}
	charts := aggregateCharts(rawCharts, players)
	return assemble(charts, players), nil
}

// aggregateCharts runs the per-chart fold for every chart in the batch.
func aggregateCharts(rawCharts map[string]model.RawChart, players map[int]model.Player) map[string]*model.ChartAggregate {
	var (
		mu     sync.Mutex
		charts = make(map[string]*model.ChartAggregate, len(rawCharts))
	)
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for id, rc := range rawCharts {
		g.Go(func() error {
			agg := aggregateChart(id, rc, players)
			if agg == nil {
				return nil
			}
			mu.Lock()
			charts[id] = agg
			mu.Unlock()
			return nil
		})
	}
	g.Wait() // workers never return errors; failures are per-record drops
	return charts
}

// aggregateChart folds one chart's raw results. The feed delivers results
// oldest first with scores effectively non-decreasing; sorting by score and
// folding from the top implements "first occurrence wins as current best":
// the first result seen for a (player, rank mode) slot is the best one, and
// everything after it for the same slot is a superseded earlier attempt.
func aggregateChart(id string, rc model.RawChart, players map[int]model.Player) *model.ChartAggregate {
	if len(rc.Results) == 0 && len(rc.BestGradeResults) == 0 {
		return nil
	}

	label := strings.ToUpper(rc.Chart.ChartLabel)
	chartType, chartLevel := labelToTypeLevel(label)
	levelNum, _ := strconv.Atoi(chartLevel)

	agg := &model.ChartAggregate{
		SharedChartID:          id,
		Song:                   rc.Chart.TrackName,
		ChartLabel:             label,
		ChartType:              chartType,
		ChartLevel:             chartLevel,
		ChartLevelNum:          levelNum,
		Duration:               rc.Chart.Duration,
		MaxTotalSteps:          rc.Chart.MaxTotalSteps,
		InterpolatedDifficulty: rc.Chart.InterpolatedDifficulty,
	}
	// The feed's invariant: entries arrive already time-ordered, so the last
	// raw entry carries the latest submission date. Taken before sorting.
	if len(rc.Results) > 0 {
		agg.LatestScoreDate = rc.Results[len(rc.Results)-1].Gained
	}

	combined := make([]model.RawResult, 0, len(rc.Results)+len(rc.BestGradeResults))
	combined = append(combined, rc.Results...)
	combined = append(combined, rc.BestGradeResults...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Score < combined[j].Score
	})

	tops := make(map[model.ResultKey]*model.Result)
	bestGrade := make(map[int]*model.Result)

	for i := len(combined) - 1; i >= 0; i-- {
		res := Normalize(combined[i], players, agg, id)
		if res == nil {
			continue
		}

		agg.EachResultID = append(agg.EachResultID, res.ID)

		// Best grade per player on this chart, strictly better demotes.
		if prev := bestGrade[res.PlayerID]; prev == nil || prev.Grade.Rank() < res.Grade.Rank() {
			if prev != nil {
				prev.IsBestGradeOnChart = false
			}
			res.IsBestGradeOnChart = true
			bestGrade[res.PlayerID] = res
		}

		key := res.Key()
		if cur, ok := tops[key]; !ok {
			insertByScore(agg, res)
			tops[key] = res

			if !res.IsRank {
				switch {
				case res.Accuracy != nil && *res.Accuracy > 0:
					if cand := maxRawScore(res); cand > agg.MaxScore {
						agg.MaxScore = cand
					}
				case agg.MaxScore > 0 && agg.MaxScore < float64(res.Score):
					agg.MaxScore = float64(res.Score)
				}
			}
		} else {
			res.IsIntermediateResult = true
			// Fold order is newest first, so superseded attempts collect
			// most recent first.
			agg.PreviousResults = append(agg.PreviousResults, res)
			if res.IsBestGradeOnChart && cur.ID != res.ID {
				cur.BestGradeResult = res
			}
		}
	}
	return agg
}

// insertByScore inserts a new current best keeping Results strictly
// descending by score. On ties the newcomer goes before existing equals.
func insertByScore(agg *model.ChartAggregate, res *model.Result) {
	idx := sort.Search(len(agg.Results), func(i int) bool {
		return agg.Results[i].Score <= res.Score
	})
	agg.Results = append(agg.Results, nil)
	copy(agg.Results[idx+1:], agg.Results[idx:])
	agg.Results[idx] = res
}

// Rebuild re-derives the chronological sequence and the profile set from an
// already aggregated chart map, typically one loaded from a stored snapshot.
func Rebuild(charts map[string]*model.ChartAggregate, players map[int]model.Player) *Output {
	return assemble(charts, players)
}

// assemble derives the chronological sequence and the profile set from a
// finished chart map. Charts iterate in sorted id order so the pass is
// deterministic.
func assemble(charts map[string]*model.ChartAggregate, players map[int]model.Player) *Output {
	out := &Output{
		Charts:   charts,
		Profiles: make(map[int]*model.Profile),
	}

	ids := make([]string, 0, len(charts))
	for id := range charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		chart := charts[id]
		out.Chronological = append(out.Chronological, chart.Results...)
		out.Chronological = append(out.Chronological, chart.PreviousResults...)

		for _, res := range chart.Results {
			if res.IsUnknownPlayer || res.IsIntermediateResult {
				continue
			}
			profile := out.Profiles[res.PlayerID]
			if profile == nil {
				profile = newProfile(res, players)
				out.Profiles[res.PlayerID] = profile
			}
			foldResult(profile, res, chart)
		}
	}

	sort.SliceStable(out.Chronological, func(i, j int) bool {
		return out.Chronological[i].DateObject.Before(out.Chronological[j].DateObject)
	})
	return out
}
