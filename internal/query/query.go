// Package query answers ad-hoc filter/sort requests over a finished
// aggregation snapshot. The whole pipeline is a pure function of
// (charts, filter, hidden players): no stage mutates the snapshot, so any
// number of queries may run concurrently against it.
package query

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/apetrov-dev/piutop/internal/model"
)

// row is one chart flowing through the pipeline with its recomputed visible
// result subset.
type row struct {
	chart   *model.ChartAggregate
	visible []*model.Result
	latest  string
	latestT time.Time
}

type pipeline struct {
	rows   []*row
	filter model.FilterSpec
	hidden map[int]bool
	pp     map[int64]model.ResultPP
}

// The stage order is semantically significant: rank visibility must precede
// name filtering, which must precede empty-chart pruning, which must precede
// sorting; free-text search re-ranks last.
var stages = []struct {
	name string
	run  func(*pipeline)
}{
	{"visibility", (*pipeline).projectVisibility},
	{"chart-filter", (*pipeline).filterCharts},
	{"player-filter", (*pipeline).filterPlayers},
	{"prune-empty", (*pipeline).pruneEmpty},
	{"sort", (*pipeline).sortRows},
	{"song-search", (*pipeline).searchSong},
}

// Run executes the query pipeline and returns projected chart aggregates:
// each entry's Results already pruned to the visible subset, in display
// order. The snapshot itself is never touched.
func Run(charts map[string]*model.ChartAggregate, filter model.FilterSpec, hidden map[int]bool, pp map[int64]model.ResultPP) []*model.ChartAggregate {
	ids := make([]string, 0, len(charts))
	for id := range charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p := &pipeline{
		rows:   make([]*row, 0, len(charts)),
		filter: filter,
		hidden: hidden,
		pp:     pp,
	}
	for _, id := range ids {
		p.rows = append(p.rows, &row{chart: charts[id]})
	}

	for _, s := range stages {
		s.run(p)
	}

	out := make([]*model.ChartAggregate, len(p.rows))
	for i, r := range p.rows {
		projected := *r.chart
		projected.Results = r.visible
		projected.LatestScoreDate = r.latest
		out[i] = &projected
	}
	return out
}

// projectVisibility recomputes each chart's visible result subset and a
// visibility-aware latest score date. Unknown-player artifacts stay visible
// only at the top position; the rank filter keeps matching modes, or for
// ShowBest only the first (highest-score) occurrence per player.
func (p *pipeline) projectVisibility() {
	rank := p.filter.Rank
	for _, r := range p.rows {
		seen := map[int]bool{}
		for idx, res := range r.chart.Results {
			visibleWithRank := true
			switch rank {
			case model.ShowOnlyRank:
				visibleWithRank = res.IsRank
			case model.ShowOnlyNoRank:
				visibleWithRank = !res.IsRank
			case model.ShowBest:
				visibleWithRank = !seen[res.PlayerID]
				seen[res.PlayerID] = true
			}

			visible := (!res.IsUnknownPlayer || idx == 0) && visibleWithRank
			if !visible {
				continue
			}
			r.visible = append(r.visible, res)
			if r.latestT.Before(res.DateObject) {
				r.latestT = res.DateObject
				r.latest = res.Date
			}
		}
	}
}

// filterCharts applies the level range, type prefix and duration allow-list.
// Charts without a parsed level pass only while no chart filter is active:
// they are queryable, just excluded by any explicit range.
func (p *pipeline) filterCharts() {
	f := p.filter
	active := f.ChartType != "" || f.Durations != nil ||
		f.LevelMin > model.ChartLevelMin || f.LevelMax < model.ChartLevelMax
	if !active {
		return
	}

	allowed := map[string]bool{}
	for _, d := range f.Durations {
		allowed[d] = true
	}

	p.keep(func(r *row) bool {
		c := r.chart
		if f.Durations != nil && !allowed[c.Duration] {
			return false
		}
		if c.ChartLevel == "" || c.ChartLevelNum < f.LevelMin || c.ChartLevelNum > f.LevelMax {
			return false
		}
		return f.ChartType == "" || strings.HasPrefix(c.ChartType, f.ChartType)
	})
}

// filterPlayers keeps charts whose visible nicknames contain every "all of"
// name, at least one "any of" name, and none of the "none of" names.
func (p *pipeline) filterPlayers() {
	f := p.filter
	if len(f.Players) == 0 && len(f.PlayersOr) == 0 && len(f.PlayersNot) == 0 {
		return
	}
	p.keep(func(r *row) bool {
		names := map[string]bool{}
		for _, res := range r.visible {
			names[res.Nickname] = true
		}
		for _, n := range f.Players {
			if !names[n] {
				return false
			}
		}
		if len(f.PlayersOr) > 0 {
			any := false
			for _, n := range f.PlayersOr {
				if names[n] {
					any = true
					break
				}
			}
			if !any {
				return false
			}
		}
		for _, n := range f.PlayersNot {
			if names[n] {
				return false
			}
		}
		return true
	})
}

func (p *pipeline) pruneEmpty() {
	p.keep(func(r *row) bool { return len(r.visible) > 0 })
}

// sortRows applies the selected sort strategy. Protagonist-dependent modes
// degrade to the default recency sort when no protagonist is set.
func (p *pipeline) sortRows() {
	mode := p.filter.Sort
	protagonist := p.filter.Protagonist
	if protagonist == "" {
		switch mode {
		case model.SortNewScoresPlayer, model.SortProtagonist, model.SortPPAsc, model.SortPPDesc:
			mode = model.SortDefault
		}
	}

	switch mode {
	case model.SortNewScoresPlayer:
		p.sortDescBy(func(r *row) float64 {
			var latest float64
			for _, res := range r.visible {
				if res.Nickname == protagonist {
					latest = math.Max(latest, float64(res.DateObject.UnixNano()))
				}
			}
			return latest
		})

	case model.SortProtagonist:
		p.keep(func(r *row) bool { return r.protagonistIndex(protagonist) >= 0 })
		distances := make(map[*row]float64, len(p.rows))
		for _, r := range p.rows {
			distances[r] = r.protagonistDistance(protagonist, p.filter.ExcludeAntagonists)
		}
		p.sortDescBy(func(r *row) float64 { return distances[r] })

	case model.SortPPAsc, model.SortPPDesc:
		p.keep(func(r *row) bool { return r.protagonistIndex(protagonist) >= 0 })
		key := func(r *row) float64 {
			res := r.visible[r.protagonistIndex(protagonist)]
			info, ok := p.pp[res.ID]
			if !ok {
				if mode == model.SortPPAsc {
					return math.Inf(1)
				}
				return math.Inf(-1)
			}
			return info.PPRatio
		}
		if mode == model.SortPPAsc {
			p.sortAscBy(key)
		} else {
			p.sortDescBy(key)
		}

	case model.SortEasiestSongs:
		p.sortAscBy((*row).difficulty)
	case model.SortHardestSongs:
		p.sortDescBy((*row).difficulty)

	default:
		p.sortDescBy(func(r *row) float64 {
			var latest float64
			for _, res := range r.visible {
				if p.filter.ShowHiddenPlayers || !p.hidden[res.PlayerID] {
					latest = math.Max(latest, float64(res.DateObject.UnixNano()))
				}
			}
			return latest
		})
	}
}

// searchSong re-ranks by fuzzy match quality against the song title; match
// quality takes precedence over the sort order established before.
func (p *pipeline) searchSong() {
	pattern := strings.TrimSpace(p.filter.SongQuery)
	if pattern == "" {
		return
	}
	matches := fuzzy.FindFrom(pattern, songSource(p.rows))
	ranked := make([]*row, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, p.rows[m.Index])
	}
	p.rows = ranked
}

type songSource []*row

func (s songSource) String(i int) string { return s[i].chart.Song }
func (s songSource) Len() int            { return len(s) }

func (p *pipeline) keep(pred func(*row) bool) {
	kept := p.rows[:0:0]
	for _, r := range p.rows {
		if pred(r) {
			kept = append(kept, r)
		}
	}
	p.rows = kept
}

func (p *pipeline) sortDescBy(key func(*row) float64) {
	sort.SliceStable(p.rows, func(i, j int) bool { return key(p.rows[i]) > key(p.rows[j]) })
}

func (p *pipeline) sortAscBy(key func(*row) float64) {
	sort.SliceStable(p.rows, func(i, j int) bool { return key(p.rows[i]) < key(p.rows[j]) })
}

// protagonistIndex returns the position of the protagonist's first visible
// result, or -1.
func (r *row) protagonistIndex(nickname string) int {
	for i, res := range r.visible {
		if res.Nickname == nickname {
			return i
		}
	}
	return -1
}

// protagonistDistance is the Euclidean norm over the distinct players ranked
// above the protagonist of (enemyScore/protagonistScore - 0.99). Excluded
// antagonists and exact score ties do not contribute.
func (r *row) protagonistDistance(nickname string, exclude []string) float64 {
	idx := r.protagonistIndex(nickname)
	if idx < 0 {
		return 0
	}
	protScore := float64(r.visible[idx].Score)

	excluded := map[string]bool{}
	for _, n := range exclude {
		excluded[n] = true
	}

	var sum float64
	seen := map[string]bool{}
	for _, enemy := range r.visible[:idx] {
		if seen[enemy.Nickname] {
			continue
		}
		seen[enemy.Nickname] = true
		if excluded[enemy.Nickname] || float64(enemy.Score) == protScore {
			continue
		}
		d := float64(enemy.Score)/protScore - 0.99
		sum += d * d
	}
	return math.Sqrt(sum)
}

// difficulty is the externally interpolated difficulty, falling back to the
// numeric chart level.
func (r *row) difficulty() float64 {
	if r.chart.InterpolatedDifficulty > 0 {
		return r.chart.InterpolatedDifficulty
	}
	return float64(r.chart.ChartLevelNum)
}
