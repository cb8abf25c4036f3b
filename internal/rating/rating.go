// Package rating is the skill-rating collaborator of the aggregation engine.
// It consumes the battle list and profile set the engine produces and hands
// back Elo ratings with history plus a per-result performance-point estimate
// used by the PP sort modes. It owns only the rating fields of a profile;
// everything else belongs to the engine and is left untouched.
package rating

import (
	"math"
	"time"

	"github.com/apetrov-dev/piutop/internal/model"
)

const (
	// InitialRating is the rating a player starts battles with.
	InitialRating = 1000
	// spread is the Elo curve width: 400 points ≈ 10x win odds.
	spread = 400
)

// kFactor shrinks as a player accumulates battles, settling their rating.
func kFactor(battleCount int) float64 {
	switch {
	case battleCount < 100:
		return 40
	case battleCount < 500:
		return 20
	default:
		return 10
	}
}

func expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/spread))
}

// Apply runs the rating model over one aggregation pass. Battles must arrive
// in the engine's chronological order. Profiles are mutated in place; the
// per-result performance map is returned.
func Apply(charts map[string]*model.ChartAggregate, profiles map[int]*model.Profile, battles []model.Battle) map[int64]model.ResultPP {
	// Ratings replay the full battle list every pass; whatever a profile
	// carried before holds no weight here.
	for _, p := range profiles {
		p.Rating = InitialRating
		p.RatingHistory = nil
		p.BattleCount = 0
		p.LastBattleDate = time.Time{}
	}

	for _, b := range battles {
		incoming, ok := profiles[b.Incoming.PlayerID]
		if !ok {
			continue
		}
		incumbent, ok := profiles[b.Incumbent.PlayerID]
		if !ok {
			continue
		}

		score := 0.5
		switch {
		case b.Incoming.Score > b.Incumbent.Score:
			score = 1
		case b.Incoming.Score < b.Incumbent.Score:
			score = 0
		}

		exp := expected(incoming.Rating, incumbent.Rating)
		deltaIn := kFactor(incoming.BattleCount) * (score - exp)
		deltaOut := kFactor(incumbent.BattleCount) * ((1 - score) - (1 - exp))
		incoming.Rating += deltaIn
		incumbent.Rating += deltaOut

		incoming.BattleCount++
		incumbent.BattleCount++
		date := b.Incoming.DateObject
		if incoming.LastBattleDate.Before(date) {
			incoming.LastBattleDate = date
		}
		if incumbent.LastBattleDate.Before(date) {
			incumbent.LastBattleDate = date
		}
		incoming.RatingHistory = append(incoming.RatingHistory, model.RatingPoint{Date: date, Rating: incoming.Rating})
	}

	return resultPerformance(charts)
}

// resultPerformance estimates performance points for every current best on
// every chart with a known max score. The ratio is how close the raw score
// came to the chart's inferred ceiling; points scale it by squared level so
// high charts dominate.
func resultPerformance(charts map[string]*model.ChartAggregate) map[int64]model.ResultPP {
	pp := make(map[int64]model.ResultPP)
	for _, chart := range charts {
		if chart.MaxScore <= 0 || chart.ChartLevelNum <= 0 {
			continue
		}
		for _, res := range chart.Results {
			if res.IsIntermediateResult || res.IsUnknownPlayer || res.ScoreRaw <= 0 {
				continue
			}
			ratio := float64(res.ScoreRaw) / chart.MaxScore
			if ratio > 1 {
				ratio = 1
			}
			pp[res.ID] = model.ResultPP{
				PP:      float64(chart.ChartLevelNum*chart.ChartLevelNum) * ratio,
				PPRatio: ratio,
			}
		}
	}
	return pp
}
