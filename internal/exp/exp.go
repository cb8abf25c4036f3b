// Package exp converts folded best results into player experience and maps
// accumulated experience onto the rank ladder.
package exp

import "github.com/apetrov-dev/piutop/internal/model"

// gradeFactor scales chart exp by the grade achieved on it. Unknown grades
// earn the floor: the result happened, but nothing is known about its quality.
var gradeFactor = map[model.Grade]float64{
	model.GradeSSS:   1.4,
	model.GradeSS:    1.3,
	model.GradeS:     1.2,
	model.GradeAPlus: 1.1,
	model.GradeA:     1.0,
	model.GradeBPlus: 0.95,
	model.GradeB:     0.9,
	model.GradeCPlus: 0.85,
	model.GradeC:     0.8,
	model.GradeDPlus: 0.75,
	model.GradeD:     0.7,
	model.GradeF:     0.5,
}

// ForResult returns the experience a best result is worth. Higher chart level
// and better grade yield more; charts without a parsed level yield none.
// Repeat attempts never reach this function: the aggregator folds at most one
// current best per (player, chart, mode).
func ForResult(res *model.Result, chart *model.ChartAggregate) float64 {
	level := chart.ChartLevelNum
	if level <= 0 {
		return 0
	}
	factor, ok := gradeFactor[res.Grade]
	if !ok {
		factor = 0.5
	}
	return float64(level*level) * factor
}

// Rank is one step of the player rank ladder.
type Rank struct {
	Title     string
	Threshold float64
}

// Ranks lists the ladder in ascending threshold order.
var Ranks = []Rank{
	{Title: "Newcomer", Threshold: 0},
	{Title: "Novice", Threshold: 500},
	{Title: "Regular", Threshold: 2000},
	{Title: "Advanced", Threshold: 6000},
	{Title: "Expert", Threshold: 15000},
	{Title: "Master", Threshold: 35000},
	{Title: "Grandmaster", Threshold: 75000},
	{Title: "Legend", Threshold: 150000},
}

// ForExp returns the highest rank whose threshold the experience reaches.
func ForExp(total float64) Rank {
	rank := Ranks[0]
	for _, r := range Ranks {
		if total >= r.Threshold {
			rank = r
		}
	}
	return rank
}
