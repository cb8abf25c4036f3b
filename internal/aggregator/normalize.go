package aggregator

import (
	"math"
	"strings"
	"unicode"

	"github.com/apetrov-dev/piutop/internal/model"
)

// gradeBonus is the flat score bonus the game awards on top of the raw step
// score for high grades. Removed to obtain ScoreRaw.
var gradeBonus = map[model.Grade]int{
	model.GradeSSS: 300000,
	model.GradeSS:  150000,
	model.GradeS:   100000,
}

func scoreWithoutBonus(score int, grade model.Grade) int {
	return score - gradeBonus[grade]
}

// labelToTypeLevel splits a chart label into its leading non-digit run and
// the following digit run: "S17" → ("S", "17"), "COOP2" → ("COOP", "2").
// An absent label yields two empty strings.
func labelToTypeLevel(label string) (chartType, chartLevel string) {
	if label == "" {
		return "", ""
	}
	var runs []string
	start := 0
	digits := unicode.IsDigit(rune(label[0]))
	for i, r := range label {
		if unicode.IsDigit(r) != digits {
			runs = append(runs, label[start:i])
			start = i
			digits = unicode.IsDigit(r)
		}
	}
	runs = append(runs, label[start:])
	chartType = runs[0]
	if len(runs) > 1 {
		chartLevel = runs[1]
	}
	return chartType, chartLevel
}

// guessGrade repairs the unknown-grade sentinel on legacy records: a clean
// pass with zero greats is an SSS, a clean pass with greats is an SS. The
// guess needs the miss/bad/good counts to actually be present and zero.
func guessGrade(raw model.RawResult) model.Grade {
	if intZero(raw.Miss) && intZero(raw.Bad) && intZero(raw.Good) {
		if intZero(raw.Great) {
			return model.GradeSSS
		}
		return model.GradeSS
	}
	return raw.Grade
}

func intZero(v *int) bool { return v != nil && *v == 0 }

// fixIncompleteCounts back-fills a single missing hit-count field from the
// chart's total step count. With zero or more than one field missing there is
// nothing to safely infer.
func fixIncompleteCounts(counts [5]*int, maxTotalSteps int) [5]*int {
	if maxTotalSteps == 0 {
		return counts
	}
	missing, sum := -1, 0
	for i, c := range counts {
		if c == nil {
			if missing >= 0 {
				return counts
			}
			missing = i
		} else {
			sum += *c
		}
	}
	if missing >= 0 {
		fixed := maxTotalSteps - sum
		counts[missing] = &fixed
	}
	return counts
}

func countOrZero(v *int) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}

// computeAccuracy derives the 0–100 accuracy from hit counts. Perfects are
// weighted by their square root so long charts do not trivially saturate the
// scale. Two-decimal truncation, clamped at 0; forced to exactly 100 when the
// unweighted accuracy is a clean 100. Returns nil when perfects are absent.
func computeAccuracy(perfect, great, good, bad, miss *int) *float64 {
	if perfect == nil || *perfect <= 0 {
		return nil
	}
	p := math.Sqrt(float64(*perfect)) * 10
	g, gd, b, m := countOrZero(great), countOrZero(good), countOrZero(bad), countOrZero(miss)

	acc := truncate2((p*100 + g*85 + gd*60 + b*20 + m*-25) / (p + g + gd + b + m))
	if acc < 0 {
		acc = 0
	}

	pRaw := float64(*perfect)
	accRaw := truncate2((pRaw*100 + g*85 + gd*60 + b*20 + m*-25) / (pRaw + g + gd + b + m))
	if accRaw == 100 {
		acc = 100
	}
	return &acc
}

func truncate2(v float64) float64 {
	return math.Floor(v*100) / 100
}

// maxRawScore infers the highest achievable raw score on a chart from one
// result's raw score and accuracy. Rank-mode scores carry a 1.2 multiplier
// that has to come off first.
func maxRawScore(res *model.Result) float64 {
	div := 1.0
	if res.IsRank {
		div = 1.2
	}
	return float64(res.ScoreRaw) / *res.Accuracy * 100 / div
}

// Normalize converts one raw feed record into a canonical Result. Returns nil
// when the record's player is absent from the directory: untracked-machine
// noise, skipped rather than reported.
//
// Records without recognition notes are the minimal legacy shape: identity,
// score and date only, always flagged intermediate so they seed battle
// generation but never profiles.
func Normalize(raw model.RawResult, players map[int]model.Player, chart *model.ChartAggregate, chartID string) *model.Result {
	player, ok := players[raw.PlayerID]
	if !ok {
		return nil
	}

	grade := raw.Grade
	if grade == model.GradeUnknown {
		grade = guessGrade(raw)
	}
	sharedChartID := raw.SharedChartID
	if sharedChartID == "" {
		sharedChartID = chartID
	}

	res := &model.Result{
		ID:              raw.ID,
		SharedChartID:   sharedChartID,
		PlayerID:        raw.PlayerID,
		Nickname:        player.Nickname,
		ArcadeName:      player.ArcadeName,
		IsUnknownPlayer: player.ArcadeName == model.UnknownPlayerArcadeName,
		Score:           raw.Score,
		ScoreRaw:        scoreWithoutBonus(raw.Score, grade),
		Grade:           grade,
		Date:            raw.Gained,
		DateObject:      model.ParseDate(raw.Gained),
		IsExactDate:     raw.ExactGainDate,
		IsRank:          raw.RankMode,
	}

	if raw.RecognitionNotes == nil {
		res.IsIntermediateResult = true
		return res
	}

	res.Mods = raw.Mods
	res.Combo = raw.Combo
	res.Calories = raw.Calories / 1000
	res.IsHJ = strings.Contains(raw.Mods, "HJ")
	res.IsMyBest = *raw.RecognitionNotes == "personal_best"
	res.IsMachineBest = *raw.RecognitionNotes == "machine_best"
	res.OriginalMix = raw.OriginalMix
	res.OriginalLabel = raw.OriginalLabel
	res.OriginalScore = raw.OriginalScore

	counts := fixIncompleteCounts(
		[5]*int{raw.Perfect, raw.Great, raw.Good, raw.Bad, raw.Miss},
		chart.MaxTotalSteps,
	)
	res.Perfect, res.Great, res.Good, res.Bad, res.Miss = counts[0], counts[1], counts[2], counts[3], counts[4]
	res.Accuracy = computeAccuracy(res.Perfect, res.Great, res.Good, res.Bad, res.Miss)

	return res
}
