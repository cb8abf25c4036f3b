package model

import (
	"fmt"
	"time"
)

// UnknownPlayerArcadeName is the placeholder arcade profile used by machines
// that submit scores without a recognized player card.
const UnknownPlayerArcadeName = "PUMPITUP"

// Grade is a result grade as reported by the game ("?" when unknown).
type Grade string

const (
	GradeUnknown Grade = "?"
	GradeF       Grade = "F"
	GradeD       Grade = "D"
	GradeDPlus   Grade = "D+"
	GradeC       Grade = "C"
	GradeCPlus   Grade = "C+"
	GradeB       Grade = "B"
	GradeBPlus   Grade = "B+"
	GradeA       Grade = "A"
	GradeAPlus   Grade = "A+"
	GradeS       Grade = "S"
	GradeSS      Grade = "SS"
	GradeSSS     Grade = "SSS"
)

var gradeRank = map[Grade]int{
	GradeUnknown: 0,
	GradeF:       1,
	GradeD:       2,
	GradeDPlus:   3,
	GradeC:       4,
	GradeCPlus:   5,
	GradeB:       6,
	GradeBPlus:   7,
	GradeA:       8,
	GradeAPlus:   9,
	GradeS:       10,
	GradeSS:      11,
	GradeSSS:     12,
}

// Rank returns the ordering position of the grade: ? < F < D < D+ < ... < SSS.
// Unrecognized grades sort lowest.
func (g Grade) Rank() int { return gradeRank[g] }

// Base strips the "+" modifier: A+ and A share a histogram bucket.
func (g Grade) Base() Grade {
	if n := len(g); n > 0 && g[n-1] == '+' {
		return g[:n-1]
	}
	return g
}

// BaseGrades lists histogram buckets in ascending order.
var BaseGrades = []Grade{GradeF, GradeD, GradeC, GradeB, GradeA, GradeS, GradeSS, GradeSSS}

// Player is one entry of the player directory. Owned by the directory; the
// engine only reads it.
type Player struct {
	ID         int
	Nickname   string
	ArcadeName string
	Region     string
}

// RawResult is a result record as received from the feed. Hit counts are
// pointers: the feed omits fields it does not know.
type RawResult struct {
	ID            int64   `json:"id"`
	PlayerID      int     `json:"player"`
	SharedChartID string  `json:"shared_chart,omitempty"`
	Score         int     `json:"score"`
	Grade         Grade   `json:"grade"`
	ScoreIncrease int     `json:"score_increase,omitempty"`
	Calories      float64 `json:"calories,omitempty"`

	Perfect *int `json:"perfects,omitempty"`
	Great   *int `json:"greats,omitempty"`
	Good    *int `json:"goods,omitempty"`
	Bad     *int `json:"bads,omitempty"`
	Miss    *int `json:"misses,omitempty"`
	Combo   *int `json:"max_combo,omitempty"`

	Mods     string `json:"mods_list,omitempty"`
	RankMode bool   `json:"rank_mode,omitempty"`

	Gained        string `json:"gained"`
	ExactGainDate bool   `json:"exact_gain_date,omitempty"`

	// nil means a minimal record (identity and score only, feeds battle
	// generation); "" / "personal_best" / "machine_best" mean a full record.
	RecognitionNotes *string `json:"recognition_notes,omitempty"`

	OriginalMix   string `json:"original_mix,omitempty"`
	OriginalLabel string `json:"original_label,omitempty"`
	OriginalScore int    `json:"original_score,omitempty"`
}

// Result is the normalized, immutable form of a RawResult.
type Result struct {
	ID            int64
	SharedChartID string
	PlayerID      int
	Nickname      string
	ArcadeName    string

	Score    int
	ScoreRaw int
	// Accuracy is in [0, 100]; nil when not computable from the hit counts.
	Accuracy *float64
	Grade    Grade

	Perfect *int
	Great   *int
	Good    *int
	Bad     *int
	Miss    *int
	Combo   *int

	Mods     string
	Calories float64

	Date       string
	DateObject time.Time

	IsExactDate          bool
	IsRank               bool
	IsHJ                 bool
	IsMyBest             bool
	IsMachineBest        bool
	IsUnknownPlayer      bool
	IsIntermediateResult bool
	IsBestGradeOnChart   bool

	// BestGradeResult points to the same player's best-graded attempt on the
	// chart when it differs from this (the current best) result.
	BestGradeResult *Result

	OriginalMix   string
	OriginalLabel string
	OriginalScore int
}

// ResultKey identifies the per-chart current-best slot a result competes for.
type ResultKey struct {
	SharedChartID string
	PlayerID      int
	IsRank        bool
}

// Key returns the current-best slot of the result.
func (r *Result) Key() ResultKey {
	return ResultKey{SharedChartID: r.SharedChartID, PlayerID: r.PlayerID, IsRank: r.IsRank}
}

// ChartAggregate is the aggregated leaderboard state of one shared chart.
// Mutated only by the aggregator while folding results; immutable afterwards.
type ChartAggregate struct {
	SharedChartID string
	Song          string
	ChartLabel    string
	// ChartType and ChartLevel parse from the label ("S17" → "S", "17").
	// Both are empty when the label is absent.
	ChartType     string
	ChartLevel    string
	ChartLevelNum int
	Duration      string
	MaxTotalSteps int

	// MaxScore is the highest raw achievable score inferred from best
	// non-rank results. Only ever increases. 0 until first inferred.
	MaxScore float64

	// InterpolatedDifficulty is externally supplied; 0 means absent.
	InterpolatedDifficulty float64

	// Results holds the current best per (player, rank mode), strictly
	// descending by score. PreviousResults holds superseded attempts,
	// most recent first.
	Results         []*Result
	PreviousResults []*Result

	// EachResultID records every folded result id, used to count total
	// attempts independent of visibility filtering.
	EachResultID []int64

	LatestScoreDate string
}

// Battle pairs an incoming result against an incumbent on the same chart.
// Consumed by the rating model only.
type Battle struct {
	Incoming  *Result
	Incumbent *Result
	Chart     *ChartAggregate
}

// ResultOnChart ties a best result to its chart for profile indexes.
type ResultOnChart struct {
	Result *Result
	Chart  *ChartAggregate
}

// RatingPoint is one entry of a profile's rating history.
type RatingPoint struct {
	Date   time.Time `json:"date"`
	Rating float64   `json:"rating"`
}

// AchievementState tracks one achievement's progress for a player.
type AchievementState struct {
	Unlocked bool    `json:"unlocked"`
	Progress float64 `json:"progress"`
}

// Profile is the running statistical profile of one player. Created lazily on
// the first qualifying best result; replaced wholesale on full re-aggregation.
type Profile struct {
	ID         int
	Nickname   string
	ArcadeName string
	Region     string

	Count       int
	CountAcc    int
	SumAccuracy float64
	Grades      map[Grade]int
	Exp         float64

	// Per-chart best results indexed by grade and by level (1..28).
	// Cooperative charts are excluded from both.
	ResultsByGrade map[Grade][]ResultOnChart
	ResultsByLevel map[int][]ResultOnChart

	FirstResultDate time.Time
	LastResultDate  time.Time

	Achievements map[string]AchievementState

	// Owned by the rating model; preserved across engine-side merges.
	Rating         float64
	RatingHistory  []RatingPoint
	BattleCount    int
	LastBattleDate time.Time
}

// ResultPP is the rating model's per-result performance estimate.
type ResultPP struct {
	PP      float64
	PPRatio float64
}

// RankFilter selects which results stay visible in a query.
type RankFilter int

const (
	ShowAll RankFilter = iota
	ShowBest
	ShowOnlyRank
	ShowOnlyNoRank
)

func (f RankFilter) String() string {
	switch f {
	case ShowBest:
		return "best"
	case ShowOnlyRank:
		return "rank"
	case ShowOnlyNoRank:
		return "norank"
	default:
		return "all"
	}
}

// ParseRankFilter is the inverse of String. Unknown values are an error.
func ParseRankFilter(s string) (RankFilter, error) {
	switch s {
	case "all", "":
		return ShowAll, nil
	case "best":
		return ShowBest, nil
	case "rank":
		return ShowOnlyRank, nil
	case "norank":
		return ShowOnlyNoRank, nil
	}
	return ShowAll, fmt.Errorf("unknown rank filter %q (all, best, rank, norank)", s)
}

// SortMode selects the query engine's sort strategy.
type SortMode int

const (
	SortDefault SortMode = iota
	SortNewScoresPlayer
	SortProtagonist
	SortPPAsc
	SortPPDesc
	SortEasiestSongs
	SortHardestSongs
)

func (s SortMode) String() string {
	switch s {
	case SortNewScoresPlayer:
		return "new-scores"
	case SortProtagonist:
		return "protagonist"
	case SortPPAsc:
		return "pp-asc"
	case SortPPDesc:
		return "pp-desc"
	case SortEasiestSongs:
		return "easiest"
	case SortHardestSongs:
		return "hardest"
	default:
		return "default"
	}
}

// ParseSortMode is the inverse of String. Unknown values are an error.
func ParseSortMode(s string) (SortMode, error) {
	switch s {
	case "default", "":
		return SortDefault, nil
	case "new-scores":
		return SortNewScoresPlayer, nil
	case "protagonist":
		return SortProtagonist, nil
	case "pp-asc":
		return SortPPAsc, nil
	case "pp-desc":
		return SortPPDesc, nil
	case "easiest":
		return SortEasiestSongs, nil
	case "hardest":
		return SortHardestSongs, nil
	}
	return SortDefault, fmt.Errorf("unknown sort mode %q (default, new-scores, protagonist, pp-asc, pp-desc, easiest, hardest)", s)
}

// ChartLevelMin and ChartLevelMax bound the chart level range filter.
const (
	ChartLevelMin = 1
	ChartLevelMax = 28
)

// FilterSpec is the query configuration for one leaderboard view.
type FilterSpec struct {
	LevelMin int `toml:"level_min"`
	LevelMax int `toml:"level_max"`
	// ChartType filters by label prefix ("S", "D", "COOP"); empty keeps all.
	ChartType string `toml:"chart_type,omitempty"`
	// Durations is an allow-list; nil keeps all.
	Durations []string `toml:"durations,omitempty"`

	Players    []string `toml:"players,omitempty"`
	PlayersOr  []string `toml:"players_or,omitempty"`
	PlayersNot []string `toml:"players_not,omitempty"`

	Rank RankFilter `toml:"rank,omitempty"`
	Sort SortMode   `toml:"sort,omitempty"`

	Protagonist        string   `toml:"protagonist,omitempty"`
	ExcludeAntagonists []string `toml:"exclude_antagonists,omitempty"`

	SongQuery string `toml:"song,omitempty"`

	ShowHiddenPlayers bool `toml:"show_hidden_players,omitempty"`
}

// DefaultFilter keeps every chart and result visible.
func DefaultFilter() FilterSpec {
	return FilterSpec{LevelMin: ChartLevelMin, LevelMax: ChartLevelMax}
}

/// Snapshot is the serializable aggregate state: everything needed to resume
// incremental merging without re-reading raw history.
type Snapshot struct {
	Charts        map[string]*ChartAggregate
	Profiles      map[int]*Profile
	ResultPP      map[int64]ResultPP
	LastUpdatedOn string
}
