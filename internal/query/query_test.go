package query

import (
	"testing"

	"github.com/apetrov-dev/piutop/internal/model"
)

func testResult(id int64, playerID int, nickname string, score int, date string) *model.Result {
	return &model.Result{
		ID: id, PlayerID: playerID, Nickname: nickname, Score: score,
		Date: date, DateObject: model.ParseDate(date),
	}
}

func testChart(id, song, chartType string, level int, results ...*model.Result) *model.ChartAggregate {
	return &model.ChartAggregate{
		SharedChartID: id,
		Song:          song,
		ChartType:     chartType,
		ChartLevel:    "x", // set whenever a level is known
		ChartLevelNum: level,
		Results:       results,
	}
}

func chartIDs(charts []*model.ChartAggregate) []string {
	ids := make([]string, len(charts))
	for i, c := range charts {
		ids[i] = c.SharedChartID
	}
	return ids
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRankVisibility(t *testing.T) {
	rank := testResult(1, 1, "ann", 990000, "2024-01-04")
	rank.IsRank = true
	charts := map[string]*model.ChartAggregate{
		"c1": testChart("c1", "Song", "S", 15,
			rank,
			testResult(2, 1, "ann", 980000, "2024-01-03"),
			testResult(3, 2, "bob", 970000, "2024-01-02"),
		),
	}

	cases := []struct {
		filter model.RankFilter
		want   []int64
	}{
		{model.ShowAll, []int64{1, 2, 3}},
		{model.ShowOnlyRank, []int64{1}},
		{model.ShowOnlyNoRank, []int64{2, 3}},
		{model.ShowBest, []int64{1, 3}},
	}
	for _, c := range cases {
		spec := model.DefaultFilter()
		spec.Rank = c.filter
		out := Run(charts, spec, nil, nil)
		if len(out) != 1 {
			t.Fatalf("%v: got %d charts, want 1", c.filter, len(out))
		}
		got := make([]int64, len(out[0].Results))
		for i, r := range out[0].Results {
			got[i] = r.ID
		}
		if len(got) != len(c.want) {
			t.Fatalf("%v: visible ids %v, want %v", c.filter, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%v: visible ids %v, want %v", c.filter, got, c.want)
			}
		}
	}
}

func TestUnknownPlayerVisibleOnlyOnTop(t *testing.T) {
	top := testResult(1, 9, "cat", 999999, "2024-01-01")
	top.IsUnknownPlayer = true
	buried := testResult(3, 9, "cat", 950000, "2024-01-01")
	buried.IsUnknownPlayer = true
	charts := map[string]*model.ChartAggregate{
		"c1": testChart("c1", "Song", "S", 15,
			top,
			testResult(2, 1, "ann", 980000, "2024-01-03"),
			buried,
		),
	}

	out := Run(charts, model.DefaultFilter(), nil, nil)
	if len(out[0].Results) != 2 {
		t.Fatalf("got %d visible results, want 2", len(out[0].Results))
	}
	if out[0].Results[0].ID != 1 {
		t.Error("unknown player on top must stay visible")
	}
	// The projected latest date only counts visible results.
	if out[0].LatestScoreDate != "2024-01-03" {
		t.Errorf("latest score date = %q, want 2024-01-03", out[0].LatestScoreDate)
	}
}

func TestChartRangeAndTypeFilter(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"a": testChart("a", "Nine", "S", 9, testResult(1, 1, "ann", 1, "2024-01-01")),
		"b": testChart("b", "Twelve", "S", 12, testResult(2, 1, "ann", 1, "2024-01-01")),
		"c": testChart("c", "Twenty", "D", 20, testResult(3, 1, "ann", 1, "2024-01-01")),
	}
	unlabeled := testChart("d", "Mystery", "", 0, testResult(4, 1, "ann", 1, "2024-01-01"))
	unlabeled.ChartLevel = ""
	charts["d"] = unlabeled

	// No chart filter active: everything passes, unlabeled included.
	out := Run(charts, model.DefaultFilter(), nil, nil)
	if len(out) != 4 {
		t.Fatalf("default filter kept %d charts, want 4", len(out))
	}

	spec := model.DefaultFilter()
	spec.LevelMin, spec.LevelMax = 10, 19
	out = Run(charts, spec, nil, nil)
	if !equalIDs(chartIDs(out), "b") {
		t.Errorf("level 10..19 kept %v, want [b]", chartIDs(out))
	}

	spec = model.DefaultFilter()
	spec.ChartType = "S"
	out = Run(charts, spec, nil, nil)
	if len(out) != 2 {
		t.Errorf("type S kept %v, want the two singles charts", chartIDs(out))
	}
}

func TestPlayerSetFilters(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"a": testChart("a", "Both", "S", 10,
			testResult(1, 1, "ann", 2, "2024-01-01"),
			testResult(2, 2, "bob", 1, "2024-01-01"),
		),
		"b": testChart("b", "AnnOnly", "S", 10,
			testResult(3, 1, "ann", 1, "2024-01-01"),
		),
	}

	spec := model.DefaultFilter()
	spec.Players = []string{"ann", "bob"}
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "a") {
		t.Errorf("all-of filter kept %v, want [a]", chartIDs(out))
	}

	spec = model.DefaultFilter()
	spec.PlayersOr = []string{"bob", "zoe"}
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "a") {
		t.Errorf("any-of filter kept %v, want [a]", chartIDs(out))
	}

	spec = model.DefaultFilter()
	spec.PlayersNot = []string{"bob"}
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "b") {
		t.Errorf("none-of filter kept %v, want [b]", chartIDs(out))
	}
}

func TestEmptyChartsPruned(t *testing.T) {
	rankOnly := testResult(1, 1, "ann", 990000, "2024-01-01")
	rankOnly.IsRank = true
	charts := map[string]*model.ChartAggregate{
		"a": testChart("a", "RankOnly", "S", 10, rankOnly),
		"b": testChart("b", "Normal", "S", 10, testResult(2, 2, "bob", 1, "2024-01-01")),
	}
	spec := model.DefaultFilter()
	spec.Rank = model.ShowOnlyNoRank
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "b") {
		t.Errorf("kept %v, want [b] after pruning emptied charts", chartIDs(out))
	}
}

func TestDefaultSortRecencyAndHiddenPlayers(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"old": testChart("old", "Old", "S", 10, testResult(1, 1, "ann", 1, "2024-01-01")),
		"new": testChart("new", "New", "S", 10, testResult(2, 2, "bob", 1, "2024-06-01")),
	}

	out := Run(charts, model.DefaultFilter(), nil, nil)
	if !equalIDs(chartIDs(out), "new", "old") {
		t.Errorf("default sort order %v, want [new old]", chartIDs(out))
	}

	// Bob hidden: his recency stops counting and "new" sinks.
	hidden := map[int]bool{2: true}
	out = Run(charts, model.DefaultFilter(), hidden, nil)
	if !equalIDs(chartIDs(out), "old", "new") {
		t.Errorf("hidden-player sort order %v, want [old new]", chartIDs(out))
	}

	spec := model.DefaultFilter()
	spec.ShowHiddenPlayers = true
	out = Run(charts, spec, hidden, nil)
	if !equalIDs(chartIDs(out), "new", "old") {
		t.Errorf("show-hidden sort order %v, want [new old]", chartIDs(out))
	}
}

func TestProtagonistSort(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"close": testChart("close", "Close", "S", 10,
			testResult(1, 2, "bob", 950000, "2024-01-01"),
			testResult(2, 1, "ann", 900000, "2024-01-01"),
		),
		"far": testChart("far", "Far", "S", 10,
			testResult(3, 2, "bob", 990000, "2024-01-01"),
			testResult(4, 3, "zoe", 980000, "2024-01-01"),
			testResult(5, 1, "ann", 900000, "2024-01-01"),
		),
		"absent": testChart("absent", "Absent", "S", 10,
			testResult(6, 2, "bob", 1, "2024-01-01"),
		),
	}

	spec := model.DefaultFilter()
	spec.Sort = model.SortProtagonist
	spec.Protagonist = "ann"
	out := Run(charts, spec, nil, nil)

	// Charts without the protagonist drop out; more and stronger enemies
	// above her mean a larger distance and an earlier position.
	if !equalIDs(chartIDs(out), "far", "close") {
		t.Fatalf("protagonist sort order %v, want [far close]", chartIDs(out))
	}

	// Excluding the antagonists shrinks the distance.
	spec.ExcludeAntagonists = []string{"bob", "zoe"}
	out = Run(charts, spec, nil, nil)
	if !equalIDs(chartIDs(out), "close", "far") {
		t.Fatalf("exclusion sort order %v, want [close far]", chartIDs(out))
	}
}

func TestProtagonistlessSortsDegrade(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"old": testChart("old", "Old", "S", 10, testResult(1, 1, "ann", 1, "2024-01-01")),
		"new": testChart("new", "New", "S", 10, testResult(2, 2, "bob", 1, "2024-06-01")),
	}
	for _, mode := range []model.SortMode{model.SortProtagonist, model.SortPPAsc, model.SortPPDesc, model.SortNewScoresPlayer} {
		spec := model.DefaultFilter()
		spec.Sort = mode
		out := Run(charts, spec, nil, nil)
		if !equalIDs(chartIDs(out), "new", "old") {
			t.Errorf("%v without protagonist: order %v, want default [new old]", mode, chartIDs(out))
		}
	}
}

func TestPPSort(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"hi": testChart("hi", "High", "S", 10, testResult(1, 1, "ann", 1, "2024-01-01")),
		"lo": testChart("lo", "Low", "S", 10, testResult(2, 1, "ann", 1, "2024-01-01")),
		"na": testChart("na", "NoPP", "S", 10, testResult(3, 1, "ann", 1, "2024-01-01")),
	}
	pp := map[int64]model.ResultPP{
		1: {PP: 90, PPRatio: 0.9},
		2: {PP: 40, PPRatio: 0.4},
	}

	spec := model.DefaultFilter()
	spec.Protagonist = "ann"
	spec.Sort = model.SortPPAsc
	if out := Run(charts, spec, nil, pp); !equalIDs(chartIDs(out), "lo", "hi", "na") {
		t.Errorf("pp-asc order %v, want [lo hi na]", chartIDs(out))
	}

	spec.Sort = model.SortPPDesc
	if out := Run(charts, spec, nil, pp); !equalIDs(chartIDs(out), "hi", "lo", "na") {
		t.Errorf("pp-desc order %v, want [hi lo na]", chartIDs(out))
	}
}

func TestDifficultySorts(t *testing.T) {
	easy := testChart("easy", "Easy", "S", 7, testResult(1, 1, "ann", 1, "2024-01-01"))
	hard := testChart("hard", "Hard", "S", 22, testResult(2, 1, "ann", 1, "2024-01-01"))
	tuned := testChart("tuned", "Tuned", "S", 15, testResult(3, 1, "ann", 1, "2024-01-01"))
	tuned.InterpolatedDifficulty = 23.5 // measured harder than its printed level
	charts := map[string]*model.ChartAggregate{"easy": easy, "hard": hard, "tuned": tuned}

	spec := model.DefaultFilter()
	spec.Sort = model.SortEasiestSongs
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "easy", "hard", "tuned") {
		t.Errorf("easiest order %v, want [easy hard tuned]", chartIDs(out))
	}

	spec.Sort = model.SortHardestSongs
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "tuned", "hard", "easy") {
		t.Errorf("hardest order %v, want [tuned hard easy]", chartIDs(out))
	}
}

func TestSongSearch(t *testing.T) {
	charts := map[string]*model.ChartAggregate{
		"a": testChart("a", "Beethoven Virus", "S", 10, testResult(1, 1, "ann", 1, "2024-01-01")),
		"b": testChart("b", "Canon D", "S", 10, testResult(2, 1, "ann", 1, "2024-01-01")),
	}
	spec := model.DefaultFilter()
	spec.SongQuery = "canon"
	if out := Run(charts, spec, nil, nil); !equalIDs(chartIDs(out), "b") {
		t.Errorf("song search kept %v, want [b]", chartIDs(out))
	}
}
