package aggregator

import (
	"math"
	"sort"
	"testing"

	"github.com/apetrov-dev/piutop/internal/model"
)

// Test players.
const (
	ann = 1
	bob = 2
	cat = 3 // unknown-player sentinel
)

func directory() map[int]model.Player {
	return map[int]model.Player{
		ann: {ID: ann, Nickname: "ann", ArcadeName: "ANN", Region: "KR"},
		bob: {ID: bob, Nickname: "bob", ArcadeName: "BOB"},
		cat: {ID: cat, Nickname: "cat", ArcadeName: model.UnknownPlayerArcadeName},
	}
}

// fullResult builds a complete raw record with plausible hit counts.
func fullResult(id int64, player, score int, grade model.Grade, gained string) model.RawResult {
	return model.RawResult{
		ID: id, PlayerID: player, Score: score, Grade: grade,
		Perfect: intp(300), Great: intp(50), Good: intp(10), Bad: intp(5), Miss: intp(5),
		Gained: gained, ExactGainDate: true,
		RecognitionNotes: strp(""),
	}
}

func rawChart(song, label string, results ...model.RawResult) model.RawChart {
	return model.RawChart{
		Chart:   model.ChartMeta{TrackName: song, ChartLabel: label, MaxTotalSteps: 370},
		Results: results,
	}
}

// buildScenario is the base dataset used across tests: one chart where ann
// improves her score once and cat (unknown player) holds an old top score.
//
//	day 0: cat  999999  (machine artifact)
//	day 1: ann  900000  A
//	day 2: bob  920000  A
//	day 3: ann  950000  S
func buildScenario() map[string]model.RawChart {
	return map[string]model.RawChart{
		"c1": rawChart("Test Song", "S17",
			fullResult(10, cat, 999999, model.GradeSSS, "2024-01-01 00:00:00"),
			fullResult(11, ann, 900000, model.GradeA, "2024-01-02 00:00:00"),
			fullResult(12, bob, 920000, model.GradeA, "2024-01-03 00:00:00"),
			fullResult(13, ann, 950000, model.GradeS, "2024-01-04 00:00:00"),
		),
	}
}

func TestAggregateChartOrdering(t *testing.T) {
	out, err := Aggregate(buildScenario(), directory())
	if err != nil {
		t.Fatal(err)
	}
	chart := out.Charts["c1"]
	if chart == nil {
		t.Fatal("chart missing from output")
	}

	if chart.ChartType != "S" || chart.ChartLevelNum != 17 {
		t.Errorf("label parse: type=%q level=%d, want S/17", chart.ChartType, chart.ChartLevelNum)
	}
	if chart.LatestScoreDate != "2024-01-04 00:00:00" {
		t.Errorf("latest score date = %q, want the raw feed tail", chart.LatestScoreDate)
	}
	if len(chart.EachResultID) != 4 {
		t.Errorf("EachResultID has %d entries, want 4", len(chart.EachResultID))
	}

	// One current best per player: cat, ann (950000), bob. Strictly
	// descending by score.
	if len(chart.Results) != 3 {
		t.Fatalf("got %d current bests, want 3", len(chart.Results))
	}
	for i := 1; i < len(chart.Results); i++ {
		if chart.Results[i-1].Score < chart.Results[i].Score {
			t.Fatalf("best list not descending at %d", i)
		}
	}
	if chart.Results[1].ID != 13 || chart.Results[2].ID != 12 {
		t.Errorf("best list order = [%d %d %d], want [10 13 12]",
			chart.Results[0].ID, chart.Results[1].ID, chart.Results[2].ID)
	}

	// Ann's superseded first attempt, flagged intermediate.
	if len(chart.PreviousResults) != 1 || chart.PreviousResults[0].ID != 11 {
		t.Fatalf("previous results = %v, want just result 11", chart.PreviousResults)
	}
	if !chart.PreviousResults[0].IsIntermediateResult {
		t.Error("superseded attempt must be flagged intermediate")
	}

	if chart.MaxScore <= 0 {
		t.Error("max score must be inferred from accuracy-bearing bests")
	}

	// Chronological sequence is ascending by date.
	for i := 1; i < len(out.Chronological); i++ {
		if out.Chronological[i].DateObject.Before(out.Chronological[i-1].DateObject) {
			t.Fatal("chronological sequence out of order")
		}
	}
}

func TestAggregateTieInsertsBeforeEquals(t *testing.T) {
	data := map[string]model.RawChart{
		"c1": rawChart("Tie Song", "D20",
			fullResult(1, ann, 900000, model.GradeA, "2024-01-01 00:00:00"),
			fullResult(2, bob, 900000, model.GradeA, "2024-01-02 00:00:00"),
		),
	}
	out, err := Aggregate(data, directory())
	if err != nil {
		t.Fatal(err)
	}
	results := out.Charts["c1"].Results
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Bob folds first (later feed position on equal score); ann's equal
	// score then lands before his.
	if results[0].ID != 1 || results[1].ID != 2 {
		t.Errorf("tie order = [%d %d], want [1 2]", results[0].ID, results[1].ID)
	}
}

func TestAggregateBestGradeLink(t *testing.T) {
	// Ann's old SSS is graded better than her newer, higher-scoring S.
	data := map[string]model.RawChart{
		"c1": rawChart("Grade Song", "S15",
			fullResult(1, ann, 900000, model.GradeSSS, "2024-01-01 00:00:00"),
			fullResult(2, ann, 950000, model.GradeS, "2024-01-02 00:00:00"),
		),
	}
	out, err := Aggregate(data, directory())
	if err != nil {
		t.Fatal(err)
	}
	chart := out.Charts["c1"]
	best := chart.Results[0]
	if best.ID != 2 {
		t.Fatalf("current best = %d, want 2", best.ID)
	}
	if best.BestGradeResult == nil || best.BestGradeResult.ID != 1 {
		t.Fatal("current best must link the better-graded superseded attempt")
	}
	if !best.BestGradeResult.IsBestGradeOnChart || best.IsBestGradeOnChart {
		t.Error("best-grade flag must sit on the SSS attempt only")
	}
}

func TestAggregateProfiles(t *testing.T) {
	out, err := Aggregate(buildScenario(), directory())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := out.Profiles[cat]; ok {
		t.Error("unknown player must not get a profile")
	}

	p := out.Profiles[ann]
	if p == nil {
		t.Fatal("ann has no profile")
	}
	if p.Count != 1 {
		t.Errorf("ann Count = %d, want 1 (only her current best folds)", p.Count)
	}
	if p.Grades[model.GradeS] != 1 || p.Grades[model.GradeA] != 0 {
		t.Errorf("ann grade histogram wrong: %v", p.Grades)
	}
	if math.Abs(p.Exp-17*17*1.2) > 1e-9 {
		t.Errorf("ann Exp = %v, want %v", p.Exp, 17*17*1.2)
	}
	if len(p.ResultsByLevel[17]) != 1 {
		t.Errorf("ann level-17 index has %d entries, want 1", len(p.ResultsByLevel[17]))
	}
	if p.Region != "KR" {
		t.Errorf("ann region = %q, want KR", p.Region)
	}
}

func TestGenerateBattles(t *testing.T) {
	out, err := Aggregate(buildScenario(), directory())
	if err != nil {
		t.Fatal(err)
	}
	battles := GenerateBattles(out.Chronological, out.Charts)

	// The only valid pairing: ann's day-4 improvement against bob's day-3
	// best. Cat is the unknown player (no battles either way), and older
	// results never battle newer incumbents.
	if len(battles) != 1 {
		t.Fatalf("got %d battles, want 1: %+v", len(battles), battles)
	}
	b := battles[0]
	if b.Incoming.PlayerID != ann || b.Incumbent.PlayerID != bob {
		t.Errorf("battle pairing = %d vs %d, want ann vs bob", b.Incoming.PlayerID, b.Incumbent.PlayerID)
	}
	if b.Chart.SharedChartID != "c1" {
		t.Errorf("battle chart = %s, want c1", b.Chart.SharedChartID)
	}
}

func TestGenerateBattlesModeBoundary(t *testing.T) {
	// A rank-mode result never battles a normal-mode incumbent.
	data := map[string]model.RawChart{
		"c1": {
			Chart: model.ChartMeta{TrackName: "Mode Song", ChartLabel: "S10", MaxTotalSteps: 370},
			Results: []model.RawResult{
				fullResult(1, bob, 900000, model.GradeA, "2024-01-01 00:00:00"),
				{
					ID: 2, PlayerID: ann, Score: 950000, Grade: model.GradeA,
					Perfect: intp(300), Great: intp(50), Good: intp(10), Bad: intp(5), Miss: intp(5),
					Gained: "2024-01-02 00:00:00", ExactGainDate: true, RankMode: true,
					RecognitionNotes: strp(""),
				},
			},
		},
	}
	out, err := Aggregate(data, directory())
	if err != nil {
		t.Fatal(err)
	}
	if battles := GenerateBattles(out.Chronological, out.Charts); len(battles) != 0 {
		t.Fatalf("got %d battles across rank modes, want 0", len(battles))
	}
}

func TestMergeLayersBatches(t *testing.T) {
	players := directory()
	batch1 := buildScenario()
	batch2 := map[string]model.RawChart{
		"c2": rawChart("Second Song", "D22",
			fullResult(20, bob, 880000, model.GradeB, "2024-02-01 00:00:00"),
		),
	}

	out1, err := Aggregate(batch1, players)
	if err != nil {
		t.Fatal(err)
	}
	prev := &model.Snapshot{Charts: out1.Charts, Profiles: out1.Profiles}

	// Rating-owned state must survive the merge untouched.
	prev.Profiles[ann].Rating = 1234
	prev.Profiles[ann].BattleCount = 5

	merged, err := Merge(prev, batch2, players)
	if err != nil {
		t.Fatal(err)
	}

	if len(merged.Charts) != 2 {
		t.Fatalf("merged snapshot has %d charts, want 2", len(merged.Charts))
	}
	if merged.Profiles[bob].Count != 2 {
		t.Errorf("bob Count = %d, want 2 after merging his second chart", merged.Profiles[bob].Count)
	}
	if merged.Profiles[ann].Rating != 1234 || merged.Profiles[ann].BattleCount != 5 {
		t.Error("merge must preserve rating-owned profile fields")
	}

	// Merging batches must equal aggregating their union in one pass.
	union := map[string]model.RawChart{}
	for id, rc := range batch1 {
		union[id] = rc
	}
	for id, rc := range batch2 {
		union[id] = rc
	}
	full, err := Aggregate(union, players)
	if err != nil {
		t.Fatal(err)
	}
	assertSameShape(t, full, merged)
}

// assertSameShape compares two outputs on chart ordering and profile totals.
func assertSameShape(t *testing.T, want, got *Output) {
	t.Helper()
	if len(want.Charts) != len(got.Charts) {
		t.Fatalf("chart count: want %d, got %d", len(want.Charts), len(got.Charts))
	}
	ids := make([]string, 0, len(want.Charts))
	for id := range want.Charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		w, g := want.Charts[id], got.Charts[id]
		if g == nil {
			t.Fatalf("chart %s missing", id)
		}
		if len(w.Results) != len(g.Results) {
			t.Fatalf("chart %s: want %d bests, got %d", id, len(w.Results), len(g.Results))
		}
		for i := range w.Results {
			if w.Results[i].ID != g.Results[i].ID {
				t.Fatalf("chart %s: best %d differs (%d vs %d)", id, i, w.Results[i].ID, g.Results[i].ID)
			}
		}
	}
	for id, w := range want.Profiles {
		g := got.Profiles[id]
		if g == nil {
			t.Fatalf("profile %d missing", id)
		}
		if w.Count != g.Count || w.Exp != g.Exp {
			t.Fatalf("profile %d: want count=%d exp=%v, got count=%d exp=%v", id, w.Count, w.Exp, g.Count, g.Exp)
		}
	}
}
