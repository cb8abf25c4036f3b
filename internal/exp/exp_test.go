package exp

import (
	"math"
	"testing"

	"github.com/apetrov-dev/piutop/internal/model"
)

func TestForResult(t *testing.T) {
	chart := &model.ChartAggregate{ChartLevelNum: 20}

	if got := ForResult(&model.Result{Grade: model.GradeSSS}, chart); math.Abs(got-400*1.4) > 1e-9 {
		t.Errorf("SSS on level 20 = %v, want %v", got, 400*1.4)
	}
	if got := ForResult(&model.Result{Grade: model.GradeA}, chart); got != 400 {
		t.Errorf("A on level 20 = %v, want 400", got)
	}
	if got := ForResult(&model.Result{Grade: model.GradeUnknown}, chart); got != 200 {
		t.Errorf("unknown grade must earn the floor factor, got %v", got)
	}
	if got := ForResult(&model.Result{Grade: model.GradeSSS}, &model.ChartAggregate{}); got != 0 {
		t.Errorf("level-less chart must earn nothing, got %v", got)
	}
}

func TestForExpLadder(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{0, "Newcomer"},
		{499.9, "Newcomer"},
		{500, "Novice"},
		{2000, "Regular"},
		{14999, "Advanced"},
		{15000, "Expert"},
		{150000, "Legend"},
		{9e9, "Legend"},
	}
	for _, c := range cases {
		if got := ForExp(c.total); got.Title != c.want {
			t.Errorf("ForExp(%v) = %s, want %s", c.total, got.Title, c.want)
		}
	}
}
