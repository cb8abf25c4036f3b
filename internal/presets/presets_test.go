package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apetrov-dev/piutop/internal/model"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")

	spec := model.DefaultFilter()
	spec.LevelMin, spec.LevelMax = 18, 22
	spec.ChartType = "D"
	spec.Players = []string{"ann"}
	spec.Rank = model.ShowOnlyNoRank
	spec.Sort = model.SortProtagonist
	spec.Protagonist = "ann"

	if err := Save(path, "doubles", spec); err != nil {
		t.Fatal(err)
	}

	all, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := all["doubles"]
	if !ok {
		t.Fatal("saved preset not found")
	}
	if got.LevelMin != 18 || got.LevelMax != 22 || got.ChartType != "D" {
		t.Errorf("chart knobs lost in round trip: %+v", got)
	}
	if len(got.Players) != 1 || got.Players[0] != "ann" {
		t.Errorf("player list lost in round trip: %v", got.Players)
	}
	if got.Rank != model.ShowOnlyNoRank || got.Sort != model.SortProtagonist {
		t.Errorf("rank/sort lost in round trip: %v/%v", got.Rank, got.Sort)
	}
	if got.Protagonist != "ann" {
		t.Errorf("protagonist lost in round trip: %q", got.Protagonist)
	}
}

func TestLoadMissingFile(t *testing.T) {
	all, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("missing file must load as empty, got %v", all)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed file must error")
	}
}

func TestDeleteAndNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	for _, name := range []string{"zeta", "alpha"} {
		if err := Save(path, name, model.DefaultFilter()); err != nil {
			t.Fatal(err)
		}
	}

	names, err := Names(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v, want sorted [alpha zeta]", names)
	}

	if err := Delete(path, "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := Delete(path, "alpha"); err == nil {
		t.Error("deleting an unknown preset must error")
	}

	names, _ = Names(path)
	if len(names) != 1 || names[0] != "zeta" {
		t.Errorf("names after delete = %v, want [zeta]", names)
	}
}
