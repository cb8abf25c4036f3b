// Package report renders query results and profiles as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/apetrov-dev/piutop/internal/exp"
	"github.com/apetrov-dev/piutop/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintLeaderboards prints one table per chart, at most perChart result rows
// each. If focus is non-empty, that player's rows are marked with ">".
func PrintLeaderboards(w io.Writer, charts []*model.ChartAggregate, focus string, perChart int) {
	for _, chart := range charts {
		header := fmt.Sprintf("\n%s [%s]", chart.Song, chart.ChartLabel)
		if chart.Duration != "" {
			header += "  |  " + chart.Duration
		}
		if chart.LatestScoreDate != "" {
			if t := model.ParseDate(chart.LatestScoreDate); !t.IsZero() {
				header += "  |  last score " + humanize.Time(t)
			}
		}
		fmt.Fprintln(w, header)

		table := newTable(w)
		table.Header(" ", "#", "NAME", "SCORE", "GRADE", "ACC", "COMBO", "MODS", "DATE")

		rows := chart.Results
		if perChart > 0 && len(rows) > perChart {
			rows = rows[:perChart]
		}
		for i, res := range rows {
			marker := " "
			if focus != "" && res.Nickname == focus {
				marker = ">"
			}
			table.Append(
				marker,
				strconv.Itoa(i+1),
				res.Nickname,
				humanize.Comma(int64(res.Score)),
				string(res.Grade),
				fmtAccuracy(res.Accuracy),
				fmtIntPtr(res.Combo),
				res.Mods,
				fmtDate(res),
			)
		}
		table.Render()
	}
}

// PrintProfile prints a player's profile card: totals, grade histogram,
// per-level best counts, rating and achievements.
func PrintProfile(w io.Writer, p *model.Profile) {
	rank := exp.ForExp(p.Exp)
	fmt.Fprintf(w, "\n%s", p.Nickname)
	if p.ArcadeName != "" {
		fmt.Fprintf(w, " (%s)", p.ArcadeName)
	}
	if p.Region != "" {
		fmt.Fprintf(w, "  |  %s", p.Region)
	}
	fmt.Fprintf(w, "\nRank: %s  |  Exp: %.0f  |  Best results: %d\n", rank.Title, p.Exp, p.Count)
	if p.CountAcc > 0 {
		fmt.Fprintf(w, "Avg accuracy: %.2f%% over %d results\n", p.SumAccuracy/float64(p.CountAcc), p.CountAcc)
	}
	if !p.FirstResultDate.IsZero() {
		fmt.Fprintf(w, "Playing since %s, last seen %s\n",
			p.FirstResultDate.Format("2006-01-02"), humanize.Time(p.LastResultDate))
	}
	if p.BattleCount > 0 {
		fmt.Fprintf(w, "Rating: %.0f over %d battles, last %s\n",
			p.Rating, p.BattleCount, humanize.Time(p.LastBattleDate))
	}

	grades := newTable(w)
	header := make([]any, 0, len(model.BaseGrades))
	row := make([]any, 0, len(model.BaseGrades))
	for _, g := range model.BaseGrades {
		header = append(header, string(g))
		row = append(row, strconv.Itoa(p.Grades[g]))
	}
	grades.Header(header...)
	grades.Append(row...)
	grades.Render()

	levels := newTable(w)
	levels.Header("LEVEL", "BESTS")
	for lvl := model.ChartLevelMin; lvl <= model.ChartLevelMax; lvl++ {
		if n := len(p.ResultsByLevel[lvl]); n > 0 {
			levels.Append(strconv.Itoa(lvl), strconv.Itoa(n))
		}
	}
	levels.Render()

	unlocked := make([]string, 0, len(p.Achievements))
	for name, state := range p.Achievements {
		if state.Unlocked {
			unlocked = append(unlocked, name)
		}
	}
	if len(unlocked) > 0 {
		sort.Strings(unlocked)
		fmt.Fprintf(w, "\nAchievements: %v\n", unlocked)
	}
}

// PrintRatingTable prints players ordered by rating, rated players only.
func PrintRatingTable(w io.Writer, profiles map[int]*model.Profile, limit int) {
	rated := make([]*model.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.BattleCount > 0 {
			rated = append(rated, p)
		}
	}
	sort.Slice(rated, func(i, j int) bool { return rated[i].Rating > rated[j].Rating })
	if limit > 0 && len(rated) > limit {
		rated = rated[:limit]
	}

	table := newTable(w)
	table.Header("#", "NAME", "RATING", "BATTLES", "EXP", "RANK", "LAST BATTLE")
	for i, p := range rated {
		table.Append(
			strconv.Itoa(i+1),
			p.Nickname,
			fmt.Sprintf("%.0f", p.Rating),
			strconv.Itoa(p.BattleCount),
			fmt.Sprintf("%.0f", p.Exp),
			exp.ForExp(p.Exp).Title,
			humanize.Time(p.LastBattleDate),
		)
	}
	table.Render()
}

// PrintRawRows prints an arbitrary column/row set, backing the sql command.
func PrintRawRows(w io.Writer, columns []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}

func fmtAccuracy(acc *float64) string {
	if acc == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f%%", *acc)
}

func fmtIntPtr(p *int) string {
	if p == nil {
		return "—"
	}
	return strconv.Itoa(*p)
}

func fmtDate(res *model.Result) string {
	if res.DateObject.IsZero() {
		return res.Date
	}
	s := humanize.Time(res.DateObject)
	if !res.IsExactDate {
		s = "~" + s
	}
	return s
}
