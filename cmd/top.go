package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/model"
	"github.com/apetrov-dev/piutop/internal/presets"
	"github.com/apetrov-dev/piutop/internal/query"
	"github.com/apetrov-dev/piutop/internal/report"
)

var (
	topLevelMin   int
	topLevelMax   int
	topChartType  string
	topDurations  []string
	topPlayers    []string
	topPlayersOr  []string
	topPlayersNot []string
	topRank       string
	topSort       string
	topProt       string
	topExclude    []string
	topSong       string
	topShowHidden bool
	topHide       []string
	topRows       int
	topCharts     int

	topPreset       string
	topSavePreset   string
	topDeletePreset string
	topListPresets  bool
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Query the aggregated leaderboards",
	Long: `Filter and sort the stored per-chart leaderboards.

Sort modes: default (recency), new-scores (protagonist's recent scores),
protagonist (charts where the protagonist is most outmatched first), pp-asc /
pp-desc (protagonist's performance-point ratio), easiest, hardest.

Named filter presets live next to the database; apply one with --preset and
manage them with --save-preset, --delete-preset and --list-presets.`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

func init() {
	f := topCmd.Flags()
	f.IntVar(&topLevelMin, "level-min", model.ChartLevelMin, "minimum chart level")
	f.IntVar(&topLevelMax, "level-max", model.ChartLevelMax, "maximum chart level")
	f.StringVar(&topChartType, "type", "", "chart type prefix (S, D, SP, DP, COOP)")
	f.StringSliceVar(&topDurations, "duration", nil, "allowed durations (e.g. Standard, Remix, Full)")
	f.StringSliceVar(&topPlayers, "player", nil, "keep charts where all of these players appear")
	f.StringSliceVar(&topPlayersOr, "player-or", nil, "keep charts where any of these players appear")
	f.StringSliceVar(&topPlayersNot, "player-not", nil, "drop charts where any of these players appear")
	f.StringVar(&topRank, "rank", "all", "rank mode filter: all, best, rank, norank")
	f.StringVar(&topSort, "sort", "default", "sort mode")
	f.StringVar(&topProt, "protagonist", "", "protagonist nickname for protagonist-relative sorts")
	f.StringSliceVar(&topExclude, "exclude", nil, "antagonists excluded from the protagonist distance")
	f.StringVar(&topSong, "song", "", "fuzzy song title search")
	f.BoolVar(&topShowHidden, "show-hidden", false, "count hidden players toward chart recency")
	f.StringSliceVar(&topHide, "hide", nil, "nicknames treated as hidden players")
	f.IntVar(&topRows, "rows", 10, "max results shown per chart")
	f.IntVar(&topCharts, "charts", 20, "max charts shown")

	f.StringVar(&topPreset, "preset", "", "apply a saved filter preset")
	f.StringVar(&topSavePreset, "save-preset", "", "save the resulting filter under this name")
	f.StringVar(&topDeletePreset, "delete-preset", "", "delete a saved preset and exit")
	f.BoolVar(&topListPresets, "list-presets", false, "list saved presets and exit")
}

func runTop(cmd *cobra.Command, args []string) error {
	if topListPresets {
		names, err := presets.Names(presetsPath())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("(no presets)")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	if topDeletePreset != "" {
		if err := presets.Delete(presetsPath(), topDeletePreset); err != nil {
			return err
		}
		fmt.Printf("Deleted preset %q\n", topDeletePreset)
		return nil
	}

	spec, err := buildFilter(cmd)
	if err != nil {
		return err
	}

	if topSavePreset != "" {
		if err := presets.Save(presetsPath(), topSavePreset, spec); err != nil {
			return err
		}
		logger.Info().Str("preset", topSavePreset).Msg("preset saved")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	snap, err := db.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		fmt.Println("No snapshot stored yet. Run 'piutop import <feed.json>' first.")
		return nil
	}

	hidden := map[int]bool{}
	for _, p := range snap.Profiles {
		for _, name := range topHide {
			if p.Nickname == name {
				hidden[p.ID] = true
			}
		}
	}

	charts := query.Run(snap.Charts, spec, hidden, snap.ResultPP)
	if len(charts) == 0 {
		fmt.Println("(no charts match)")
		return nil
	}
	total := len(charts)
	if topCharts > 0 && len(charts) > topCharts {
		charts = charts[:topCharts]
	}

	report.PrintLeaderboards(os.Stdout, charts, spec.Protagonist, topRows)
	if total > len(charts) {
		fmt.Printf("\n(%d of %d matching charts shown; raise --charts for more)\n", len(charts), total)
	}
	return nil
}

// buildFilter assembles the filter spec: preset first when given, then every
// flag set on the command line on top of it.
func buildFilter(cmd *cobra.Command) (model.FilterSpec, error) {
	spec := model.DefaultFilter()
	if topPreset != "" {
		all, err := presets.Load(presetsPath())
		if err != nil {
			return spec, err
		}
		saved, ok := all[topPreset]
		if !ok {
			return spec, fmt.Errorf("no preset named %q", topPreset)
		}
		spec = saved
		if spec.LevelMin == 0 {
			spec.LevelMin = model.ChartLevelMin
		}
		if spec.LevelMax == 0 {
			spec.LevelMax = model.ChartLevelMax
		}
	}

	set := cmd.Flags().Changed
	if set("level-min") {
		spec.LevelMin = topLevelMin
	}
	if set("level-max") {
		spec.LevelMax = topLevelMax
	}
	if set("type") {
		spec.ChartType = topChartType
	}
	if set("duration") {
		spec.Durations = topDurations
	}
	if set("player") {
		spec.Players = topPlayers
	}
	if set("player-or") {
		spec.PlayersOr = topPlayersOr
	}
	if set("player-not") {
		spec.PlayersNot = topPlayersNot
	}
	if set("rank") {
		rank, err := model.ParseRankFilter(topRank)
		if err != nil {
			return spec, err
		}
		spec.Rank = rank
	}
	if set("sort") {
		sortMode, err := model.ParseSortMode(topSort)
		if err != nil {
			return spec, err
		}
		spec.Sort = sortMode
	}
	if set("protagonist") {
		spec.Protagonist = topProt
	}
	if set("exclude") {
		spec.ExcludeAntagonists = topExclude
	}
	if set("song") {
		spec.SongQuery = topSong
	}
	if set("show-hidden") {
		spec.ShowHiddenPlayers = topShowHidden
	}
	return spec, nil
}
