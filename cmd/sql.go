package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the snapshot database",
	Long: `Run an arbitrary SQL query against the snapshot database and print results
as a table.

Schema overview:
  meta(key, value)
  charts(id, song, chart_label, chart_type, chart_level, chart_level_num,
    duration, max_total_steps, max_score, interpolated_difficulty,
    latest_score_date, each_result_ids)
  results(id, chart_id, is_previous, position, player_id, nickname, score,
    score_raw, accuracy, grade, perfects, greats, goods, bads, misses,
    max_combo, mods, date, is_rank, is_unknown_player, is_intermediate, ...)
  profiles(id, nickname, arcade_name, region, result_count, count_acc,
    sum_accuracy, exp, grades, achievements, rating, rating_history,
    battle_count, ...)
  result_pp(result_id, pp, pp_ratio)

grades, achievements, rating_history and each_result_ids are JSON columns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	report.PrintRawRows(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
