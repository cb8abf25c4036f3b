package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/aggregator"
	"github.com/apetrov-dev/piutop/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <battles|results>",
	Short: "Export a snapshot dataset as a parquet file",
	Long: `Export snapshot data for offline analysis.

  results   every stored result (current bests and superseded attempts)
  battles   the pairwise battle list the rating model consumed`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output parquet file (required)")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("no snapshot stored yet, run 'piutop import' first")
	}

	var rows int
	switch args[0] {
	case "results":
		rows, err = export.Results(exportOut, snap.Charts)
	case "battles":
		out := aggregator.Rebuild(snap.Charts, nil)
		battles := aggregator.GenerateBattles(out.Chronological, out.Charts)
		rows, err = export.Battles(exportOut, battles)
	default:
		return fmt.Errorf("unknown dataset %q (results, battles)", args[0])
	}
	if err != nil {
		return err
	}

	logger.Info().Str("dataset", args[0]).Int("rows", rows).Str("out", exportOut).Msg("export complete")
	return nil
}
