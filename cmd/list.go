package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/report"
)

var listRatings int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Summarize the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listRatings, "ratings", 10, "how many rated players to show (0 to skip)")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	summary, err := db.Summarize()
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if summary.Charts == 0 {
		fmt.Println("No snapshot stored yet. Run 'piutop import <feed.json>' first.")
		return nil
	}

	fmt.Printf("Charts:            %d\n", summary.Charts)
	fmt.Printf("Current bests:     %d\n", summary.Results)
	fmt.Printf("Superseded:        %d\n", summary.PreviousResults)
	fmt.Printf("Players:           %d\n", summary.Profiles)
	fmt.Printf("Feed updated on:   %s\n", summary.LastUpdatedOn)
	fmt.Printf("Imported at:       %s (run %s)\n", summary.ImportedAt, summary.ImportRunID)

	if listRatings > 0 {
		snap, err := db.LoadSnapshot()
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		fmt.Println()
		report.PrintRatingTable(os.Stdout, snap.Profiles, listRatings)
	}
	return nil
}
