package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/model"
	"github.com/apetrov-dev/piutop/internal/plot"
	"github.com/apetrov-dev/piutop/internal/report"
)

var profileGraph string

var profileCmd = &cobra.Command{
	Use:   "profile <nickname>",
	Short: "Show a player's profile card",
	Long: `Print a player's profile: best result counts, grade histogram, per-level
breakdown, exp rank, rating and achievements.

With --graph, additionally write the player's rating history as an
interactive HTML chart.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileGraph, "graph", "", "write rating history chart to this HTML file")
}

func runProfile(cmd *cobra.Command, args []string) error {
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

	profile := findProfile(snap, args[0])
	if profile == nil {
		return fmt.Errorf("no player named %q in the snapshot", args[0])
	}

	report.PrintProfile(os.Stdout, profile)

	if profileGraph != "" {
		if err := plot.RatingHistory(profile, profileGraph); err != nil {
			return err
		}
		fmt.Printf("\nWrote %s\n", profileGraph)
	}
	return nil
}

func findProfile(snap *model.Snapshot, nickname string) *model.Profile {
	for _, p := range snap.Profiles {
		if strings.EqualFold(p.Nickname, nickname) {
			return p
		}
	}
	return nil
}
