package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/apetrov-dev/piutop/internal/aggregator"
	"github.com/apetrov-dev/piutop/internal/feed"
	"github.com/apetrov-dev/piutop/internal/model"
	"github.com/apetrov-dev/piutop/internal/rating"
	"github.com/apetrov-dev/piutop/internal/storage"
)

var importFull bool

var importCmd = &cobra.Command{
	Use:   "import <feed.json>",
	Short: "Import a result feed and update the stored snapshot",
	Long: `Decode a raw result feed, aggregate it into per-chart leaderboards, player
profiles and ratings, and store the snapshot.

By default the feed is layered over the existing snapshot: a chart present in
the feed replaces its stored aggregate wholly, untouched charts carry over.
Use --full to discard the stored snapshot and rebuild from this feed alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importFull, "full", false, "rebuild the snapshot from scratch")
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	return importFile(db, args[0], importFull)
}

// importFile runs one full import pass: decode, merge, battle generation,
// rating, store. Shared with the watch command.
func importFile(db *storage.DB, path string, full bool) error {
	runID := uuid.NewString()
	log := logger.With().Str("run", runID).Str("feed", path).Logger()
	start := time.Now()

	batch, err := feed.DecodeFile(path)
	if err != nil {
		return fmt.Errorf("decode feed: %w", err)
	}
	log.Info().Int("charts", len(batch.Charts)).Int("players", len(batch.Players)).Msg("feed decoded")

	var prev *model.Snapshot
	if !full {
		prev, err = db.LoadSnapshot()
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if prev != nil {
			log.Debug().Int("charts", len(prev.Charts)).Str("last_updated_on", prev.LastUpdatedOn).Msg("merging over stored snapshot")
		}
	}

	out, err := aggregator.Merge(prev, batch.Charts, batch.Players)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	battles := aggregator.GenerateBattles(out.Chronological, out.Charts)
	pp := rating.Apply(out.Charts, out.Profiles, battles)
	log.Debug().Int("battles", len(battles)).Msg("ratings applied")

	lastUpdatedOn := batch.LastUpdatedAt
	if lastUpdatedOn == "" && prev != nil {
		lastUpdatedOn = prev.LastUpdatedOn
	}

	snap := &model.Snapshot{
		Charts:        out.Charts,
		Profiles:      out.Profiles,
		ResultPP:      pp,
		LastUpdatedOn: lastUpdatedOn,
	}
	if err := db.SaveSnapshot(snap, runID); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	log.Info().
		Int("charts", len(snap.Charts)).
		Int("profiles", len(snap.Profiles)).
		Dur("took", time.Since(start)).
		Msg("snapshot updated")
	return nil
}
