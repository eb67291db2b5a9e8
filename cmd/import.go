package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/seed"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a seed file into PostgreSQL",
	Long: `Load a YAML seed file, check it the same way the server would, and replace
the PostgreSQL content with it.

With --detections, faces found by an external detector (pixel boxes) are added
before saving. Detections overlapping an existing face or narrower than the
minimum face width are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("detections", "", "YAML file with face detections to add")
	importCmd.Flags().Bool("dry-run", false, "Validate only, don't write to the database")
}

func newProgressBar(total int, description, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	dryRun := mustGetBool(cmd, "dry-run")

	lib := library.New()
	if err := seed.Hydrate(lib, args[0]); err != nil {
		return err
	}
	printStats("Validated "+args[0], lib.Stats())

	if path := mustGetString(cmd, "detections"); path != "" {
		dets, err := seed.LoadDetections(path)
		if err != nil {
			return err
		}
		bar := newProgressBar(len(dets), "Adding detections", "faces")
		res, err := seed.ApplyDetections(lib, dets, func() { _ = bar.Add(1) })
		_ = bar.Finish()
		if err != nil {
			return err
		}
		fmt.Printf("\nDetections: %d added, %d duplicates skipped, %d too small\n", res.Added, res.Duplicates, res.TooSmall)
	}

	if dryRun {
		fmt.Println("Dry run, nothing written")
		return nil
	}

	repo, err := connectRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase()

	snap := lib.Snapshot()
	total := len(snap.Photos) + len(snap.Persons) + len(snap.Albums) + len(snap.Faces)
	bar := newProgressBar(total, "Writing to PostgreSQL", "records")
	err = repo.SaveSnapshot(ctx, snap, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("saving library: %w", err)
	}

	stats, err := repo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}
	fmt.Println()
	printStats("Imported", stats)
	return nil
}
