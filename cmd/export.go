package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/seed"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the PostgreSQL library to a seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	repo, err := connectRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase()

	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}
	if err := seed.Save(args[0], snap); err != nil {
		return err
	}

	fmt.Printf("Exported %d photos, %d persons, %d albums, %d faces to %s\n",
		len(snap.Photos), len(snap.Persons), len(snap.Albums), len(snap.Faces), args[0])
	return nil
}
