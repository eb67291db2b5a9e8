package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/postgres"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/seed"
)

// statusOut receives progress messages of the bootstrap helpers.
var statusOut io.Writer = os.Stdout

// connectRepository opens PostgreSQL, runs migrations and registers the library repository.
func connectRepository(ctx context.Context, cfg *config.Config) (database.Repository, error) {
	if repo := database.GetRepository(); repo != nil {
		return repo, nil
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Fprintf(statusOut, "Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repo := postgres.NewLibraryRepository(pool)
	database.RegisterRepository(func() database.Repository { return repo })
	return repo, nil
}

// closeDatabase closes the global pool if one was opened.
func closeDatabase() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		if err := pool.Close(); err != nil {
			fmt.Fprintf(statusOut, "Warning: %v\n", err)
		}
	}
}

// openLibrary creates a library and fills it. A seed file given on the command
// line wins, then PostgreSQL, then the LIBRARY_SEED file. The returned
// repository is nil unless the content came from PostgreSQL.
func openLibrary(ctx context.Context, cfg *config.Config, seedPath string, opts ...library.Option) (*library.Library, database.Repository, error) {
	lib := library.New(opts...)

	if seedPath == "" && cfg.Database.URL == "" {
		seedPath = cfg.Library.SeedPath
	}

	switch {
	case seedPath != "":
		if err := seed.Hydrate(lib, seedPath); err != nil {
			return nil, nil, err
		}
		printStats("Loaded seed "+seedPath, lib.Stats())
		return lib, nil, nil

	case cfg.Database.URL != "":
		repo, err := connectRepository(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		snap, err := repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("loading library: %w", err)
		}
		if err := lib.Restore(snap); err != nil {
			return nil, nil, fmt.Errorf("restoring library: %w", err)
		}
		printStats("Loaded library from PostgreSQL", lib.Stats())
		return lib, repo, nil

	default:
		fmt.Fprintln(statusOut, "No seed file or database configured, starting with an empty library")
		return lib, nil, nil
	}
}

func printStats(prefix string, s library.Stats) {
	fmt.Fprintf(statusOut, "%s: %d photos, %d persons, %d albums, %d faces\n", prefix, s.Photos, s.Persons, s.Albums, s.Faces)
}
