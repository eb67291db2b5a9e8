package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/metrics"
	"github.com/kozaktomas/photo-library/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Library API server.
The library is loaded from --seed, PostgreSQL (DATABASE_URL) or LIBRARY_SEED.
With PostgreSQL every change is written back in the background.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("seed", "", "YAML seed file to load instead of the database")
}

// resolveServeHostPort applies flags that were set explicitly on top of the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
}

// startVerifier periodically checks the relationship index against the store
// and rebuilds it when they disagree.
func startVerifier(lib *library.Library, m *metrics.Metrics, interval time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		err := lib.Verify()
		m.ObserveVerify(err)
		if err != nil {
			log.Printf("Index verification failed, rebuilding: %v", err)
			lib.Reindex()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling index verification: %w", err)
	}

	s.StartAsync()
	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	faceIndex := database.NewFaceIndex()

	lib, repo, err := openLibrary(ctx, cfg, mustGetString(cmd, "seed"),
		library.WithObserver(m),
		library.WithObserver(faceIndex),
	)
	if err != nil {
		return err
	}
	defer closeDatabase()

	m.WatchLibrary(lib)
	fmt.Printf("Face index ready with %d faces\n", faceIndex.Count())

	var sink *database.Sink
	if repo != nil {
		sink = database.NewSink(repo)
		lib.Subscribe(sink)
		m.WatchGauge("photo_library_sink_pending", "Changes waiting to be written to PostgreSQL",
			func() float64 { return float64(sink.Pending()) })
		m.WatchCounter("photo_library_sink_dropped_total", "Changes dropped because PostgreSQL rejected them",
			func() float64 { return float64(sink.Stats().Dropped) })
		go sink.Run(ctx)
		fmt.Println("Persisting changes to PostgreSQL")
	}

	scheduler, err := startVerifier(lib, m, cfg.Library.VerifyInterval)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	server := web.NewServer(cfg, lib, web.WithFaceIndex(faceIndex), web.WithMetrics(m))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Library API on http://%s:%d/api/v1\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// Run flushes what is still queued once its context is cancelled.
	if sink != nil {
		cancel()
		<-sink.Done()
		if stats := sink.Stats(); stats.Pending > 0 {
			fmt.Printf("Warning: %d changes could not be written: %v\n", stats.Pending, stats.LastErr)
		}
	}
	return nil
}
