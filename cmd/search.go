package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/library"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search photos by title or person name",
	Long: `Search photos whose title contains the query, followed by photos showing a
person whose name contains it. Matching ignores case and diacritics.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("seed", "", "YAML seed file to search instead of the database")
	searchCmd.Flags().Bool("json", false, "Output results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	if jsonOutput {
		// keep stdout clean for the JSON document
		statusOut = os.Stderr
	}

	lib, _, err := openLibrary(ctx, cfg, mustGetString(cmd, "seed"))
	if err != nil {
		return err
	}
	defer closeDatabase()

	query := strings.Join(args, " ")
	photos := lib.Search(query)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(photos)
	}

	if len(photos) == 0 {
		fmt.Printf("No photos match %q\n", query)
		return nil
	}

	fmt.Printf("\n%d photos match %q:\n\n", len(photos), query)
	for _, p := range photos {
		printPhoto(lib, &cfg.Web, p)
	}
	return nil
}

func printPhoto(lib *library.Library, web *config.WebConfig, p library.Photo) {
	id := p.ID
	if link := web.PhotoURL(p.ID); link != "" {
		id = link
	}

	var names []string
	if people, err := lib.PersonsOf(p.ID); err == nil {
		for _, person := range people {
			names = append(names, person.DisplayName())
		}
	}

	taken := "unknown date"
	if !p.TakenAt.IsZero() {
		taken = p.TakenAt.Format("2006-01-02")
	}

	fmt.Printf("  %s  %s  %s", id, taken, p.Title)
	if len(names) > 0 {
		fmt.Printf("  [%s]", strings.Join(names, ", "))
	}
	fmt.Println()
}
