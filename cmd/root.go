package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-library",
	Short: "A photo library with people, albums and face regions",
	Long: `Photo Library keeps photo metadata together with the people in each photo,
the albums they belong to and the detected face regions. It serves the library
over an HTTP API and stores it in PostgreSQL or a YAML seed file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
