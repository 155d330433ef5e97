package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-story",
	Short: "Turn geotagged photos into a searchable travel timeline",
	Long: `Photo Story enriches photos with place names, capture dates, detected
objects and image embeddings, stores them locally (SQLite) or in PostgreSQL,
and builds per-day timelines and similarity search on top of them.`,
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
