package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFiles   []string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:          "geoloc",
	Short:        "Share and browse places on a map",
	Long:         `geoloc keeps a shared list of places backed by Supabase. Run "geoloc serve" for the map UI API, or use the other commands from a terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")

	rootCmd.AddCommand(serveCmd, placesCmd, statsCmd, typesCmd, exportCmd, archivedCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
