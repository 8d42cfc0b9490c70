package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	memoryMode bool
)

var rootCmd = &cobra.Command{
	Use:   "campus-energy",
	Short: "Campus energy dashboard backend",
	Long: `campus-energy ingests fuel-cell and solar production data from spreadsheet uploads
and the fuel-cell vendor API, and serves the aggregates behind the dashboard charts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
