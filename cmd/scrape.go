package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scrapeSources     int
	scrapeSkipGeocode bool
	scrapeDryRun      bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one ingestion tick over the highest-priority sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := buildRunner(st, scrapeSkipGeocode, scrapeDryRun, scrapeSources)
		if err != nil {
			return err
		}

		result, err := runner.RunBatch(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("scrape tick finished",
			zap.Int("claimed", result.Claimed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Int("candidates", result.Candidates),
			zap.Int("duplicates", result.Duplicates),
			zap.Int("invalid", result.Invalid),
			zap.Bool("dry_run", scrapeDryRun),
		)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapeSources, "sources", 0, "number of sources to claim (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeSkipGeocode, "skip-geocode", false, "skip the geocoding stage")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "fetch and extract without staging rows or recording outcomes")
	rootCmd.AddCommand(scrapeCmd)
}
