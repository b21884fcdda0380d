package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/learn"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Recompute source priorities from review feedback",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := learn.New(st, cfg.Learn.WindowDays, cfg.Learn.Floor)
		adjustments, err := engine.Recompute(ctx)
		if err != nil {
			return err
		}

		changed := 0
		for _, adj := range adjustments {
			if adj.Old == adj.New && !adj.Disabled {
				continue
			}
			changed++
			note := ""
			if adj.Disabled {
				note = "  (disabled)"
			}
			fmt.Printf("%3d -> %3d%s  %s\n", adj.Old, adj.New, note, adj.URL)
		}

		zap.L().Info("recompute finished",
			zap.Int("sources", len(adjustments)),
			zap.Int("changed", changed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(learnCmd)
}
