package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/registry"
	"github.com/showscout/showscout-cli/internal/store"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the scraping source registry",
}

var sourcesListEnabled bool

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.SourceFilter{}
		if sourcesListEnabled {
			enabled := true
			filter.Enabled = &enabled
		}

		sources, err := st.ListSources(ctx, filter)
		if err != nil {
			return err
		}

		for _, src := range sources {
			state := "enabled"
			if !src.Enabled {
				state = "disabled"
			}
			fmt.Printf("%3d  %-8s  streak=%d  %s\n", src.PriorityScore, state, src.ErrorStreak, src.URL)
		}
		fmt.Printf("%d sources\n", len(sources))
		return nil
	},
}

var sourcesAddPriority int

var sourcesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a single source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		src, err := st.UpsertSource(ctx, args[0], sourcesAddPriority)
		if err != nil {
			return err
		}
		zap.L().Info("source registered",
			zap.String("url", src.URL),
			zap.Int("priority", src.PriorityScore),
		)
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <url>",
	Short: "Re-enable a source",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(true),
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <url>",
	Short: "Disable a source without deleting its history",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledRunE(false),
}

func setEnabledRunE(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetSourceEnabled(ctx, args[0], enabled); err != nil {
			return err
		}
		zap.L().Info("source updated", zap.String("url", args[0]), zap.Bool("enabled", enabled))
		return nil
	}
}

var sourcesSeedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Upsert sources from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := registry.LoadYAML(args[0])
		if err != nil {
			return err
		}
		return seedSources(cmd, seeds)
	},
}

var sourcesImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Upsert sources from an admin XLSX sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := registry.LoadXLSX(args[0])
		if err != nil {
			return err
		}
		return seedSources(cmd, seeds)
	},
}

func seedSources(cmd *cobra.Command, seeds []registry.SourceSeed) error {
	if len(seeds) == 0 {
		return eris.New("no sources in file")
	}

	ctx := cmd.Context()
	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := registry.Seed(ctx, st, seeds)
	if err != nil {
		return err
	}
	zap.L().Info("sources onboarded", zap.Int("count", n))
	return nil
}

func init() {
	sourcesAddCmd.Flags().IntVar(&sourcesAddPriority, "priority", model.DefaultPriority, "starting priority score (0-100)")
	sourcesListCmd.Flags().BoolVar(&sourcesListEnabled, "enabled", false, "only enabled sources")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesEnableCmd, sourcesDisableCmd, sourcesSeedCmd, sourcesImportCmd)
	rootCmd.AddCommand(sourcesCmd)
}
