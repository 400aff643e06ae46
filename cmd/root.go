package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/config"
	"github.com/metrolabs/beatcast/internal/model"
	"github.com/metrolabs/beatcast/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "beatcast",
	Short: "Beat-level daily crime count forecasting",
	Long:  "Ingests a year of municipal crime incidents, builds a beat-day panel with rolling crime-history features, and compares count-regression models on out-of-time validation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadRegistry builds the category registry from the configured mapping
// file, or the compiled-in default vocabulary when none is set.
func loadRegistry() (*model.CategoryRegistry, error) {
	mapping := model.DefaultCategoryMapping()
	if cfg.Ingest.CategoryMapping != "" {
		m, err := model.LoadCategoryMapping(cfg.Ingest.CategoryMapping)
		if err != nil {
			return nil, err
		}
		mapping = m
	}
	return model.NewCategoryRegistry(mapping)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
