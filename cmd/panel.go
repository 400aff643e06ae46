package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/enrich"
	"github.com/metrolabs/beatcast/internal/panel"
)

var panelOut string

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Build the beat-day panel with rolling history features",
	Long:  "Enriches stored incidents, builds the complete beat × date grid with zero-filled cells, computes rolling crime-history features with global-mean imputation, and persists the panel.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("features"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("command", "panel"))

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		incidents, err := st.LoadIncidents(ctx)
		if err != nil {
			return err
		}
		if len(incidents) == 0 {
			return eris.New("panel: no incidents stored, run ingest first")
		}

		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		enriched := enrich.NewEnricher(registry).EnrichAll(incidents)

		grid := panel.BuildGrid(enriched)
		hcfg := panel.HistoryFromWindows(cfg.Features.Windows, cfg.Features.Workers)
		if err := panel.ComputeHistory(ctx, grid, hcfg); err != nil {
			return err
		}

		saved, err := st.SavePanel(ctx, grid.Cells)
		if err != nil {
			return err
		}
		log.Info("panel persisted", zap.Int64("cells", saved))

		if panelOut != "" {
			if err := writePanelCSV(panelOut, grid.Cells); err != nil {
				return err
			}
			log.Info("panel exported", zap.String("path", panelOut))
		}
		return nil
	},
}

// writePanelCSV writes panel cells to a CSV file.
func writePanelCSV(path string, cells []panel.Cell) error {
	data, err := csvutil.Marshal(cells)
	if err != nil {
		return eris.Wrap(err, "panel: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "panel: write %s", path)
	}
	return nil
}

func init() {
	panelCmd.Flags().StringVar(&panelOut, "out", "", "optional CSV export path for the panel")
	rootCmd.AddCommand(panelCmd)
}
