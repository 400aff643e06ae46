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

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the aggregated table for the geospatial renderer",
	Long:  "Aggregates stored incidents by (beat, date, category, arrest, time bucket) with centroid coordinates and writes the stable tabular shape consumed by map rendering.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "export"))

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
			return eris.New("export: no incidents stored, run ingest first")
		}

		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		enriched := enrich.NewEnricher(registry).EnrichAll(incidents)
		rows := panel.RenderTable(enriched)

		data, err := csvutil.Marshal(rows)
		if err != nil {
			return eris.Wrap(err, "export: marshal csv")
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return eris.Wrapf(err, "export: write %s", exportOut)
		}

		log.Info("export complete",
			zap.String("path", exportOut),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "render_table.csv", "output CSV path")
	rootCmd.AddCommand(exportCmd)
}
