package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/ingest"
)

var ingestCSV string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load and normalize a raw incident feed CSV",
	Long:  "Parses the municipal incident CSV, excludes and reports unparseable rows, deduplicates by case identifier (first-seen wins), and persists the normalized incidents.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("command", "ingest"))

		f, err := os.Open(ingestCSV)
		if err != nil {
			return eris.Wrapf(err, "ingest: open %s", ingestCSV)
		}
		defer f.Close()

		reader := ingest.NewReader(cfg.Ingest.TimestampLayout)
		incidents, report, err := reader.ReadIncidents(ctx, f)
		if err != nil {
			return err
		}

		normalized, dups := ingest.Normalize(incidents)

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		saved, err := st.SaveIncidents(ctx, normalized)
		if err != nil {
			return err
		}

		log.Info("ingest complete",
			zap.Int("rows", report.Rows),
			zap.Int("parsed", report.Parsed),
			zap.Int("bad_timestamps", report.BadTimestamps),
			zap.Int("bad_fields", report.BadFields),
			zap.Int("duplicates_removed", dups),
			zap.Int64("saved", saved),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCSV, "csv", "", "path to the incident feed CSV (required)")
	_ = ingestCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(ingestCmd)
}
