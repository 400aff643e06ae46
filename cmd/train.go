package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/harness"
	"github.com/metrolabs/beatcast/internal/panel"
	"github.com/metrolabs/beatcast/pkg/regress"
)

var trainCandidates []string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Compare count-regression models on the stored panel",
	Long:  "Splits the panel chronologically, cross-validates every candidate regressor on the training partition, scores each on held-out validation RMSE, and records the ranking.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("split"); err != nil {
			return err
		}
		if err := cfg.Validate("cv"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("command", "train"))

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cells, err := st.LoadPanel(ctx)
		if err != nil {
			return err
		}
		if len(cells) == 0 {
			return eris.New("train: no panel stored, run panel first")
		}

		trainCells, validCells := panel.Split(cells, cfg.Split.TrainFraction)
		trainDS := panel.Encode(trainCells)
		validDS := panel.Encode(validCells)

		candidates, err := selectCandidates(trainCandidates, cfg.CV.TuneLength)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx)
		if err != nil {
			return err
		}

		ranking, err := harness.Compare(ctx, trainDS, validDS, candidates, harness.Config{
			Folds:   cfg.CV.Folds,
			Repeats: cfg.CV.Repeats,
			Seed:    cfg.CV.Seed,
		})
		if err != nil {
			if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				log.Warn("train: failed to record run failure", zap.Error(ferr))
			}
			return err
		}

		if err := st.CompleteRun(ctx, run.ID, ranking); err != nil {
			return err
		}

		printRanking(ranking)
		log.Info("train complete", zap.String("run_id", run.ID))
		return nil
	},
}

// allCandidates builds the full candidate list with the configured tune
// length.
func allCandidates(tuneLength int) map[string]regress.Candidate {
	return map[string]regress.Candidate{
		"linear":         regress.NewLinear(),
		"elastic_net":    regress.NewElasticNet(0.5, tuneLength),
		"glm_poisson":    regress.NewGLM(),
		"additive_hinge": regress.NewAdditive(tuneLength),
		"tree_cart":      regress.NewTree(tuneLength),
	}
}

// selectCandidates resolves the --candidates flag; empty means all.
func selectCandidates(names []string, tuneLength int) ([]regress.Candidate, error) {
	all := allCandidates(tuneLength)
	if len(names) == 0 {
		out := make([]regress.Candidate, 0, len(all))
		for _, name := range []string{"linear", "elastic_net", "glm_poisson", "additive_hinge", "tree_cart"} {
			out = append(out, all[name])
		}
		return out, nil
	}
	out := make([]regress.Candidate, 0, len(names))
	for _, name := range names {
		cand, ok := all[name]
		if !ok {
			return nil, eris.Errorf("train: unknown candidate %q", name)
		}
		out = append(out, cand)
	}
	return out, nil
}

// printRanking writes the comparison table to stdout.
func printRanking(r *harness.Ranking) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tCANDIDATE\tCV R2\tVALIDATION RMSE\tBEST PARAMS")
	for i, res := range r.Ranked {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%s\n", i+1, res.Name, res.CVR2, res.ValidationRMSE, res.BestParams)
	}
	for _, res := range r.Failed {
		fmt.Fprintf(w, "-\t%s\tFAILED\t-\t%s\n", res.Name, res.FailReason)
	}
	w.Flush()
}

func init() {
	trainCmd.Flags().StringSliceVar(&trainCandidates, "candidates", nil, "subset of candidates to compare (default all)")
	rootCmd.AddCommand(trainCmd)
}
