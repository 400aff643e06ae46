package harness

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metrolabs/beatcast/internal/panel"
	"github.com/metrolabs/beatcast/pkg/regress"
)

// ErrNoCandidates is returned when every candidate failed; a comparison run
// must never report an empty ranking as success.
var ErrNoCandidates = eris.New("harness: zero candidates succeeded")

// Config controls the comparison protocol.
type Config struct {
	Folds   int
	Repeats int
	Seed    int64
	// Workers bounds candidate-level parallelism; 0 means all candidates
	// at once.
	Workers int
}

// Result is one candidate's outcome. A failed candidate carries FailReason
// and is excluded from the ranking.
type Result struct {
	Name           string         `json:"name"`
	BestParams     regress.Params `json:"best_params,omitempty"`
	CVR2           float64        `json:"cv_r2"`
	ValidationRMSE float64        `json:"validation_rmse"`
	FailReason     string         `json:"fail_reason,omitempty"`
}

// Ranking is the harness output: candidates ordered by validation RMSE
// ascending, with CV R² reported alongside, plus the failed list.
type Ranking struct {
	Ranked []Result `json:"ranked"`
	Failed []Result `json:"failed"`
}

// Compare runs repeated k-fold cross-validation on the training partition
// for every candidate over its own hyperparameter grid, refits each
// candidate's best configuration on the full training set, and scores it
// once on the held-out validation partition. Candidates run in parallel and
// fail independently: a fit error or panic records the candidate as failed
// and the run continues. Only zero survivors is an error.
func Compare(ctx context.Context, train, valid *panel.Dataset, candidates []regress.Candidate, cfg Config) (*Ranking, error) {
	if train.Rows() == 0 || valid.Rows() == 0 {
		return nil, eris.New("harness: empty train or validation partition")
	}
	if len(candidates) == 0 {
		return nil, eris.New("harness: no candidates given")
	}

	folds := makeFolds(train.Rows(), cfg.Folds, cfg.Repeats, cfg.Seed)

	var mu sync.Mutex
	ranking := &Ranking{}

	eg, egCtx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		eg.SetLimit(cfg.Workers)
	}
	for _, cand := range candidates {
		cand := cand
		eg.Go(func() error {
			res := evaluate(egCtx, cand, train, valid, folds)
			mu.Lock()
			defer mu.Unlock()
			if res.FailReason != "" {
				zap.L().Warn("harness: candidate failed, excluded from ranking",
					zap.String("candidate", res.Name),
					zap.String("reason", res.FailReason),
				)
				ranking.Failed = append(ranking.Failed, res)
			} else {
				ranking.Ranked = append(ranking.Ranked, res)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if len(ranking.Ranked) == 0 {
		return nil, eris.Wrapf(ErrNoCandidates, "%d candidates failed", len(ranking.Failed))
	}

	sort.Slice(ranking.Ranked, func(i, j int) bool {
		return ranking.Ranked[i].ValidationRMSE < ranking.Ranked[j].ValidationRMSE
	})

	zap.L().Info("harness: comparison complete",
		zap.Int("ranked", len(ranking.Ranked)),
		zap.Int("failed", len(ranking.Failed)),
		zap.String("best", ranking.Ranked[0].Name),
		zap.Float64("best_rmse", ranking.Ranked[0].ValidationRMSE),
	)
	return ranking, nil
}

// evaluate cross-validates one candidate over its grid and scores the best
// configuration out of sample. Panics inside a candidate's fit are converted
// to a failure result.
func evaluate(ctx context.Context, cand regress.Candidate, train, valid *panel.Dataset, folds []foldAssignment) (res Result) {
	res.Name = cand.Name()
	defer func() {
		if r := recover(); r != nil {
			res.FailReason = eris.Errorf("candidate panic: %v", r).Error()
		}
	}()

	grid := cand.Grid()
	if len(grid) == 0 {
		grid = []regress.Params{{}}
	}

	bestR2 := math.Inf(-1)
	var bestParams regress.Params
	for _, params := range grid {
		if ctx.Err() != nil {
			res.FailReason = ctx.Err().Error()
			return res
		}
		r2, err := crossValidate(cand, params, train, folds)
		if err != nil {
			// One grid point failing does not sink the candidate unless
			// every point fails.
			zap.L().Debug("harness: grid point failed",
				zap.String("candidate", cand.Name()),
				zap.String("params", params.String()),
				zap.Error(err),
			)
			continue
		}
		if r2 > bestR2 {
			bestR2 = r2
			bestParams = params
		}
	}
	if bestParams == nil {
		res.FailReason = "all hyperparameter grid points failed cross-validation"
		return res
	}

	model, err := cand.Fit(train.X, train.Y, bestParams)
	if err != nil {
		res.FailReason = eris.Wrap(err, "refit on full training set").Error()
		return res
	}

	res.BestParams = bestParams
	res.CVR2 = bestR2
	res.ValidationRMSE = RMSE(valid.Y, model.Predict(valid.X))
	return res
}

// crossValidate returns the mean held-out R² of one grid point across all
// repeats and folds.
func crossValidate(cand regress.Candidate, params regress.Params, train *panel.Dataset, folds []foldAssignment) (float64, error) {
	var sum float64
	var n int
	for _, fa := range folds {
		for held := range fa {
			if len(fa[held]) == 0 {
				continue
			}
			fitIdx := fa.trainIndices(held, train.Rows())
			fit := train.Subset(fitIdx)
			hold := train.Subset(fa[held])

			model, err := cand.Fit(fit.X, fit.Y, params)
			if err != nil {
				return 0, err
			}
			sum += RSquared(hold.Y, model.Predict(hold.X))
			n++
		}
	}
	if n == 0 {
		return 0, eris.New("harness: no usable folds")
	}
	return sum / float64(n), nil
}
