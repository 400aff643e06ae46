// Package regress provides the model fitting capability behind the
// comparison harness: a uniform fit/predict contract and concrete
// count-regression families (ordinary least squares, elastic net, log-link
// Poisson-family GLM, hinge-basis additive model, CART regression tree).
// The harness treats every family identically through the Candidate
// interface and never reaches into a family's internals.
package regress

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Params is one point of a candidate's hyperparameter grid.
type Params map[string]float64

// String renders params in a stable order for logging.
func (p Params) String() string {
	if len(p) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, p[k])
	}
	return s + "}"
}

// Model is a fitted regressor.
type Model interface {
	// Predict returns one prediction per row of x.
	Predict(x *mat.Dense) []float64
}

// Candidate is one regression family. Grid returns the family's explicit
// hyperparameter search grid; families without tunables return a single
// empty Params. Fit must return an error, not panic, on numerical failure
// (singular systems, non-convergence).
type Candidate interface {
	Name() string
	Grid() []Params
	Fit(x *mat.Dense, y []float64, p Params) (Model, error)
}

// addIntercept prepends a column of ones to x.
func addIntercept(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	out := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			out.Set(i, j+1, x.At(i, j))
		}
	}
	return out
}

// columnStats returns per-column means and standard deviations of x.
// Constant columns get a standard deviation of 1 so scaling is a no-op.
func columnStats(x *mat.Dense) (means, sds []float64) {
	n, p := x.Dims()
	means = make([]float64, p)
	sds = make([]float64, p)
	for j := 0; j < p; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		means[j] = sum / float64(n)
		var ss float64
		for i := 0; i < n; i++ {
			d := x.At(i, j) - means[j]
			ss += d * d
		}
		sds[j] = 1
		if ss > 0 {
			sds[j] = math.Sqrt(ss / float64(n))
		}
	}
	return means, sds
}
