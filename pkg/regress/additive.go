package regress

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// Additive is a spline-flavored additive model: each continuous feature is
// expanded into hinge functions max(0, x - knot) at quantile knots, and the
// expanded basis is fitted by least squares. Dummy columns are detected by
// their distinct-value count and kept linear. The grid tunes the number of
// knots per feature.
type Additive struct {
	TuneLength int
}

// NewAdditive returns the hinge-basis additive candidate.
func NewAdditive(tuneLength int) *Additive {
	return &Additive{TuneLength: tuneLength}
}

func (a *Additive) Name() string { return "additive_hinge" }

// Grid tunes knots per continuous feature from 1 up to the tune length.
func (a *Additive) Grid() []Params {
	n := a.TuneLength
	if n < 1 {
		n = 3
	}
	grid := make([]Params, n)
	for i := 0; i < n; i++ {
		grid[i] = Params{"knots": float64(i + 1)}
	}
	return grid
}

// Fit expands the basis and solves least squares on it.
func (a *Additive) Fit(x *mat.Dense, y []float64, p Params) (Model, error) {
	knotsPer := int(p["knots"])
	if knotsPer < 1 {
		knotsPer = 1
	}
	n, cols := x.Dims()
	if n == 0 {
		return nil, eris.New("additive: empty design matrix")
	}

	knots := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		knots[j] = quantileKnots(colValues(x, j), knotsPer)
	}

	basis := expandHinges(x, knots)
	coef, err := solveLeastSquares(addIntercept(basis), y)
	if err != nil {
		return nil, eris.Wrap(err, "additive: solve")
	}
	return &additiveModel{coef: coef, knots: knots}, nil
}

type additiveModel struct {
	coef  []float64 // intercept first
	knots [][]float64
}

func (m *additiveModel) Predict(x *mat.Dense) []float64 {
	basis := expandHinges(x, m.knots)
	n, p := basis.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.coef[0]
		for j := 0; j < p; j++ {
			v += m.coef[j+1] * basis.At(i, j)
		}
		out[i] = v
	}
	return out
}

// expandHinges builds [x_j, max(0, x_j - k)...] columns for every feature.
// Features with no knots (dummies) contribute only their linear column.
func expandHinges(x *mat.Dense, knots [][]float64) *mat.Dense {
	n, cols := x.Dims()
	total := 0
	for j := 0; j < cols; j++ {
		total += 1 + len(knots[j])
	}
	out := mat.NewDense(n, total, nil)
	for i := 0; i < n; i++ {
		c := 0
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			out.Set(i, c, v)
			c++
			for _, k := range knots[j] {
				h := v - k
				if h < 0 {
					h = 0
				}
				out.Set(i, c, h)
				c++
			}
		}
	}
	return out
}

// quantileKnots places count knots at interior quantiles of vals. Columns
// with at most three distinct values (dummies, near-constants) get none.
func quantileKnots(vals []float64, count int) []float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	if distinct <= 3 {
		return nil
	}

	knots := make([]float64, 0, count)
	for i := 1; i <= count; i++ {
		q := float64(i) / float64(count+1)
		knot := sorted[int(q*float64(len(sorted)-1))]
		// Skip duplicate knots from heavily tied columns.
		if len(knots) == 0 || knot > knots[len(knots)-1] {
			knots = append(knots, knot)
		}
	}
	return knots
}

func colValues(x *mat.Dense, j int) []float64 {
	n, _ := x.Dims()
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = x.At(i, j)
	}
	return vals
}
