package regress

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// Linear is ordinary least squares, solved by QR factorization. It has no
// tunables and serves as the comparison baseline.
type Linear struct{}

// NewLinear returns the OLS candidate.
func NewLinear() *Linear { return &Linear{} }

func (l *Linear) Name() string   { return "linear" }
func (l *Linear) Grid() []Params { return []Params{{}} }

// Fit solves min ||Xb - y|| with an intercept column.
func (l *Linear) Fit(x *mat.Dense, y []float64, _ Params) (Model, error) {
	coef, err := solveLeastSquares(addIntercept(x), y)
	if err != nil {
		return nil, eris.Wrap(err, "linear: solve")
	}
	return &linearModel{coef: coef}, nil
}

type linearModel struct {
	coef []float64 // intercept first
}

func (m *linearModel) Predict(x *mat.Dense) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.coef[0]
		for j := 0; j < p; j++ {
			v += m.coef[j+1] * x.At(i, j)
		}
		out[i] = v
	}
	return out
}

// solveLeastSquares returns the minimum-norm least squares solution of
// Xb = y via QR. A rank-deficient design surfaces as an error.
func solveLeastSquares(x *mat.Dense, y []float64) ([]float64, error) {
	n, p := x.Dims()
	if n < p {
		return nil, eris.Errorf("regress: %d rows for %d coefficients", n, p)
	}

	var qr mat.QR
	qr.Factorize(x)

	yv := mat.NewVecDense(n, y)
	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, yv); err != nil {
		return nil, eris.Wrap(err, "regress: qr solve")
	}

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = b.AtVec(j)
	}
	return coef, nil
}
