package regress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func elasticTestData(n int) (*mat.Dense, []float64) {
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := float64(i % 10)
		x2 := float64((i * 3) % 7)
		x.Set(i, 0, x1)
		x.Set(i, 1, x2)
		y[i] = 1 + 2*x1 - 0.5*x2
	}
	return x, y
}

func TestElasticNet_ZeroLambda(t *testing.T) {
	x, y := elasticTestData(40)

	model, err := NewElasticNet(0.5, 5).Fit(x, y, Params{"lambda": 0})
	require.NoError(t, err)

	// with no penalty coordinate descent converges to the least squares fit
	pred := model.Predict(x)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 1e-3, "row %d", i)
	}
}

func TestElasticNet_LargeLambda(t *testing.T) {
	x, y := elasticTestData(40)

	model, err := NewElasticNet(0.5, 5).Fit(x, y, Params{"lambda": 1e6})
	require.NoError(t, err)

	// the penalty dominates: every coefficient shrinks to zero and the model
	// predicts the target mean
	mean := stat.Mean(y, nil)
	for _, p := range model.Predict(x) {
		assert.InDelta(t, mean, p, 1e-9)
	}
}

func TestElasticNet_NegativeLambda(t *testing.T) {
	x, y := elasticTestData(10)
	_, err := NewElasticNet(0.5, 5).Fit(x, y, Params{"lambda": -1})
	assert.Error(t, err)
}

func TestElasticNet_Grid(t *testing.T) {
	grid := NewElasticNet(0.5, 5).Grid()
	require.Len(t, grid, 5)

	assert.InDelta(t, 1.0, grid[0]["lambda"], 1e-12)
	assert.InDelta(t, 1e-3, grid[4]["lambda"], 1e-12)
	for i := 1; i < len(grid); i++ {
		assert.Less(t, grid[i]["lambda"], grid[i-1]["lambda"])
	}
}
