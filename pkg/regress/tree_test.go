package regress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTree_StepFunction(t *testing.T) {
	// ten rows per side of a clean step; the single split recovers the exact
	// leaf means
	const n = 20
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		if i < 10 {
			y[i] = 1
		} else {
			y[i] = 5
		}
	}

	model, err := NewTree(4).Fit(x, y, Params{"max_depth": 2})
	require.NoError(t, err)

	pred := model.Predict(x)
	for i := 0; i < 10; i++ {
		assert.InDelta(t, 1, pred[i], 1e-12, "row %d", i)
	}
	for i := 10; i < n; i++ {
		assert.InDelta(t, 5, pred[i], 1e-12, "row %d", i)
	}
}

func TestTree_MinLeafRespected(t *testing.T) {
	// an outlier cluster smaller than the minimum leaf is never isolated
	const n = 12
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		y[i] = 0
	}
	y[n-1] = 100
	y[n-2] = 100

	model, err := NewTree(4).Fit(x, y, Params{"max_depth": 5})
	require.NoError(t, err)

	// any split leaving fewer than MinLeaf rows on a side is rejected, so the
	// two-row cluster shares a leaf with at least three zero rows
	pred := model.Predict(x)
	for _, p := range pred {
		assert.Less(t, p, 100.0)
	}
}

func TestTree_ConstantTarget(t *testing.T) {
	x := mat.NewDense(12, 1, nil)
	y := make([]float64, 12)
	for i := 0; i < 12; i++ {
		x.Set(i, 0, float64(i))
		y[i] = 3
	}

	model, err := NewTree(4).Fit(x, y, Params{"max_depth": 3})
	require.NoError(t, err)
	for _, p := range model.Predict(x) {
		assert.InDelta(t, 3, p, 1e-12)
	}
}

func TestTree_Grid(t *testing.T) {
	grid := NewTree(4).Grid()
	require.Len(t, grid, 4)
	assert.Equal(t, 2.0, grid[0]["max_depth"])
	assert.Equal(t, 5.0, grid[3]["max_depth"])
}
