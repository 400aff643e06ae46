package harness

import (
	"math/rand"
)

// foldAssignment holds one repeat's partition of row indices into k folds.
type foldAssignment [][]int

// makeFolds produces repeated k-fold assignments over n rows. Assignment is
// seeded so a comparison run is reproducible; every repeat reshuffles.
func makeFolds(n, folds, repeats int, seed int64) []foldAssignment {
	if folds > n {
		folds = n
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]foldAssignment, repeats)
	for r := 0; r < repeats; r++ {
		perm := rng.Perm(n)
		fa := make(foldAssignment, folds)
		for i, row := range perm {
			f := i % folds
			fa[f] = append(fa[f], row)
		}
		out[r] = fa
	}
	return out
}

// trainIndices returns all rows outside the held-out fold.
func (fa foldAssignment) trainIndices(held int, n int) []int {
	out := make([]int, 0, n)
	for f, rows := range fa {
		if f == held {
			continue
		}
		out = append(out, rows...)
	}
	return out
}
