package regress

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// Tree is a CART regression tree splitting on squared-error reduction. The
// grid tunes maximum depth; minimum leaf size scales with it.
type Tree struct {
	TuneLength int
	MinLeaf    int
}

// NewTree returns the regression tree candidate.
func NewTree(tuneLength int) *Tree {
	return &Tree{TuneLength: tuneLength, MinLeaf: 5}
}

func (t *Tree) Name() string { return "tree_cart" }

// Grid tunes max depth from 2 upward.
func (t *Tree) Grid() []Params {
	n := t.TuneLength
	if n < 1 {
		n = 4
	}
	grid := make([]Params, n)
	for i := 0; i < n; i++ {
		grid[i] = Params{"max_depth": float64(i + 2)}
	}
	return grid
}

// Fit grows a tree to the given depth.
func (t *Tree) Fit(x *mat.Dense, y []float64, p Params) (Model, error) {
	maxDepth := int(p["max_depth"])
	if maxDepth < 1 {
		maxDepth = 4
	}
	n, _ := x.Dims()
	if n == 0 {
		return nil, eris.New("tree: empty design matrix")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	root := grow(x, y, idx, maxDepth, t.MinLeaf)
	return &treeModel{root: root}, nil
}

type treeNode struct {
	// Leaf prediction; split fields are zero-valued on leaves.
	value float64

	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

// grow recursively builds the tree over the rows in idx.
func grow(x *mat.Dense, y []float64, idx []int, depth, minLeaf int) *treeNode {
	node := &treeNode{value: meanAt(y, idx)}
	if depth == 0 || len(idx) < 2*minLeaf {
		return node
	}

	feature, threshold, ok := bestSplit(x, y, idx, minLeaf)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < minLeaf || len(right) < minLeaf {
		return node
	}

	node.feature = feature
	node.threshold = threshold
	node.left = grow(x, y, left, depth-1, minLeaf)
	node.right = grow(x, y, right, depth-1, minLeaf)
	return node
}

// bestSplit scans every feature for the threshold with the largest
// squared-error reduction, using sorted running sums per feature.
func bestSplit(x *mat.Dense, y []float64, idx []int, minLeaf int) (feature int, threshold float64, ok bool) {
	_, p := x.Dims()
	n := len(idx)

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	best := parentSSE - 1e-12
	order := make([]int, n)

	for j := 0; j < p; j++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x.At(order[a], j) < x.At(order[b], j) })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// Can only split between distinct feature values.
			if x.At(order[k], j) == x.At(order[k+1], j) {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if sse < best {
				best = sse
				feature = j
				threshold = (x.At(order[k], j) + x.At(order[k+1], j)) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

type treeModel struct {
	root *treeNode
}

func (m *treeModel) Predict(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		node := m.root
		for !node.isLeaf() {
			if x.At(i, node.feature) <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		out[i] = node.value
	}
	return out
}
