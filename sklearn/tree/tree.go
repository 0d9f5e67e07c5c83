package tree

import (
	"math"

	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// Node is one element of a fitted tree. StartIdx and EndIdx delimit, inclusive,
// the node's samples in the training sample index array. Feature, Threshold
// and the child indices are meaningful only for internal nodes; leaves have
// LeftChild == RightChild == -1.
type Node struct {
	StartIdx   int
	EndIdx     int
	Depth      int
	NSamples   int
	Score      float64
	IsLeaf     bool
	Feature    int
	Threshold  float64
	LeftChild  int
	RightChild int
	YPred      int
}

// Tree is the flat array form of a decision tree. The root is Nodes[0].
// ClassProps holds NClasses proportions per node, row by row; it is empty
// when probability tracking was disabled at fit time.
type Tree struct {
	Nodes      []Node
	ClassProps []float64
	NClasses   int
	NFeatures  int
	NLeaves    int
	MaxDepth   int
	WithProba  bool
}

// initialCapacity is the node count of a full binary tree of depth
// min(maxDepth, 9), plus one.
func initialCapacity(maxDepth int) int {
	return 1<<essentials.MinInt(maxDepth, 9) + 1
}

// maxClassElements caps the class histogram storage a fit may request: three
// scratch histograms plus, with probabilities, one row per initial node.
const maxClassElements = 1 << 28

// checkClassStorage returns a MemoryError when nClasses would need more than
// maxClassElements histogram entries.
func checkClassStorage(nClasses, capacity int, withProba bool) error {
	perClass := 3
	if withProba {
		perClass += capacity
	}
	// a negative count is maxLabel+1 wrapping around
	if nClasses < 0 || nClasses > maxClassElements/perClass {
		requested := math.MaxInt
		if nClasses > 0 && nClasses <= math.MaxInt/perClass {
			requested = nClasses * perClass
		}
		return errors.NewMemoryError("Fit", requested)
	}
	return nil
}

func newTree(nClasses, nFeatures, capacity int, withProba bool) *Tree {
	t := &Tree{
		Nodes:     make([]Node, 0, capacity),
		NClasses:  nClasses,
		NFeatures: nFeatures,
		WithProba: withProba,
	}
	if withProba {
		t.ClassProps = make([]float64, 0, capacity*nClasses)
	}
	return t
}

// reserve makes room for one more node, growing capacity to 2*cap+1.
func (t *Tree) reserve() error {
	if len(t.Nodes) < cap(t.Nodes) {
		return nil
	}
	c := cap(t.Nodes)
	if c > (math.MaxInt-1)/2 || (t.WithProba && t.NClasses > 0 && 2*c+1 > math.MaxInt/t.NClasses) {
		return errors.NewMemoryError("Tree.grow", c)
	}
	newCap := 2*c + 1
	nodes := make([]Node, len(t.Nodes), newCap)
	copy(nodes, t.Nodes)
	t.Nodes = nodes
	if t.WithProba {
		props := make([]float64, len(t.ClassProps), newCap*t.NClasses)
		copy(props, t.ClassProps)
		t.ClassProps = props
	}
	return nil
}

// addNode appends a leaf built from the class histogram of its samples and
// returns its index.
func (t *Tree) addNode(n Node, counts []int) (int, error) {
	if err := t.reserve(); err != nil {
		return -1, err
	}
	n.IsLeaf = true
	n.LeftChild, n.RightChild = -1, -1
	n.YPred = argmax(counts)
	t.Nodes = append(t.Nodes, n)
	if t.WithProba {
		inv := 1 / float64(n.NSamples)
		for _, c := range counts {
			t.ClassProps = append(t.ClassProps, float64(c)*inv)
		}
	}
	if n.Depth > t.MaxDepth {
		t.MaxDepth = n.Depth
	}
	return len(t.Nodes) - 1, nil
}

// argmax returns the first index holding the largest count.
func argmax(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// NNodes returns the number of nodes.
func (t *Tree) NNodes() int { return len(t.Nodes) }

// Depth returns the depth of the deepest node; a lone root has depth 0.
func (t *Tree) Depth() int { return t.MaxDepth }

// Proba returns the class proportions of node i. The slice aliases the tree.
func (t *Tree) Proba(i int) []float64 {
	return t.ClassProps[i*t.NClasses : (i+1)*t.NClasses]
}

// Apply returns the index of the leaf reached by the sample row.
func (t *Tree) Apply(row []float64) int {
	i := 0
	for !t.Nodes[i].IsLeaf {
		n := &t.Nodes[i]
		if row[n.Feature] < n.Threshold {
			i = n.LeftChild
		} else {
			i = n.RightChild
		}
	}
	return i
}

// Leaves returns the indices of all leaves in node order.
func (t *Tree) Leaves() []int {
	var leaves []int
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// FeatureImportances returns the total weighted impurity decrease brought by
// each feature, normalized to sum to 1. All zeros when the tree never split.
func (t *Tree) FeatureImportances() []float64 {
	imp := make([]float64, t.NFeatures)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsLeaf {
			continue
		}
		l, r := &t.Nodes[n.LeftChild], &t.Nodes[n.RightChild]
		imp[n.Feature] += float64(n.NSamples)*n.Score -
			float64(l.NSamples)*l.Score - float64(r.NSamples)*r.Score
	}
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp
}
