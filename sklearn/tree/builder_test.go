package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// blobs returns n samples with nFeatures gaussian features. The class is
// decided by the first two features, with a few labels flipped.
func blobs(n, nFeatures, nClasses int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, nFeatures, nil)
	y := mat.NewDense(n, 1, nil)
	noise := distuv.Uniform{Min: 0, Max: 1}
	for i := 0; i < n; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, distuv.Normal{Mu: 0, Sigma: 1}.Rand())
		}
		s := X.At(i, 0) + 0.5*X.At(i, 1)
		c := int(math.Floor((s + 2) / 4 * float64(nClasses)))
		if c < 0 {
			c = 0
		}
		if c >= nClasses {
			c = nClasses - 1
		}
		if noise.Rand() < 0.05 {
			c = (c + 1) % nClasses
		}
		y.Set(i, 0, float64(c))
	}
	return X, y
}

// checkTreeInvariants verifies the structural properties every fitted tree
// must satisfy.
func checkTreeInvariants(t *testing.T, dt *DecisionTreeClassifier, X mat.Matrix) {
	t.Helper()
	tr := dt.Tree()
	require.NotNil(t, tr)
	samples := dt.SampleIndices()
	require.NotNil(t, samples)

	root := tr.Nodes[0]
	assert.Equal(t, 0, root.StartIdx)
	assert.Equal(t, len(samples)-1, root.EndIdx)
	assert.Equal(t, 0, root.Depth)

	covered := make([]int, len(samples))
	nLeaves := 0
	for i, n := range tr.Nodes {
		assert.Equal(t, n.EndIdx-n.StartIdx+1, n.NSamples, "node %d", i)
		if n.IsLeaf {
			nLeaves++
			assert.Equal(t, -1, n.LeftChild)
			assert.Equal(t, -1, n.RightChild)
			for k := n.StartIdx; k <= n.EndIdx; k++ {
				covered[k]++
			}
			continue
		}
		l, r := tr.Nodes[n.LeftChild], tr.Nodes[n.RightChild]
		assert.Equal(t, n.StartIdx, l.StartIdx, "node %d", i)
		assert.Equal(t, l.EndIdx+1, r.StartIdx, "node %d", i)
		assert.Equal(t, n.EndIdx, r.EndIdx, "node %d", i)
		assert.Equal(t, n.Depth+1, l.Depth)
		assert.Equal(t, n.Depth+1, r.Depth)
		// right child is appended before the left one
		assert.Equal(t, n.RightChild+1, n.LeftChild)
		for k := l.StartIdx; k <= l.EndIdx; k++ {
			assert.Less(t, X.At(samples[k], n.Feature), n.Threshold)
		}
		for k := r.StartIdx; k <= r.EndIdx; k++ {
			assert.GreaterOrEqual(t, X.At(samples[k], n.Feature), n.Threshold)
		}
	}
	for k, c := range covered {
		assert.Equal(t, 1, c, "position %d covered %d times by leaves", k, c)
	}
	assert.Equal(t, nLeaves, tr.NLeaves)
	assert.Len(t, tr.Leaves(), nLeaves)

	if tr.WithProba {
		for i := range tr.Nodes {
			sum := 0.0
			for _, p := range tr.Proba(i) {
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-12, "node %d", i)
		}
	}
}

func TestBuilder_Invariants(t *testing.T) {
	X, y := blobs(400, 4, 3)

	configs := map[string][]DecisionTreeOption{
		"default":           nil,
		"depth-first":       {WithBuildOrder(DepthFirst)},
		"entropy":           {WithCriterion("entropy")},
		"misclassification": {WithCriterion("misclassification"), WithSortMethod(ComparisonSort)},
		"max-features":      {WithMaxFeatures(2), WithRandomState(5)},
		"min-leaf":          {WithMinSamplesLeaf(7), WithMinSamplesSplit(20)},
		"bootstrap":         {WithBootstrap(true), WithRandomState(9)},
		"bootstrap-n-obs":   {WithBootstrap(true), WithNObs(150), WithRandomState(9)},
		"no-proba":          {WithPredictProba(false), WithMaxDepth(4)},
	}
	for name, opts := range configs {
		t.Run(name, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(opts...)
			require.NoError(t, dt.Fit(X, y))
			checkTreeInvariants(t, dt, X)
		})
	}
}

func TestBuilder_MaxDepthZeroIsSingleLeaf(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	y := mat.NewDense(5, 1, []float64{1, 0, 1, 1, 0})

	dt := NewDecisionTreeClassifier(WithMaxDepth(0))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.GetNNodes())
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, 0, dt.GetDepth())

	pred, err := dt.Predict(mat.NewDense(3, 1, []float64{-10, 2, 10}))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, pred.At(i, 0))
	}
}

func TestBuilder_MinSamplesSplitAboveDataset(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMinSamplesSplit(5))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.GetNNodes())
	assert.Equal(t, 1, dt.GetNLeaves())
}

func TestBuilder_SingleSplitScenario(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(1), WithCriterion("gini"))
	require.NoError(t, dt.Fit(X, y))

	tr := dt.Tree()
	require.Equal(t, 3, tr.NNodes())
	root := tr.Nodes[0]
	assert.False(t, root.IsLeaf)
	assert.Equal(t, 0, root.Feature)
	assert.InDelta(t, 1.5, root.Threshold, 1e-12)
	assert.Equal(t, 1, root.RightChild)
	assert.Equal(t, 2, root.LeftChild)
	assert.Equal(t, 0, tr.Nodes[root.LeftChild].YPred)
	assert.Equal(t, 1, tr.Nodes[root.RightChild].YPred)
	assert.Equal(t, 2, tr.NLeaves)

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{0.5, 2.5}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestBuilder_FirstFeatureWinsTies(t *testing.T) {
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	small := []float64{0, 1, 2, 3}
	large := []float64{10, 20, 30, 40}

	columns := func(cols ...[]float64) *mat.Dense {
		X := mat.NewDense(4, len(cols), nil)
		for j, c := range cols {
			X.SetCol(j, c)
		}
		return X
	}

	tests := []struct {
		name      string
		X         *mat.Dense
		threshold float64
	}{
		{"identical columns", columns(small, small), 1.5},
		{"small first", columns(small, large), 1.5},
		{"large first", columns(large, small), 25},
	}
	for _, tt := range tests {
		for _, maxFeatures := range []int{0, 2} {
			dt := NewDecisionTreeClassifier(WithMaxFeatures(maxFeatures), WithRandomState(11))
			require.NoError(t, dt.Fit(tt.X, y), tt.name)

			root := dt.Tree().Nodes[0]
			require.False(t, root.IsLeaf, tt.name)
			assert.Equal(t, 0, root.Feature, "%s, max_features=%d", tt.name, maxFeatures)
			assert.InDelta(t, tt.threshold, root.Threshold, 1e-12, tt.name)
			assert.Equal(t, 3, dt.GetNNodes(), tt.name)
		}
	}
}

func TestBuilder_ConstantFeaturesGiveLeaf(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		3, 7,
		3, 7,
		3, 7,
		3, 7,
		3, 7,
		3, 7,
	})
	y := mat.NewDense(6, 1, []float64{0, 1, 0, 1, 0, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.GetNNodes())
	assert.True(t, dt.Tree().Nodes[0].IsLeaf)
	assert.Equal(t, 0, dt.Tree().Nodes[0].YPred, "first class with the maximum count")
}

func TestBuilder_DeterministicWithSeed(t *testing.T) {
	X, y := blobs(300, 5, 3)

	for _, opts := range [][]DecisionTreeOption{
		{WithRandomState(42)},
		{WithRandomState(42), WithMaxFeatures(2)},
		{WithRandomState(42), WithBootstrap(true)},
	} {
		a := NewDecisionTreeClassifier(opts...)
		b := NewDecisionTreeClassifier(opts...)
		require.NoError(t, a.Fit(X, y))
		require.NoError(t, b.Fit(X, y))
		assert.Equal(t, a.Tree(), b.Tree())
		assert.Equal(t, a.SampleIndices(), b.SampleIndices())
	}
}

func TestBuilder_BuildOrderGivesSameModel(t *testing.T) {
	X, y := blobs(300, 3, 2)

	bf := NewDecisionTreeClassifier(WithBuildOrder(BreadthFirst))
	df := NewDecisionTreeClassifier(WithBuildOrder(DepthFirst))
	require.NoError(t, bf.Fit(X, y))
	require.NoError(t, df.Fit(X, y))

	assert.Equal(t, bf.GetNNodes(), df.GetNNodes())
	assert.Equal(t, bf.GetNLeaves(), df.GetNLeaves())
	assert.Equal(t, bf.GetDepth(), df.GetDepth())

	pb, err := bf.PredictProba(X)
	require.NoError(t, err)
	pd, err := df.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pb, pd))
}

func TestBuilder_SortMethodsGiveSameTree(t *testing.T) {
	X, y := blobs(500, 4, 3)

	radix := NewDecisionTreeClassifier(WithSortMethod(RadixSort))
	cmp := NewDecisionTreeClassifier(WithSortMethod(ComparisonSort))
	require.NoError(t, radix.Fit(X, y))
	require.NoError(t, cmp.Fit(X, y))
	assert.Equal(t, radix.Tree(), cmp.Tree())
}

func TestBuilder_SampleSubset(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(
		WithBootstrap(true),
		WithNObs(4),
		WithSampleSubset([]int{0, 0, 4, 5}),
	)
	require.NoError(t, dt.Fit(X, y))
	info, err := dt.Info()
	require.NoError(t, err)
	assert.Equal(t, 4, info.NObs)
	assert.Equal(t, 6, info.NSamples)

	root := dt.Tree().Nodes[0]
	assert.Equal(t, 4, root.NSamples)
	assert.InDelta(t, 2.0, root.Threshold, 1e-12, "midpoint of 0 and 4")
	assert.ElementsMatch(t, []int{0, 0, 4, 5}, dt.SampleIndices())
}

func TestNodeQueue(t *testing.T) {
	fifo := nodeQueue{order: BreadthFirst}
	lifo := nodeQueue{order: DepthFirst}
	for i := 0; i < 4; i++ {
		fifo.push(i)
		lifo.push(i)
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, i, fifo.pop())
		assert.Equal(t, 3-i, lifo.pop())
	}
	assert.True(t, fifo.empty())
	assert.True(t, lifo.empty())
}

func TestInitialCapacity(t *testing.T) {
	assert.Equal(t, 2, initialCapacity(0))
	assert.Equal(t, 9, initialCapacity(3))
	assert.Equal(t, 513, initialCapacity(9))
	assert.Equal(t, 513, initialCapacity(29))
}

func TestTreeGrowth(t *testing.T) {
	tr := newTree(2, 1, 2, true)
	for i := 0; i < 10; i++ {
		_, err := tr.addNode(Node{NSamples: 2}, []int{1, 1})
		require.NoError(t, err)
	}
	assert.Equal(t, 10, tr.NNodes())
	// 2 -> 5 -> 11
	assert.Equal(t, 11, cap(tr.Nodes))
	assert.Len(t, tr.ClassProps, 20)
	assert.Equal(t, []float64{0.5, 0.5}, tr.Proba(9))
}

func BenchmarkFit(b *testing.B) {
	X, y := blobs(5000, 10, 4)
	for _, m := range []SortMethod{ComparisonSort, RadixSort} {
		b.Run(m.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				dt := NewDecisionTreeClassifier(WithSortMethod(m), WithRandomState(1))
				if err := dt.Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
