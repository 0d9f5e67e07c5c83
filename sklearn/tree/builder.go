package tree

import (
	"math/rand"
	"strings"

	"github.com/YuminosukeSato/treeml/core/dense"
	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// BuildOrder is the order in which pending nodes are expanded.
type BuildOrder int

const (
	// BreadthFirst expands nodes level by level (FIFO).
	BreadthFirst BuildOrder = iota
	// DepthFirst expands the most recently added node first (LIFO).
	DepthFirst
)

func (o BuildOrder) String() string {
	if o == DepthFirst {
		return "depth-first"
	}
	return "breadth-first"
}

// ParseBuildOrder accepts "breadth", "breadth-first", "depth" and "depth-first".
func ParseBuildOrder(s string) (BuildOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breadth", "breadth-first":
		return BreadthFirst, nil
	case "depth", "depth-first":
		return DepthFirst, nil
	}
	return BreadthFirst, errors.NewValidationError("build_order", "must be depth-first or breadth-first", s)
}

// nodeQueue holds the indices of nodes waiting to be split.
type nodeQueue struct {
	order BuildOrder
	items []int
	head  int
}

func (q *nodeQueue) push(i int) { q.items = append(q.items, i) }

func (q *nodeQueue) empty() bool { return q.head == len(q.items) }

func (q *nodeQueue) pop() int {
	if q.order == DepthFirst {
		i := q.items[len(q.items)-1]
		q.items = q.items[:len(q.items)-1]
		return i
	}
	i := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	}
	return i
}

// builderConfig is the resolved hyperparameter set for one fit.
type builderConfig struct {
	criterion           Criterion
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	minSplitScore       float64
	maxFeatures         int
	featThresh          float64
	order               BuildOrder
	sortMethod          SortMethod
	withProba           bool
}

// builder grows one tree. It owns every scratch buffer used during fit.
type builder struct {
	cfg      builderConfig
	cols     dense.Columns
	y        []int
	nClasses int
	rng      *rand.Rand

	samples  []int
	values   []float64
	features []int
	queue    nodeQueue
	sorter   sampleSorter
	splitter *splitter
}

func newBuilder(cfg builderConfig, cols dense.Columns, y []int, nClasses int, rng *rand.Rand) *builder {
	_, nFeatures := cols.Dims()
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	return &builder{
		cfg:      cfg,
		cols:     cols,
		y:        y,
		nClasses: nClasses,
		rng:      rng,
		features: features,
		queue:    nodeQueue{order: cfg.order},
		sorter:   sampleSorter{method: cfg.sortMethod},
		splitter: newSplitter(cfg.criterion.scoreFunc(), nClasses, cfg.featThresh, cfg.minSamplesLeaf),
	}
}

// drawSamples fills the sample index array. Without bootstrap every row is
// used once in order. With bootstrap nObs rows are drawn uniformly with
// replacement, or copied from subset when one is supplied.
func (b *builder) drawSamples(nObs int, bootstrap bool, subset []int) {
	nSamples, _ := b.cols.Dims()
	b.samples = make([]int, nObs)
	b.values = make([]float64, nObs)
	switch {
	case !bootstrap:
		for i := range b.samples {
			b.samples[i] = i
		}
	case subset != nil:
		copy(b.samples, subset[:nObs])
	default:
		for i := range b.samples {
			b.samples[i] = b.rng.Intn(nSamples)
		}
	}
}

// expandable reports whether a freshly added node goes into the queue.
func (b *builder) expandable(n *Node) bool {
	return n.Score > b.cfg.minSplitScore &&
		n.NSamples >= b.cfg.minSamplesSplit &&
		n.Depth < b.cfg.maxDepth
}

// build grows the tree over the drawn samples.
func (b *builder) build() (*Tree, error) {
	_, nFeatures := b.cols.Dims()
	t := newTree(b.nClasses, nFeatures, initialCapacity(b.cfg.maxDepth), b.cfg.withProba)
	score := b.cfg.criterion.scoreFunc()
	sp := b.splitter
	nObs := len(b.samples)

	sp.countClasses(b.samples, b.y)
	root, err := t.addNode(Node{
		StartIdx: 0,
		EndIdx:   nObs - 1,
		NSamples: nObs,
		Score:    score(nObs, sp.counts),
	}, sp.counts)
	if err != nil {
		return nil, err
	}
	if b.expandable(&t.Nodes[root]) {
		b.queue.push(root)
	} else {
		t.NLeaves++
	}

	nFeat := b.cfg.maxFeatures
	if nFeat <= 0 || nFeat > nFeatures {
		nFeat = nFeatures
	}

	var cand, best split
	for !b.queue.empty() {
		idx := b.queue.pop()
		node := t.Nodes[idx]
		maxScore := node.Score - b.cfg.minImpurityDecrease

		if nFeat < nFeatures {
			b.rng.Shuffle(len(b.features), func(i, j int) {
				b.features[i], b.features[j] = b.features[j], b.features[i]
			})
		}
		best.score = node.Score
		best.feature = -1

		samples := b.samples[node.StartIdx : node.EndIdx+1]
		values := b.values[node.StartIdx : node.EndIdx+1]
		sp.countClasses(samples, b.y)
		for _, f := range b.features[:nFeat] {
			b.sorter.sort(samples, values, b.cols.Col(f))
			cand.feature = f
			sp.findBestSplit(node.Score, node.StartIdx, samples, values, b.y, maxScore, &cand)
			if cand.pos >= 0 && cand.score < best.score {
				best = cand
			}
		}

		if best.feature == -1 {
			t.NLeaves++
			continue
		}

		t.Nodes[idx].IsLeaf = false
		t.Nodes[idx].Feature = best.feature
		t.Nodes[idx].Threshold = best.threshold
		partition(samples, b.cols.Col(best.feature), best.threshold)

		// right child first, then left
		children := [2]Node{
			{StartIdx: best.pos + 1, EndIdx: node.EndIdx, Score: best.rightScore},
			{StartIdx: node.StartIdx, EndIdx: best.pos, Score: best.leftScore},
		}
		for k := range children {
			c := &children[k]
			c.Depth = node.Depth + 1
			c.NSamples = c.EndIdx - c.StartIdx + 1
			sp.countClasses(b.samples[c.StartIdx:c.EndIdx+1], b.y)
			ci, err := t.addNode(*c, sp.counts)
			if err != nil {
				return nil, err
			}
			if k == 0 {
				t.Nodes[idx].RightChild = ci
			} else {
				t.Nodes[idx].LeftChild = ci
			}
			if b.expandable(&t.Nodes[ci]) {
				b.queue.push(ci)
			} else {
				t.NLeaves++
			}
		}
	}
	return t, nil
}

// partition reorders samples in place so that every sample with
// col[sample] < threshold precedes the others.
func partition(samples []int, col []float64, threshold float64) {
	head, tail := 0, len(samples)-1
	for head < tail {
		if col[samples[head]] < threshold {
			head++
		} else {
			samples[head], samples[tail] = samples[tail], samples[head]
			tail--
		}
	}
}

// release drops the scratch buffers.
func (b *builder) release() {
	b.samples, b.values = nil, nil
	b.queue.items = nil
	b.sorter.radix = radixBuffers{}
}
