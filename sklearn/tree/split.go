package tree

// split is the best boundary found for one node and one feature.
// pos is the absolute index of the last sample going left; -1 means none.
type split struct {
	feature    int
	pos        int
	score      float64
	threshold  float64
	leftScore  float64
	rightScore float64
}

// splitter keeps the class histograms reused by every sweep.
type splitter struct {
	score    scoreFunc
	featTol  float64
	minLeaf  int
	counts   []int // classes of the node being treated
	leftCnt  []int
	rightCnt []int
}

func newSplitter(score scoreFunc, nClasses int, featTol float64, minLeaf int) *splitter {
	return &splitter{
		score:    score,
		featTol:  featTol,
		minLeaf:  minLeaf,
		counts:   make([]int, nClasses),
		leftCnt:  make([]int, nClasses),
		rightCnt: make([]int, nClasses),
	}
}

// countClasses fills s.counts with the class histogram of samples.
func (s *splitter) countClasses(samples []int, y []int) {
	for c := range s.counts {
		s.counts[c] = 0
	}
	for _, idx := range samples {
		s.counts[y[idx]]++
	}
}

// findBestSplit sweeps the boundary through a node whose samples are sorted
// by the candidate feature (values holds the sorted feature values, start is
// the node's first absolute position). A boundary is recorded only if its
// weighted impurity is below both the node score and maxScore. s.counts must
// hold the node's histogram.
func (s *splitter) findBestSplit(nodeScore float64, start int, samples []int, values []float64, y []int, maxScore float64, sp *split) {
	copy(s.rightCnt, s.counts)
	for c := range s.leftCnt {
		s.leftCnt[c] = 0
	}
	n := len(samples)
	nLeft, nRight := 0, n
	sp.score = nodeScore
	sp.pos = -1

	move := func(i int) {
		c := y[samples[i]]
		s.leftCnt[c]++
		s.rightCnt[c]--
		nLeft++
		nRight--
	}

	end := n - 1
	for i := 0; i < end; i++ {
		move(i)
		// never split between near-equal values
		for i+1 <= end && (values[i+1] == values[i] || abs(values[i+1]-values[i]) < s.featTol) {
			move(i + 1)
			i++
		}
		if i == end {
			break
		}
		if nLeft < s.minLeaf || nRight < s.minLeaf {
			continue
		}

		leftScore := s.score(nLeft, s.leftCnt)
		rightScore := s.score(nRight, s.rightCnt)
		score := (leftScore*float64(nLeft) + rightScore*float64(nRight)) / float64(n)
		if score < sp.score && score < maxScore {
			sp.score = score
			sp.pos = start + i
			sp.threshold = midpoint(values[i], values[i+1])
			sp.leftScore = leftScore
			sp.rightScore = rightScore
		}
	}
}

// midpoint returns a threshold t with a < t <= b.
func midpoint(a, b float64) float64 {
	t := (a + b) / 2
	if !(t > a && t <= b) {
		return b
	}
	return t
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
