package tree

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// Criterion is the impurity measure used to score nodes and candidate splits.
type Criterion string

const (
	// Gini impurity: 1 - Σ p_c².
	Gini Criterion = "gini"
	// Entropy (cross-entropy) in bits: -Σ p_c log2 p_c.
	Entropy Criterion = "entropy"
	// Misclassification rate: 1 - max p_c.
	Misclassification Criterion = "misclassification"
)

// ParseCriterion は文字列から Criterion を解決する。"cross-entropy" は Entropy の別名。
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gini":
		return Gini, nil
	case "entropy", "cross-entropy":
		return Entropy, nil
	case "misclassification":
		return Misclassification, nil
	}
	return "", errors.NewValidationError("criterion", "must be one of gini, entropy, misclassification", s)
}

// scoreFunc computes the impurity of a node holding n samples with the given
// per-class counts. n must be positive.
type scoreFunc func(n int, counts []int) float64

func (c Criterion) scoreFunc() scoreFunc {
	switch c {
	case Entropy:
		return entropyScore
	case Misclassification:
		return misclassificationScore
	default:
		return giniScore
	}
}

func giniScore(n int, counts []int) float64 {
	sumSq := 0
	for _, c := range counts {
		sumSq += c * c
	}
	return 1 - float64(sumSq)/(float64(n)*float64(n))
}

// entropyMinProp: proportions at or below it contribute nothing.
const entropyMinProp = 1e-5

func entropyScore(n int, counts []int) float64 {
	score := 0.0
	fn := float64(n)
	for _, c := range counts {
		p := float64(c) / fn
		if p > entropyMinProp {
			score -= p * math.Log2(p)
		}
	}
	return score
}

func misclassificationScore(n int, counts []int) float64 {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	return 1 - float64(maxCount)/float64(n)
}
