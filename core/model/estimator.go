package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/dense"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit trains on X (n_samples x n_features) and the class column y.
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict returns one class per row of X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は教師あり学習モデルの基本インターフェース
type Estimator interface {
	Fitter
	Predictor
}

// LayoutEstimator fits and predicts on caller-owned buffers in either
// memory order, without first wrapping them in a matrix.
type LayoutEstimator interface {
	FitLayout(order dense.Order, rows, cols int, data []float64, ld int, labels []int) error
	PredictRaw(order dense.Order, rows, cols int, data []float64, ld int) ([]int, error)
}

// TreeModel は学習済みの木構造を問い合わせるためのインターフェース
type TreeModel interface {
	GetDepth() int
	GetNLeaves() int
	GetNNodes() int
	GetFeatureImportances() []float64
}
