// Package metrics provides evaluation scores for classifiers.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// checkPair は2つのラベルベクトルの長さを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率（予測が正解ラベルと一致した割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 1 - Accuracy を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// AccuracyScore は n×1 行列形式のラベルに対して正解率を計算する
func AccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AccuracyScore", "empty matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("AccuracyScore", "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AccuracyScore", rTrue, rPred, 0)
	}

	return Accuracy(columnVec(yTrue), columnVec(yPred))
}

func columnVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// ConfusionMatrix は nClasses×nClasses の混同行列を返す。
// 要素 (i, j) は真のクラスが i で予測が j のサンプル数。
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if nClasses <= 0 {
		return nil, errors.NewValidationError("nClasses", "must be positive", nClasses)
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < n; i++ {
		t, err := classIndex("ConfusionMatrix", yTrue.AtVec(i), nClasses)
		if err != nil {
			return nil, err
		}
		p, err := classIndex("ConfusionMatrix", yPred.AtVec(i), nClasses)
		if err != nil {
			return nil, err
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

func classIndex(op string, v float64, nClasses int) (int, error) {
	c := int(v)
	if float64(c) != v || c < 0 || c >= nClasses {
		return 0, errors.NewValueError(op, fmt.Sprintf("label %v is not a class in [0, %d)", v, nClasses))
	}
	return c, nil
}

// BalancedAccuracy はクラスごとの再現率の平均を計算する。
// 真のサンプルが存在しないクラスは平均から除外し、UndefinedMetricWarning を発行する。
func BalancedAccuracy(yTrue, yPred *mat.VecDense, nClasses int) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, nClasses)
	if err != nil {
		return 0, err
	}

	sum, defined := 0.0, 0
	for c := 0; c < nClasses; c++ {
		support := mat.Sum(cm.RowView(c))
		if support == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("BalancedAccuracy",
				fmt.Sprintf("class %d has no true samples", c), 0))
			continue
		}
		sum += cm.At(c, c) / support
		defined++
	}
	return sum / float64(defined), nil
}
