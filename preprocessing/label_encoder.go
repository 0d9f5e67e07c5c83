// Package preprocessing provides transformers applied before fitting.
package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/model"
	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// 任意の数値ラベルを 0..n_classes-1 の連番クラスに変換する
type LabelEncoder struct {
	state *model.StateManager

	// classes_ は昇順に並んだ元のラベル値
	classes_ []float64
	index    map[float64]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewLabelEncoder()
//	yEnc, err := enc.FitTransform(y)
//	err = clf.Fit(X, yEnc)
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

func column(op string, y mat.Matrix) ([]float64, error) {
	if y == nil {
		return nil, errors.NewPointerError(op, "y")
	}
	r, c := y.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty label vector")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf("labels must be a single column, got %d", c))
	}
	out := mat.Col(nil, 0, y)
	if err := errors.CheckFinite(op, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fit は出現したラベル値を昇順に記録する
func (e *LabelEncoder) Fit(y mat.Matrix) error {
	labels, err := column("LabelEncoder.Fit", y)
	if err != nil {
		return err
	}
	e.index = make(map[float64]int)
	for _, v := range labels {
		e.index[v] = 0
	}
	e.classes_ = make([]float64, 0, len(e.index))
	for v := range e.index {
		e.classes_ = append(e.classes_, v)
	}
	sort.Float64s(e.classes_)
	for k, v := range e.classes_ {
		e.index[v] = k
	}
	e.state.SetDimensions(1, len(labels))
	e.state.SetFitted()
	return nil
}

// Transform はラベルをクラス番号の n×1 行列に変換する。
// 学習時に現れなかったラベルは ValueError になる。
func (e *LabelEncoder) Transform(y mat.Matrix) (mat.Matrix, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	labels, err := column("LabelEncoder.Transform", y)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(labels), 1, nil)
	for i, v := range labels {
		k, ok := e.index[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("unseen label %v at row %d", v, i))
		}
		out.Set(i, 0, float64(k))
	}
	return out, nil
}

// FitTransform は Fit と Transform を続けて行う
func (e *LabelEncoder) FitTransform(y mat.Matrix) (mat.Matrix, error) {
	if err := e.Fit(y); err != nil {
		return nil, err
	}
	return e.Transform(y)
}

// InverseTransform はクラス番号を元のラベル値に戻す
func (e *LabelEncoder) InverseTransform(y mat.Matrix) (mat.Matrix, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	codes, err := column("LabelEncoder.InverseTransform", y)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(codes), 1, nil)
	for i, v := range codes {
		k := int(v)
		if float64(k) != v || k < 0 || k >= len(e.classes_) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("invalid class %v at row %d", v, i))
		}
		out.Set(i, 0, e.classes_[k])
	}
	return out, nil
}

// Classes returns the original label values in class order.
func (e *LabelEncoder) Classes() []float64 {
	return e.classes_
}

// NClasses returns the number of distinct labels seen by Fit.
func (e *LabelEncoder) NClasses() int {
	return len(e.classes_)
}
