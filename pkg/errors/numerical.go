package errors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CheckMatrix returns a ValueError naming the first NaN or Inf entry of m.
// Split search orders samples by value, which is undefined for NaN.
func CheckMatrix(op string, m mat.Matrix) error {
	rows, cols := m.Dims()
	if raw, ok := m.(mat.RawMatrixer); ok {
		g := raw.RawMatrix()
		for i := 0; i < rows; i++ {
			row := g.Data[i*g.Stride : i*g.Stride+cols]
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nonFinite(op, i, j, v)
				}
			}
		}
		return nil
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nonFinite(op, i, j, v)
			}
		}
	}
	return nil
}

// CheckFinite is CheckMatrix for a flat slice.
func CheckFinite(op string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValueError(op, fmt.Sprintf("non-finite value %v at index %d", v, i))
		}
	}
	return nil
}

func nonFinite(op string, i, j int, v float64) error {
	return NewValueError(op, fmt.Sprintf("non-finite value %v at (%d, %d)", v, i, j))
}
