package main

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/dense"
	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// table is a feature matrix kept in the memory order of its .npy file:
// C-ordered arrays are row-major, Fortran-ordered arrays column-major.
type table struct {
	order      dense.Order
	rows, cols int
	data       []float64
}

// ld returns the leading dimension of the packed buffer.
func (t *table) ld() int {
	if t.order == dense.ColumnMajor {
		return t.rows
	}
	return t.cols
}

// matrix views the table without copying.
func (t *table) matrix() (mat.Matrix, error) {
	return dense.View(t.order, t.rows, t.cols, t.data, t.ld())
}

// reorder repacks the table into order.
func (t *table) reorder(order dense.Order) {
	if order == t.order {
		return
	}
	data := make([]float64, len(t.data))
	for i := 0; i < t.rows; i++ {
		for j := 0; j < t.cols; j++ {
			if order == dense.ColumnMajor {
				data[j*t.rows+i] = t.data[i*t.cols+j]
			} else {
				data[i*t.cols+j] = t.data[j*t.rows+i]
			}
		}
	}
	t.order, t.data = order, data
}

// readTable loads a 1-D or 2-D numeric array; a 1-D array becomes a column.
// order, when not empty, forces the memory order of the result. Non-float64
// arrays are converted with a DataConversionWarning.
func readTable(path, order string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy header of %s", path)
	}
	t := &table{order: dense.RowMajor}
	if r.Header.Descr.Fortran {
		t.order = dense.ColumnMajor
	}
	switch shape := r.Header.Descr.Shape; len(shape) {
	case 1:
		t.rows, t.cols = shape[0], 1
	case 2:
		t.rows, t.cols = shape[0], shape[1]
	default:
		return nil, errors.NewValueError("readTable", fmt.Sprintf("%s: expected a 1-D or 2-D array, got shape %v", path, shape))
	}

	if t.data, err = readFloats(r, path); err != nil {
		return nil, err
	}
	warnConversion(path, r.Header.Descr.Type)
	if len(t.data) != t.rows*t.cols {
		return nil, errors.NewDimensionError("readTable", t.rows*t.cols, len(t.data), 0)
	}
	if order != "" {
		o, err := dense.ParseOrder(order)
		if err != nil {
			return nil, err
		}
		t.reorder(o)
	}
	return t, nil
}

// readFloats reads every element of the array in file order as float64.
func readFloats(r *npyio.Reader, path string) ([]float64, error) {
	dtype := r.Header.Descr.Type
	var values []float64
	switch dtype {
	case "<f8", "|f8":
		if err := r.Read(&values); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		return values, nil
	case "<f4", "|f4":
		var raw []float32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "<i8", "|i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	case "<i4", "|i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		values = make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
	default:
		return nil, errors.NewValueError("readFloats", fmt.Sprintf("%s: unsupported dtype %q", path, dtype))
	}
	return values, nil
}

// readLabels loads class labels stored as an integer or float array.
func readLabels(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy header of %s", path)
	}
	values, err := readFloats(r, path)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.NewValueError("readLabels", path+" holds no labels")
	}
	return mat.NewDense(len(values), 1, values), nil
}

// warnConversion reports a feature file whose dtype is not float64.
func warnConversion(path, dtype string) {
	switch dtype {
	case "<f8", "|f8":
		return
	}
	errors.Warn(errors.NewDataConversionWarning(dtype, "float64",
		fmt.Sprintf("features in %s are converted to float64", path)))
}

func writeMatrix(path string, m mat.Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	if err := npyio.Write(f, mat.DenseCopyOf(m)); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
