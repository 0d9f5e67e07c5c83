// Package dense bridges caller-owned dense buffers and gonum matrices.
//
// Callers hand over data either as a mat.Matrix or as a raw buffer with a
// leading dimension and a row/column-major flag. Training works on a
// column-major store (one contiguous slice per feature); outputs are laid out
// the way the caller's input was.
package dense

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// Order is the memory layout of a dense buffer.
type Order int

const (
	// RowMajor stores element (i, j) at data[i*ld+j].
	RowMajor Order = iota
	// ColumnMajor stores element (i, j) at data[j*ld+i].
	ColumnMajor
)

func (o Order) String() string {
	if o == ColumnMajor {
		return "column-major"
	}
	return "row-major"
}

// ParseOrder accepts "row", "row-major", "c", "col", "column", "column-major"
// and "f".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "row", "row-major", "c":
		return RowMajor, nil
	case "col", "column", "column-major", "f":
		return ColumnMajor, nil
	}
	return RowMajor, errors.NewValidationError("order", "must be row-major or column-major", s)
}

// minLD is the smallest valid leading dimension for the given shape.
func minLD(order Order, rows, cols int) int {
	if order == ColumnMajor {
		return rows
	}
	return cols
}

func checkRaw(op string, order Order, rows, cols int, data []float64, ld int) error {
	if data == nil {
		return errors.NewPointerError(op, "data")
	}
	if rows <= 0 || cols <= 0 {
		return errors.NewValueError(op, fmt.Sprintf("empty matrix %dx%d", rows, cols))
	}
	if ld < minLD(order, rows, cols) {
		return errors.NewValidationError("ld", fmt.Sprintf("must be at least %d for a %s %dx%d matrix", minLD(order, rows, cols), order, rows, cols), ld)
	}
	outer, inner := rows, cols
	if order == ColumnMajor {
		outer, inner = cols, rows
	}
	if need := (outer-1)*ld + inner; len(data) < need {
		return errors.NewValueError(op, fmt.Sprintf("buffer holds %d values, need %d", len(data), need))
	}
	return nil
}

// View wraps a caller buffer as a rows x cols mat.Matrix without copying.
// A column-major buffer is returned as the transpose of a row-major view.
func View(order Order, rows, cols int, data []float64, ld int) (mat.Matrix, error) {
	if err := checkRaw("View", order, rows, cols, data, ld); err != nil {
		return nil, err
	}
	var d mat.Dense
	if order == ColumnMajor {
		d.SetRawMatrix(blas64.General{Rows: cols, Cols: rows, Stride: ld, Data: data})
		return d.T(), nil
	}
	d.SetRawMatrix(blas64.General{Rows: rows, Cols: cols, Stride: ld, Data: data})
	return &d, nil
}

// LayoutOf reports the memory order a matrix presents to callers: a
// transposed dense view is column-major, anything else row-major.
func LayoutOf(m mat.Matrix) Order {
	if u, ok := m.(mat.Untransposer); ok {
		if _, ok := u.Untranspose().(mat.RawMatrixer); ok {
			return ColumnMajor
		}
	}
	return RowMajor
}

// Accessor reads element (i, j) of a matrix through strides, avoiding
// interface dispatch on the hot path.
type Accessor struct {
	rows, cols int
	data       []float64
	rowStride  int
	colStride  int
}

// NewAccessor returns a strided reader over m. Dense matrices and transposed
// dense views are read in place; other implementations are copied once.
func NewAccessor(m mat.Matrix) Accessor {
	rows, cols := m.Dims()
	if raw, ok := m.(mat.RawMatrixer); ok {
		g := raw.RawMatrix()
		return Accessor{rows: rows, cols: cols, data: g.Data, rowStride: g.Stride, colStride: 1}
	}
	if u, ok := m.(mat.Untransposer); ok {
		if raw, ok := u.Untranspose().(mat.RawMatrixer); ok {
			g := raw.RawMatrix()
			return Accessor{rows: rows, cols: cols, data: g.Data, rowStride: 1, colStride: g.Stride}
		}
	}
	d := mat.DenseCopyOf(m)
	g := d.RawMatrix()
	return Accessor{rows: rows, cols: cols, data: g.Data, rowStride: g.Stride, colStride: 1}
}

// Dims returns the matrix shape.
func (a Accessor) Dims() (rows, cols int) { return a.rows, a.cols }

// At returns element (i, j).
func (a Accessor) At(i, j int) float64 {
	return a.data[i*a.rowStride+j*a.colStride]
}

// Row copies row i into dst, which must have length cols.
func (a Accessor) Row(dst []float64, i int) {
	off := i * a.rowStride
	for j := range dst {
		dst[j] = a.data[off+j*a.colStride]
	}
}

// ColumnMajor reports whether columns are contiguous.
func (a Accessor) ColumnMajor() bool { return a.rowStride == 1 && a.rows > 0 }

// Columns is a column-major working store: Col(j) is a contiguous slice of
// the rows of feature j.
type Columns struct {
	rows, cols int
	stride     int
	data       []float64
}

// NewColumns builds the column-major store for a. Column-major input is
// shared; row-major input is transposed into a new buffer.
func NewColumns(a Accessor) Columns {
	if a.ColumnMajor() {
		return Columns{rows: a.rows, cols: a.cols, stride: a.colStride, data: a.data}
	}
	data := make([]float64, a.rows*a.cols)
	for i := 0; i < a.rows; i++ {
		off := i * a.rowStride
		for j := 0; j < a.cols; j++ {
			data[j*a.rows+i] = a.data[off+j*a.colStride]
		}
	}
	return Columns{rows: a.rows, cols: a.cols, stride: a.rows, data: data}
}

// Dims returns the matrix shape.
func (c Columns) Dims() (rows, cols int) { return c.rows, c.cols }

// Col returns the values of feature j for every row.
func (c Columns) Col(j int) []float64 {
	off := j * c.stride
	return c.data[off : off+c.rows]
}

// Output is a freshly allocated result matrix laid out in a given order.
type Output struct {
	Order      Order
	Rows, Cols int
	LD         int
	Data       []float64
}

// NewOutput allocates a zeroed rows x cols result in order.
func NewOutput(order Order, rows, cols int) *Output {
	return &Output{
		Order: order,
		Rows:  rows,
		Cols:  cols,
		LD:    minLD(order, rows, cols),
		Data:  make([]float64, rows*cols),
	}
}

// WrapOutput writes results into a caller buffer.
func WrapOutput(order Order, rows, cols int, data []float64, ld int) (*Output, error) {
	if err := checkRaw("WrapOutput", order, rows, cols, data, ld); err != nil {
		return nil, err
	}
	return &Output{Order: order, Rows: rows, Cols: cols, LD: ld, Data: data}, nil
}

func (o *Output) index(i, j int) int {
	if o.Order == ColumnMajor {
		return j*o.LD + i
	}
	return i*o.LD + j
}

// Set stores v at (i, j).
func (o *Output) Set(i, j int, v float64) { o.Data[o.index(i, j)] = v }

// At returns element (i, j).
func (o *Output) At(i, j int) float64 { return o.Data[o.index(i, j)] }

// Log replaces every element with its natural logarithm in place.
func (o *Output) Log() {
	for i := 0; i < o.Rows; i++ {
		for j := 0; j < o.Cols; j++ {
			k := o.index(i, j)
			o.Data[k] = math.Log(o.Data[k])
		}
	}
}

// Matrix returns a view of the output sharing its storage. Column-major
// output is presented as a transposed dense view.
func (o *Output) Matrix() mat.Matrix {
	var d mat.Dense
	if o.Order == ColumnMajor {
		d.SetRawMatrix(blas64.General{Rows: o.Cols, Cols: o.Rows, Stride: o.LD, Data: o.Data})
		return d.T()
	}
	d.SetRawMatrix(blas64.General{Rows: o.Rows, Cols: o.Cols, Stride: o.LD, Data: o.Data})
	return &d
}
