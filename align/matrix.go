package align

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// emptyMatrix is a zero-sized matrix. gonum refuses to allocate a Dense with
// a zero dimension, but the shape of an empty input still matters for
// validation order (mismatched shapes are reported before emptiness).
type emptyMatrix struct {
	r, c int
}

func (e emptyMatrix) Dims() (int, int)    { return e.r, e.c }
func (e emptyMatrix) At(i, j int) float64 { panic(mat.ErrIndexOutOfRange) }
func (e emptyMatrix) T() mat.Matrix       { return emptyMatrix{r: e.c, c: e.r} }

// AsMatrix coerces an array-like value into a real 2-D matrix.
//
// Accepted inputs are any mat.Matrix, [][]float64, []Point, orb.MultiPoint,
// orb.LineString, orb.Ring and the []any trees produced by encoding/json or
// yaml.v3. Flat lists, 3-D arrays and ragged rows fail with ErrDimensionality.
// A decoded "[]" counts as a 1-D list; "[[]]" is a 1x0 matrix.
//
// Zero-sized shapes are returned as a matrix whose Dims report the shape but
// which holds no elements; Procrustes rejects them with ErrEmptyInput.
func AsMatrix(v any) (mat.Matrix, error) {
	switch m := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: got nil", ErrDimensionality)
	case mat.Matrix:
		if isNilMatrix(m) {
			return nil, fmt.Errorf("%w: got nil %T", ErrDimensionality, m)
		}
		return m, nil
	case [][]float64:
		return fromRows(m)
	case []float64:
		return nil, fmt.Errorf("%w: got 1-D input of length %d", ErrDimensionality, len(m))
	case [][][]float64:
		return nil, fmt.Errorf("%w: got 3-D input", ErrDimensionality)
	case []Point:
		return planarMatrix(len(m), func(i int) (float64, float64) { return m[i].X, m[i].Y }), nil
	case orb.MultiPoint:
		return orbMatrix(m), nil
	case orb.LineString:
		return orbMatrix(m), nil
	case orb.Ring:
		return orbMatrix(m), nil
	case []any:
		return fromNested(m)
	default:
		return nil, fmt.Errorf("%w: unsupported input type %T", ErrDimensionality, v)
	}
}

// isNilMatrix reports whether m is nil or wraps a nil pointer, such as a
// (*mat.Dense)(nil) whose Dims would panic.
func isNilMatrix(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Rows copies a matrix into row slices.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		if c > 0 {
			mat.Row(rows[i], i, m)
		}
	}
	return rows
}

func fromRows(rows [][]float64) (mat.Matrix, error) {
	if len(rows) == 0 {
		return emptyMatrix{}, nil
	}
	cols := len(rows[0])
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionality, i, len(row), cols)
		}
	}
	if cols == 0 {
		return emptyMatrix{r: len(rows)}, nil
	}

	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func orbMatrix(points []orb.Point) mat.Matrix {
	return planarMatrix(len(points), func(i int) (float64, float64) { return points[i].X(), points[i].Y() })
}

func planarMatrix(n int, at func(i int) (float64, float64)) mat.Matrix {
	if n == 0 {
		return emptyMatrix{c: 2}
	}
	m := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x, y := at(i)
		m.Set(i, 0, x)
		m.Set(i, 1, y)
	}
	return m
}

// fromNested converts a decoded JSON/YAML array tree. Depth is taken from the
// first element at each level, so [] is 1-D and [[]] is a 1x0 matrix.
func fromNested(v []any) (mat.Matrix, error) {
	shape, err := shapeOf(v)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: got %d-D input", ErrDimensionality, len(shape))
	}

	rows, cols := shape[0], shape[1]
	if rows == 0 || cols == 0 {
		return emptyMatrix{r: rows, c: cols}, nil
	}

	m := mat.NewDense(rows, cols, nil)
	for i, row := range v {
		for j, x := range row.([]any) {
			f, err := toFloat(x)
			if err != nil {
				return nil, fmt.Errorf("element [%d][%d]: %w", i, j, err)
			}
			m.Set(i, j, f)
		}
	}
	return m, nil
}

func shapeOf(v any) ([]int, error) {
	s, ok := v.([]any)
	if !ok {
		if _, err := toFloat(v); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if len(s) == 0 {
		return []int{0}, nil
	}

	inner, err := shapeOf(s[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(s); i++ {
		next, err := shapeOf(s[i])
		if err != nil {
			return nil, err
		}
		if !slices.Equal(inner, next) {
			return nil, fmt.Errorf("%w: ragged nested input at index %d", ErrDimensionality, i)
		}
	}
	return append([]int{len(s)}, inner...), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}
