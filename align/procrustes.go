package align

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Result is the outcome of a Procrustes analysis.
type Result struct {
	// Mtx1 is data1 centered and scaled to unit Frobenius norm.
	Mtx1 *mat.Dense
	// Mtx2 is data2 standardized and then rotated/reflected and scaled to
	// best fit Mtx1. It is centered but its norm is generally not 1.
	Mtx2 *mat.Dense
	// Disparity is the sum of squared differences between Mtx1 and Mtx2.
	Disparity float64

	// Rotation and Scale are the transform applied to standardized data2:
	// Mtx2 = standardized(data2) · Rotationᵗ · Scale.
	Rotation *mat.Dense
	Scale    float64

	// Centroids and norms removed during standardization.
	Centroid1, Centroid2 []float64
	Norm1, Norm2         float64
}

// Procrustes standardizes data1 and data2 (rows are points, columns are
// coordinates) and applies the optimal rotation, reflection and scaling to
// data2 so that the sum of squared pointwise differences to data1 is
// minimal. data1 is the reference; data2 must have the same shape.
//
// The disparity does not depend on the order of the inputs, but the returned
// matrices do: only Mtx1 is guaranteed to have unit norm. Duplicate points are
// allowed and simply weigh more in the fit. The disparity grows with the
// number of points.
//
// The inputs are not modified.
func Procrustes(data1, data2 mat.Matrix) (*Result, error) {
	if isNilMatrix(data1) || isNilMatrix(data2) {
		return nil, fmt.Errorf("%w: got nil", ErrDimensionality)
	}

	r1, c1 := data1.Dims()
	r2, c2 := data2.Dims()
	if r1 != r2 || c1 != c2 {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, r1, c1, r2, c2)
	}
	if r1 == 0 || c1 == 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrEmptyInput, r1, c1)
	}
	if err := checkFinite("data1", data1); err != nil {
		return nil, err
	}
	if err := checkFinite("data2", data2); err != nil {
		return nil, err
	}

	std1, err := Standardize(data1)
	if err != nil {
		return nil, fmt.Errorf("data1: %w", err)
	}
	std2, err := Standardize(data2)
	if err != nil {
		return nil, fmt.Errorf("data2: %w", err)
	}

	rot, scale, err := OrthogonalProcrustes(std1.Matrix, std2.Matrix)
	if err != nil {
		return nil, err
	}

	var mtx2 mat.Dense
	mtx2.Mul(std2.Matrix, rot.T())
	mtx2.Scale(scale, &mtx2)

	var diff mat.Dense
	diff.Sub(std1.Matrix, &mtx2)
	raw := diff.RawMatrix().Data
	disparity := floats.Dot(raw, raw)

	return &Result{
		Mtx1:      std1.Matrix,
		Mtx2:      &mtx2,
		Disparity: disparity,
		Rotation:  rot,
		Scale:     scale,
		Centroid1: std1.Centroid,
		Centroid2: std2.Centroid,
		Norm1:     std1.Norm,
		Norm2:     std2.Norm,
	}, nil
}

// ProcrustesRows is Procrustes for row-slice inputs.
func ProcrustesRows(data1, data2 [][]float64) (*Result, error) {
	m1, err := AsMatrix(data1)
	if err != nil {
		return nil, fmt.Errorf("data1: %w", err)
	}
	m2, err := AsMatrix(data2)
	if err != nil {
		return nil, fmt.Errorf("data2: %w", err)
	}
	return Procrustes(m1, m2)
}

func checkFinite(name string, m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s: %w: element [%d][%d] is %v", name, ErrNonFinite, i, j, v)
			}
		}
	}
	return nil
}

// Points returns the number of rows in the result.
func (r *Result) Points() int {
	n, _ := r.Mtx1.Dims()
	return n
}

// Dims returns the number of coordinates per point.
func (r *Result) Dims() int {
	_, k := r.Mtx1.Dims()
	return k
}

// Residuals returns the Euclidean distance between each row of Mtx1 and the
// corresponding row of Mtx2.
func (r *Result) Residuals() []float64 {
	n, k := r.Mtx1.Dims()
	out := make([]float64, n)
	a := make([]float64, k)
	b := make([]float64, k)
	for i := range out {
		mat.Row(a, i, r.Mtx1)
		mat.Row(b, i, r.Mtx2)
		out[i] = floats.Distance(a, b, 2)
	}
	return out
}

// RMSD returns the root-mean-square deviation per point, sqrt(disparity/n).
func (r *Result) RMSD() float64 {
	return math.Sqrt(r.Disparity / float64(r.Points()))
}

// IsReflection reports whether the fitted orthogonal transform flips
// handedness.
func (r *Result) IsReflection() bool {
	return mat.Det(r.Rotation) < 0
}

// Apply maps points given in data2's original coordinates into data1's
// original coordinates using the fitted similarity transform.
func (r *Result) Apply(points mat.Matrix) (*mat.Dense, error) {
	if isNilMatrix(points) {
		return nil, fmt.Errorf("%w: got nil", ErrDimensionality)
	}
	n, k := points.Dims()
	if k != r.Dims() {
		return nil, fmt.Errorf("%w: got %d columns, want %d", ErrShapeMismatch, k, r.Dims())
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no points to map", ErrEmptyInput)
	}

	factor := r.Scale * r.Norm1 / r.Norm2
	var centered, out mat.Dense
	centered.Apply(func(_, j int, v float64) float64 {
		return v - r.Centroid2[j]
	}, points)
	out.Mul(&centered, r.Rotation.T())
	out.Apply(func(_, j int, v float64) float64 {
		return v*factor + r.Centroid1[j]
	}, &out)
	return &out, nil
}
