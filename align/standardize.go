package align

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ColumnMeans returns the centroid of the rows of m.
func ColumnMeans(m mat.Matrix) []float64 {
	r, c := m.Dims()
	means := make([]float64, c)
	col := make([]float64, r)
	for j := range means {
		mat.Col(col, j, m)
		means[j] = floats.Sum(col) / float64(r)
	}
	return means
}

// Center returns a copy of m with its column means subtracted, together with
// the means that were removed.
func Center(m mat.Matrix) (*mat.Dense, []float64) {
	means := ColumnMeans(m)
	var centered mat.Dense
	centered.Apply(func(_, j int, v float64) float64 {
		return v - means[j]
	}, m)
	return &centered, means
}

// FrobeniusNorm returns the square root of the sum of squared entries.
func FrobeniusNorm(m mat.Matrix) float64 {
	return mat.Norm(m, 2)
}

// isZero reports whether every entry of m is exactly zero.
func isZero(m *mat.Dense) bool {
	for _, v := range m.RawMatrix().Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Standardized is a centered, unit-norm copy of a point matrix along with the
// parameters needed to map back to the original coordinates.
type Standardized struct {
	Matrix   *mat.Dense
	Centroid []float64
	Norm     float64
}

// Standardize centers m and scales it to unit Frobenius norm. It fails with
// ErrDegenerateData when all rows of m are identical.
func Standardize(m mat.Matrix) (Standardized, error) {
	centered, means := Center(m)
	if isZero(centered) {
		r, _ := m.Dims()
		return Standardized{}, fmt.Errorf("%w: all %d points coincide", ErrDegenerateData, r)
	}

	norm := FrobeniusNorm(centered)
	centered.Scale(1/norm, centered)
	return Standardized{Matrix: centered, Centroid: means, Norm: norm}, nil
}
