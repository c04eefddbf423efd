package align

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// OrthogonalProcrustes finds the orthogonal matrix R that most closely maps
// a onto b, minimizing ||a·R − b|| in the Frobenius norm. Equivalently b·Rᵗ
// is the rotation/reflection of b closest to a. The returned scale is the sum
// of the singular values of aᵗ·b, the optimal dilation of b·Rᵗ when both
// inputs have unit norm.
//
// R may be a reflection (det R = −1); no proper-rotation constraint is applied.
func OrthogonalProcrustes(a, b mat.Matrix) (*mat.Dense, float64, error) {
	if isNilMatrix(a) || isNilMatrix(b) {
		return nil, 0, fmt.Errorf("%w: got nil", ErrDimensionality)
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return nil, 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, ar, ac, br, bc)
	}
	if ar == 0 || ac == 0 {
		return nil, 0, fmt.Errorf("%w: got %dx%d", ErrEmptyInput, ar, ac)
	}

	// M = (bᵗ·a)ᵗ = aᵗ·b
	var m mat.Dense
	m.Mul(a.T(), b)

	var svd mat.SVD
	if ok := svd.Factorize(&m, mat.SVDFull); !ok {
		return nil, 0, fmt.Errorf("%w: %dx%d cross-covariance", ErrSVDFailed, ac, ac)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())

	return &r, floats.Sum(svd.Values(nil)), nil
}
