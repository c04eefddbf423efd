package align

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformPoints applies an affine transform to multiple points
func TransformPoints(points []Point, m AffineMatrix) []Point {
	result := make([]Point, len(points))
	for i, p := range points {
		result[i] = TransformPoint(p, m)
	}
	return result
}

// MultiplyMatrices composes two affine transforms: result = m1 * m2
// Applying result is equivalent to applying m2 first, then m1
func MultiplyMatrices(m1, m2 AffineMatrix) AffineMatrix {
	return AffineMatrix{
		A:  m1.A*m2.A + m1.B*m2.C,
		B:  m1.A*m2.B + m1.B*m2.D,
		Tx: m1.A*m2.Tx + m1.B*m2.Ty + m1.Tx,
		C:  m1.C*m2.A + m1.D*m2.C,
		D:  m1.C*m2.B + m1.D*m2.D,
		Ty: m1.C*m2.Tx + m1.D*m2.Ty + m1.Ty,
	}
}

// InvertMatrix computes the inverse of an affine transform
// Returns identity if matrix is singular (determinant ~= 0)
func InvertMatrix(m AffineMatrix) AffineMatrix {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-10 {
		return Identity()
	}

	invDet := 1.0 / det
	return AffineMatrix{
		A:  m.D * invDet,
		B:  -m.B * invDet,
		Tx: (m.B*m.Ty - m.D*m.Tx) * invDet,
		C:  -m.C * invDet,
		D:  m.A * invDet,
		Ty: (m.C*m.Tx - m.A*m.Ty) * invDet,
	}
}

// Translation creates a translation-only transform
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: tx, C: 0, D: 1, Ty: ty}
}

// Rotation creates a rotation transform (angle in radians, around origin)
func Rotation(angle float64) AffineMatrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return AffineMatrix{A: cos, B: -sin, Tx: 0, C: sin, D: cos, Ty: 0}
}

// RotationDeg creates a rotation transform (angle in degrees, around origin)
func RotationDeg(degrees float64) AffineMatrix {
	return Rotation(degrees * math.Pi / 180.0)
}

// Scale creates a scaling transform
func Scale(sx, sy float64) AffineMatrix {
	return AffineMatrix{A: sx, B: 0, Tx: 0, C: 0, D: sy, Ty: 0}
}

// Reflection creates a mirror transform across the line through the origin
// at the given angle (degrees). Reflection(0) flips y.
func Reflection(degrees float64) AffineMatrix {
	theta := 2 * degrees * math.Pi / 180.0
	cos := math.Cos(theta)
	sin := math.Sin(theta)
	return AffineMatrix{A: cos, B: sin, Tx: 0, C: sin, D: -cos, Ty: 0}
}

// Determinant returns the determinant of the linear part. Negative values
// mean the transform mirrors.
func (m AffineMatrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// RotationDegrees extracts the rotation angle of the linear part via atan2(C, A).
func (m AffineMatrix) RotationDegrees() float64 {
	return math.Atan2(m.C, m.A) * 180 / math.Pi
}

// Distance calculates Euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	return planar.Distance(orb.Point{p1.X, p1.Y}, orb.Point{p2.X, p2.Y})
}

// Centroid calculates the center of mass of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}
}

// Similarity returns the 2D transform that maps data2's original coordinates
// onto data1's original coordinates: translate data2's centroid to the
// origin, rotate/reflect, scale, then translate to data1's centroid.
func (r *Result) Similarity() (AffineMatrix, error) {
	if r.Dims() != 2 {
		return Identity(), fmt.Errorf("%w: result has %d columns", ErrNotPlanar, r.Dims())
	}

	factor := r.Scale * r.Norm1 / r.Norm2
	m := AffineMatrix{
		A: factor * r.Rotation.At(0, 0),
		B: factor * r.Rotation.At(0, 1),
		C: factor * r.Rotation.At(1, 0),
		D: factor * r.Rotation.At(1, 1),
	}
	src := Point{X: r.Centroid2[0], Y: r.Centroid2[1]}
	moved := TransformPoint(src, m)
	m.Tx = r.Centroid1[0] - moved.X
	m.Ty = r.Centroid1[1] - moved.Y
	return m, nil
}

// AlignPoints runs Procrustes analysis on two equally long 2D point sets and
// returns the similarity transform that maps target onto reference.
// Unlike a rigid fit this allows uniform scaling and mirroring.
func AlignPoints(reference, target []Point) (AffineMatrix, *Result, error) {
	ref, err := AsMatrix(reference)
	if err != nil {
		return Identity(), nil, err
	}
	tgt, err := AsMatrix(target)
	if err != nil {
		return Identity(), nil, err
	}

	result, err := Procrustes(ref, tgt)
	if err != nil {
		return Identity(), nil, err
	}

	transform, err := result.Similarity()
	if err != nil {
		return Identity(), nil, err
	}
	return transform, result, nil
}
