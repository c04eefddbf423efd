package align

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// matricesEqual checks if two affine matrices are equal within epsilon tolerance
func matricesEqual(m1, m2 AffineMatrix) bool {
	return almostEqual(m1.A, m2.A) &&
		almostEqual(m1.B, m2.B) &&
		almostEqual(m1.Tx, m2.Tx) &&
		almostEqual(m1.C, m2.C) &&
		almostEqual(m1.D, m2.D) &&
		almostEqual(m1.Ty, m2.Ty)
}

func pointsEqual(p1, p2 Point) bool {
	return almostEqual(p1.X, p2.X) && almostEqual(p1.Y, p2.Y)
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		matrix AffineMatrix
		want   Point
	}{
		{"identity", Point{X: 10, Y: 20}, Identity(), Point{X: 10, Y: 20}},
		{"translation", Point{X: 5, Y: 5}, Translation(10, 15), Point{X: 15, Y: 20}},
		{"uniform scale", Point{X: 3, Y: 4}, Scale(2, 2), Point{X: 6, Y: 8}},
		{"90 degree rotation", Point{X: 1, Y: 0}, RotationDeg(90), Point{X: 0, Y: 1}},
		{"mirror across x axis", Point{X: 2, Y: 3}, Reflection(0), Point{X: 2, Y: -3}},
		{"mirror across diagonal", Point{X: 2, Y: 3}, Reflection(45), Point{X: 3, Y: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPoint(tt.point, tt.matrix)
			if !pointsEqual(got, tt.want) {
				t.Errorf("TransformPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformPoints(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	got := TransformPoints(points, Translation(5, 10))
	want := []Point{{X: 5, Y: 10}, {X: 6, Y: 11}, {X: 7, Y: 12}}

	if len(got) != len(want) {
		t.Fatalf("TransformPoints() length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if !pointsEqual(got[i], want[i]) {
			t.Errorf("TransformPoints()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMultiplyAndInvert(t *testing.T) {
	m := MultiplyMatrices(Translation(3, -7), MultiplyMatrices(Scale(2.5, 2.5), RotationDeg(30)))
	inv := InvertMatrix(m)

	if got := MultiplyMatrices(m, inv); !matricesEqual(got, Identity()) {
		t.Errorf("m * inverse(m) = %+v, want identity", got)
	}

	p := Point{X: 4, Y: 9}
	if got := TransformPoint(TransformPoint(p, m), inv); !pointsEqual(got, p) {
		t.Errorf("round trip = %v, want %v", got, p)
	}

	if got := InvertMatrix(Scale(0, 0)); !matricesEqual(got, Identity()) {
		t.Errorf("InvertMatrix(singular) = %+v, want identity", got)
	}
}

func TestDeterminantAndRotationDegrees(t *testing.T) {
	tests := []struct {
		name      string
		matrix    AffineMatrix
		wantDet   float64
		wantAngle float64
	}{
		{"identity", Identity(), 1, 0},
		{"rotation", RotationDeg(60), 1, 60},
		{"scaled rotation", MultiplyMatrices(Scale(3, 3), RotationDeg(-120)), 9, -120},
		{"mirror", Reflection(0), -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matrix.Determinant(); !almostEqual(got, tt.wantDet) {
				t.Errorf("Determinant() = %v, want %v", got, tt.wantDet)
			}
			if got := tt.matrix.RotationDegrees(); !almostEqual(got, tt.wantAngle) {
				t.Errorf("RotationDegrees() = %v, want %v", got, tt.wantAngle)
			}
		})
	}
}

func TestDistanceAndCentroid(t *testing.T) {
	if got := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}); !almostEqual(got, 5) {
		t.Errorf("Distance() = %v, want 5", got)
	}

	if got := Centroid(nil); got != (Point{}) {
		t.Errorf("Centroid(nil) = %v, want origin", got)
	}
	got := Centroid([]Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 0, Y: 2}})
	if !pointsEqual(got, Point{X: 2, Y: 1}) {
		t.Errorf("Centroid() = %v, want (2, 1)", got)
	}
}

func TestResultSimilarity(t *testing.T) {
	result, err := ProcrustesRows(mirroredA, mirroredB)
	if err != nil {
		t.Fatalf("ProcrustesRows() error = %v", err)
	}

	got, err := result.Similarity()
	if err != nil {
		t.Fatalf("Similarity() error = %v", err)
	}

	// b maps back onto a by x = 3 - x'/2, y = 4 + y'/2
	want := AffineMatrix{A: -0.5, B: 0, Tx: 3, C: 0, D: 0.5, Ty: 4}
	if !matricesEqual(got, want) {
		t.Errorf("Similarity() = %+v, want %+v", got, want)
	}
	if got.Determinant() >= 0 {
		t.Errorf("Determinant() = %v, want negative for a mirrored fit", got.Determinant())
	}
}

func TestResultSimilarity_NotPlanar(t *testing.T) {
	data := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	result, err := ProcrustesRows(data, data)
	if err != nil {
		t.Fatalf("ProcrustesRows() error = %v", err)
	}

	if _, err := result.Similarity(); !errors.Is(err, ErrNotPlanar) {
		t.Errorf("Similarity() error = %v, want ErrNotPlanar", err)
	}
}

func TestAlignPoints(t *testing.T) {
	reference := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}, {X: 3, Y: 8}}
	known := MultiplyMatrices(Translation(-12, 40), MultiplyMatrices(Scale(0.5, 0.5), RotationDeg(135)))
	target := TransformPoints(reference, known)

	transform, result, err := AlignPoints(reference, target)
	if err != nil {
		t.Fatalf("AlignPoints() error = %v", err)
	}
	if result.Disparity > epsilon {
		t.Errorf("Disparity = %v, want ~0", result.Disparity)
	}
	if want := InvertMatrix(known); !matricesEqual(transform, want) {
		t.Errorf("AlignPoints() = %+v, want %+v", transform, want)
	}

	aligned := TransformPoints(target, transform)
	for i := range reference {
		if !pointsEqual(aligned[i], reference[i]) {
			t.Errorf("aligned[%d] = %v, want %v", i, aligned[i], reference[i])
		}
	}
}

func TestAlignPoints_Errors(t *testing.T) {
	tests := []struct {
		name      string
		reference []Point
		target    []Point
		wantErr   error
	}{
		{
			name:      "different lengths",
			reference: []Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			target:    []Point{{X: 0, Y: 0}, {X: 1, Y: 0}},
			wantErr:   ErrShapeMismatch,
		},
		{
			name:      "no points",
			reference: nil,
			target:    []Point{},
			wantErr:   ErrEmptyInput,
		},
		{
			name:      "collapsed target",
			reference: []Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			target:    []Point{{X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}},
			wantErr:   ErrDegenerateData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transform, result, err := AlignPoints(tt.reference, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AlignPoints() error = %v, want %v", err, tt.wantErr)
			}
			if result != nil {
				t.Errorf("AlignPoints() result = %v, want nil", result)
			}
			if !matricesEqual(transform, Identity()) {
				t.Errorf("AlignPoints() transform = %+v, want identity", transform)
			}
		})
	}
}
