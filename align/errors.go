package align

import "errors"

// Validation failures reported by Procrustes and OrthogonalProcrustes.
// Callers match them with errors.Is; the returned errors carry the offending
// shapes as context.
var (
	// ErrDimensionality is returned when an input is not a 2-D matrix
	// (a flat list, a 3-D array or ragged rows).
	ErrDimensionality = errors.New("input matrices must be two-dimensional")

	// ErrShapeMismatch is returned when the inputs differ in row or column count.
	ErrShapeMismatch = errors.New("input matrices must be of same shape")

	// ErrEmptyInput is returned when an input has zero rows or zero columns.
	ErrEmptyInput = errors.New("input matrices must be >0 rows and >0 cols")

	// ErrDegenerateData is returned when a centered input is the zero matrix,
	// i.e. all of its points coincide.
	ErrDegenerateData = errors.New("input matrices must contain >1 unique points")

	// ErrNonFinite is returned when an input contains NaN or an infinity.
	ErrNonFinite = errors.New("input matrices must contain only finite values")

	// ErrSVDFailed is returned when the singular value decomposition does not converge.
	ErrSVDFailed = errors.New("singular value decomposition failed")

	// ErrNotPlanar is returned by the 2-D helpers for data that does not have
	// exactly two columns.
	ErrNotPlanar = errors.New("operation requires two-dimensional points")
)
