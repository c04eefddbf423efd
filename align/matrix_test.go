package align

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

func TestAsMatrix(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantRows int
		wantCols int
		wantData [][]float64
		wantErr  error
	}{
		{
			name:     "row slices",
			input:    [][]float64{{1, 2}, {3, 4}, {5, 6}},
			wantRows: 3, wantCols: 2,
			wantData: [][]float64{{1, 2}, {3, 4}, {5, 6}},
		},
		{
			name:     "points",
			input:    []Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
			wantRows: 2, wantCols: 2,
			wantData: [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:     "orb multipoint",
			input:    orb.MultiPoint{{7, 8}, {9, 10}},
			wantRows: 2, wantCols: 2,
			wantData: [][]float64{{7, 8}, {9, 10}},
		},
		{
			name:     "orb linestring",
			input:    orb.LineString{{0, 0}, {1, 1}, {2, 0}},
			wantRows: 3, wantCols: 2,
			wantData: [][]float64{{0, 0}, {1, 1}, {2, 0}},
		},
		{
			name:     "existing matrix",
			input:    mat.NewDense(1, 3, []float64{1, 2, 3}),
			wantRows: 1, wantCols: 3,
			wantData: [][]float64{{1, 2, 3}},
		},
		{
			name:     "rows without columns",
			input:    [][]float64{{}, {}},
			wantRows: 2, wantCols: 0,
		},
		{
			name:     "no points",
			input:    []Point{},
			wantRows: 0, wantCols: 2,
		},
		{name: "nil", input: nil, wantErr: ErrDimensionality},
		{name: "nil dense", input: (*mat.Dense)(nil), wantErr: ErrDimensionality},
		{name: "flat list", input: []float64{1, 2}, wantErr: ErrDimensionality},
		{name: "3-D array", input: [][][]float64{{{1}}}, wantErr: ErrDimensionality},
		{name: "ragged rows", input: [][]float64{{1, 2}, {3}}, wantErr: ErrDimensionality},
		{name: "unsupported type", input: "1,2;3,4", wantErr: ErrDimensionality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := AsMatrix(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}

			require.NoError(t, err)
			r, c := m.Dims()
			assert.Equal(t, tt.wantRows, r)
			assert.Equal(t, tt.wantCols, c)
			if tt.wantData != nil {
				assert.Equal(t, tt.wantData, Rows(m))
			}
		})
	}
}

func TestAsMatrix_DecodedJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows int
		wantCols int
		wantErr  error
	}{
		{name: "2-D array", input: `[[1, 2.5], [3, -4]]`, wantRows: 2, wantCols: 2},
		{name: "single row", input: `[[1, 2, 3]]`, wantRows: 1, wantCols: 3},
		{name: "empty row", input: `[[]]`, wantRows: 1, wantCols: 0},
		{name: "empty list is 1-D", input: `[]`, wantErr: ErrDimensionality},
		{name: "flat list", input: `[1, 2, 3]`, wantErr: ErrDimensionality},
		{name: "3-D array", input: `[[[1, 2]], [[3, 4]]]`, wantErr: ErrDimensionality},
		{name: "ragged", input: `[[1, 2], [3]]`, wantErr: ErrDimensionality},
		{name: "mixed depth", input: `[[1, 2], 3]`, wantErr: ErrDimensionality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded []any
			require.NoError(t, json.Unmarshal([]byte(tt.input), &decoded))

			m, err := AsMatrix(decoded)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			r, c := m.Dims()
			assert.Equal(t, tt.wantRows, r)
			assert.Equal(t, tt.wantCols, c)
		})
	}
}

func TestAsMatrix_NonNumericElement(t *testing.T) {
	var decoded []any
	require.NoError(t, json.Unmarshal([]byte(`[[1, "x"], [3, 4]]`), &decoded))

	_, err := AsMatrix(decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}

func TestAsMatrix_DecodedYAML(t *testing.T) {
	var decoded []any
	require.NoError(t, yaml.Unmarshal([]byte("- [1, 2]\n- [3, 4.5]\n- [-1, 0]\n"), &decoded))

	m, err := AsMatrix(decoded)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4.5}, {-1, 0}}, Rows(m))
}

func TestRows_CopiesData(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	rows := Rows(m)
	rows[0][0] = 99

	assert.Equal(t, 1.0, m.At(0, 0))
}
