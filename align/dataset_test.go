package align

import (
	"bytes"
	"compress/zlib"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeDataset(t *testing.T) {
	want := [][]float64{{1, 2}, {3, 4}, {5, 6}}

	tests := []struct {
		name  string
		input []byte
	}{
		{"JSON rows", []byte(`[[1, 2], [3, 4], [5, 6]]`)},
		{"JSON rows with whitespace", []byte("\n  [[1,2],[3,4],[5,6]]\n")},
		{"JSON points object", []byte(`{"points": [[1, 2], [3, 4], [5, 6]]}`)},
		{"GeoJSON", []byte(`{"type": "MultiPoint", "coordinates": [[1, 2], [3, 4], [5, 6]]}`)},
		{"YAML list", []byte("- [1, 2]\n- [3, 4]\n- [5, 6]\n")},
		{"YAML points mapping", []byte("points:\n  - [1, 2]\n  - [3, 4]\n  - [5, 6]\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeDataset(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, Rows(m))
		})
	}
}

func TestDecodeDataset_Zlib(t *testing.T) {
	packed := compress(t, []byte(`{"points": [[0, 0], [1, 0], [0, 1]]}`))
	require.True(t, isZlib(packed))

	m, err := DecodeDataset(packed)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {0, 1}}, Rows(m))
}

func TestDecodeDataset_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		errContains string
		wantErr     error
	}{
		{name: "empty", input: []byte("   "), errContains: "empty data"},
		{name: "broken JSON", input: []byte(`[[1, 2], [3`), errContains: "parsing JSON dataset"},
		{name: "object without points", input: []byte(`{"rows": [[1, 2]]}`), errContains: `no "points" field`},
		{name: "flat JSON list", input: []byte(`[1, 2, 3]`), wantErr: ErrDimensionality},
		{name: "YAML mapping without points", input: []byte("rows: []\n"), errContains: `no "points" key`},
		{name: "scalar", input: []byte("hello"), wantErr: ErrDimensionality},
		{name: "invalid YAML", input: []byte("- [1, 2\n"), errContains: "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDataset(tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestLoadDataset_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[1, 1], [2, 2]]`), 0644))

	m, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1}, {2, 2}}, Rows(m))

	_, err = LoadDataset(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "reading dataset file")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nope": 1}`), 0644))
	_, err = LoadDataset(bad)
	assert.ErrorContains(t, err, "decoding "+bad)
}
