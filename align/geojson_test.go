package align

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultToGeoJSON(t *testing.T) {
	result, err := ProcrustesRows(mirroredA, mirroredB)
	require.NoError(t, err)

	fc := ResultToGeoJSON("floor-1", result)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "FeatureCollection", fc.Type)

	roles := []string{"reference", "aligned", "residuals"}
	types := []GeometryType{GeometryMultiPoint, GeometryMultiPoint, GeometryMultiLineString}
	for i, f := range fc.Features {
		assert.Equal(t, roles[i], f.Properties["role"])
		assert.Equal(t, "floor-1", f.Properties["id"])
		assert.Equal(t, true, f.Properties["reflection"])
		assert.Equal(t, types[i], f.Geometry.Type)
	}

	var segments [][][]float64
	require.NoError(t, json.Unmarshal(fc.Features[2].Geometry.Coordinates, &segments))
	assert.Len(t, segments, 4)

	// The exported document can be read back as the standardized reference
	// plus the aligned target.
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	m, err := DecodeGeoJSONPoints(data)
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 4+4+8, r)
	assert.Equal(t, 2, c)
}

func TestResultToGeoJSON_NilResult(t *testing.T) {
	fc := ResultToGeoJSON("x", nil)
	assert.Empty(t, fc.Features)
}

func TestDecodeGeoJSONPoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]float64
	}{
		{
			name:  "bare point",
			input: `{"type": "Point", "coordinates": [3, 4]}`,
			want:  [][]float64{{3, 4}},
		},
		{
			name:  "linestring feature",
			input: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 2]]}, "properties": {}}`,
			want:  [][]float64{{0, 0}, {1, 2}},
		},
		{
			name:  "closed polygon ring",
			input: `{"type": "Polygon", "coordinates": [[[0, 0], [4, 0], [4, 3], [0, 0]], [[1, 1], [2, 1], [1, 1]]]}`,
			want:  [][]float64{{0, 0}, {4, 0}, {4, 3}},
		},
		{
			name: "collection in document order",
			input: `{"type": "FeatureCollection", "features": [
				{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 1]}},
				{"type": "Feature", "geometry": null},
				{"type": "Feature", "geometry": {"type": "MultiPoint", "coordinates": [[2, 2], [3, 3]]}}
			]}`,
			want: [][]float64{{1, 1}, {2, 2}, {3, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeGeoJSONPoints([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Rows(m))
		})
	}
}

func TestDecodeGeoJSONPoints_Errors(t *testing.T) {
	_, err := DecodeGeoJSONPoints([]byte(`{"type": "GeometryCollection", "geometries": []}`))
	assert.ErrorContains(t, err, "unsupported geometry type")

	_, err = DecodeGeoJSONPoints([]byte(`{"type": "Point", "coordinates": "x"}`))
	assert.ErrorContains(t, err, "parsing Point coordinates")

	_, err = DecodeGeoJSONPoints([]byte(`{"type": `))
	assert.ErrorContains(t, err, "parsing GeoJSON")

	_, err = DecodeGeoJSONPoints([]byte(`{"type": "MultiPoint", "coordinates": [[1, 2], [3]]}`))
	assert.ErrorIs(t, err, ErrDimensionality)
}
