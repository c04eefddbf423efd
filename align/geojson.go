package align

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint           GeometryType = "Point"
	GeometryLineString      GeometryType = "LineString"
	GeometryPolygon         GeometryType = "Polygon"
	GeometryMultiPoint      GeometryType = "MultiPoint"
	GeometryMultiLineString GeometryType = "MultiLineString"
)

// Geometry represents a GeoJSON geometry object
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`
}

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

// NewFeature creates a Feature with the given geometry and properties
func NewFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}
}

// MultiPointGeometry converts an orb.MultiPoint to a GeoJSON MultiPoint geometry
func MultiPointGeometry(mp orb.MultiPoint) *Geometry {
	coords := make([][2]float64, len(mp))
	for i, p := range mp {
		coords[i] = [2]float64{p.X(), p.Y()}
	}

	coordsJSON, _ := json.Marshal(coords)
	return &Geometry{
		Type:        GeometryMultiPoint,
		Coordinates: coordsJSON,
	}
}

// rowsGeometry encodes matrix rows as positions of the given geometry type.
// GeoJSON positions may carry more than two values, so k-dimensional rows
// survive unchanged.
func rowsGeometry(t GeometryType, rows any) *Geometry {
	coordsJSON, _ := json.Marshal(rows)
	return &Geometry{
		Type:        t,
		Coordinates: coordsJSON,
	}
}

// ResultToGeoJSON exports the standardized reference, the aligned target and
// the residual segments between corresponding rows as a FeatureCollection.
// Every feature carries the disparity and scale of the fit.
func ResultToGeoJSON(id string, r *Result) *FeatureCollection {
	fc := NewFeatureCollection()
	if r == nil {
		return fc
	}

	ref := Rows(r.Mtx1)
	aligned := Rows(r.Mtx2)

	props := func(role string) map[string]interface{} {
		return map[string]interface{}{
			"id":         id,
			"role":       role,
			"disparity":  r.Disparity,
			"scale":      r.Scale,
			"reflection": r.IsReflection(),
		}
	}

	if r.Dims() == 2 {
		mp := make(orb.MultiPoint, len(ref))
		for i, row := range ref {
			mp[i] = orb.Point{row[0], row[1]}
		}
		fc.AddFeature(NewFeature(MultiPointGeometry(mp), props("reference")))
	} else {
		fc.AddFeature(NewFeature(rowsGeometry(GeometryMultiPoint, ref), props("reference")))
	}
	fc.AddFeature(NewFeature(rowsGeometry(GeometryMultiPoint, aligned), props("aligned")))

	segments := make([][][]float64, len(ref))
	for i := range ref {
		segments[i] = [][]float64{ref[i], aligned[i]}
	}
	fc.AddFeature(NewFeature(rowsGeometry(GeometryMultiLineString, segments), props("residuals")))

	return fc
}

// geoJSONObject is the union of the GeoJSON object shapes we read.
type geoJSONObject struct {
	Type        string          `json:"type"`
	Features    []*Feature      `json:"features"`
	Geometry    *Geometry       `json:"geometry"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeoJSONPoints reads a GeoJSON FeatureCollection, Feature or bare
// geometry and returns every vertex, in document order, as a matrix row.
// Polygons contribute their outer ring without the closing vertex.
func DecodeGeoJSONPoints(data []byte) (mat.Matrix, error) {
	var obj geoJSONObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}

	var geoms []*Geometry
	switch obj.Type {
	case "FeatureCollection":
		for _, f := range obj.Features {
			if f != nil && f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
	case "Feature":
		if obj.Geometry != nil {
			geoms = append(geoms, obj.Geometry)
		}
	default:
		geoms = append(geoms, &Geometry{Type: GeometryType(obj.Type), Coordinates: obj.Coordinates})
	}

	var rows [][]float64
	for _, g := range geoms {
		positions, err := geometryPositions(g)
		if err != nil {
			return nil, err
		}
		rows = append(rows, positions...)
	}
	return AsMatrix(rows)
}

func geometryPositions(g *Geometry) ([][]float64, error) {
	switch g.Type {
	case GeometryPoint:
		var p []float64
		if err := json.Unmarshal(g.Coordinates, &p); err != nil {
			return nil, fmt.Errorf("parsing %s coordinates: %w", g.Type, err)
		}
		return [][]float64{p}, nil
	case GeometryMultiPoint, GeometryLineString:
		var ps [][]float64
		if err := json.Unmarshal(g.Coordinates, &ps); err != nil {
			return nil, fmt.Errorf("parsing %s coordinates: %w", g.Type, err)
		}
		return ps, nil
	case GeometryMultiLineString:
		var lines [][][]float64
		if err := json.Unmarshal(g.Coordinates, &lines); err != nil {
			return nil, fmt.Errorf("parsing %s coordinates: %w", g.Type, err)
		}
		var ps [][]float64
		for _, line := range lines {
			ps = append(ps, line...)
		}
		return ps, nil
	case GeometryPolygon:
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parsing %s coordinates: %w", g.Type, err)
		}
		if len(rings) == 0 {
			return nil, nil
		}
		outer := rings[0]
		if n := len(outer); n > 1 && slices.Equal(outer[0], outer[n-1]) {
			outer = outer[:n-1]
		}
		return outer, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}
