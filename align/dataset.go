package align

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// DecodeDataset decodes a point matrix from any of the supported formats:
// - JSON array of rows: [[x, y], ...]
// - JSON object with a "points" array
// - GeoJSON FeatureCollection, Feature or geometry
// - Zlib-compressed JSON (any of the above)
// - YAML list of rows, or a mapping with a "points" list
func DecodeDataset(data []byte) (mat.Matrix, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	switch {
	case trimmed[0] == '[':
		var rows any
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("parsing JSON dataset: %w", err)
		}
		return AsMatrix(rows)
	case trimmed[0] == '{':
		return decodeJSONObject(trimmed)
	case isZlib(data):
		// A YAML document can start with bytes that look like a zlib header.
		if inflated, err := inflateZlib(data); err == nil {
			return DecodeDataset(inflated)
		}
	}
	return decodeYAML(trimmed)
}

func decodeJSONObject(data []byte) (mat.Matrix, error) {
	var probe struct {
		Type   string `json:"type"`
		Points any    `json:"points"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing JSON dataset: %w", err)
	}
	if probe.Type != "" {
		return DecodeGeoJSONPoints(data)
	}
	if probe.Points == nil {
		return nil, fmt.Errorf("JSON dataset object has no \"points\" field")
	}
	return AsMatrix(probe.Points)
}

func decodeYAML(data []byte) (mat.Matrix, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unknown format: not JSON, GeoJSON, zlib or YAML: %w", err)
	}

	switch v := doc.(type) {
	case []any:
		return AsMatrix(v)
	case map[string]any:
		points, ok := v["points"]
		if !ok {
			return nil, fmt.Errorf("YAML dataset mapping has no \"points\" key")
		}
		return AsMatrix(points)
	default:
		return nil, fmt.Errorf("%w: YAML dataset is a %T", ErrDimensionality, doc)
	}
}

// isZlib checks for a zlib header: CM=8 and a valid FCHECK.
func isZlib(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0]&0x0f == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0
}

// inflateZlib decompresses zlib-compressed data
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}

	return decompressed, nil
}

// LoadDataset reads a point matrix from a file path or an http(s) URL.
func LoadDataset(source string) (mat.Matrix, error) {
	return LoadDatasetWithContext(context.Background(), source)
}

// LoadDatasetWithContext is like LoadDataset but accepts a context for
// cancelling remote fetches.
func LoadDatasetWithContext(ctx context.Context, source string) (mat.Matrix, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return FetchDataset(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading dataset file: %w", err)
	}

	m, err := DecodeDataset(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}
	return m, nil
}
