package align

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AlignRequest asks for data2 (Target) to be fitted onto data1 (Reference).
// Reference and Target hold decoded array-like values and are coerced with
// AsMatrix, so a flat list or a 3-D array is reported as ErrDimensionality.
type AlignRequest struct {
	ID        string `json:"id"`
	Reference any    `json:"reference"`
	Target    any    `json:"target"`
}

// DecodeAlignRequest parses a JSON request payload
func DecodeAlignRequest(payload []byte) (*AlignRequest, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty request payload")
	}

	var req AlignRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("parsing align request: %w", err)
	}
	if err := ValidateID(req.ID); err != nil {
		return nil, fmt.Errorf("align request: %w", err)
	}
	return &req, nil
}

// ValidateID checks that id can be used as a single MQTT topic level:
// non-empty, without level separators, wildcards or NUL.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(id, "/+#\x00") {
		return fmt.Errorf("id %q must not contain '/', '+', '#' or NUL", id)
	}
	return nil
}

// Run coerces the request matrices and performs the Procrustes analysis
func (req *AlignRequest) Run() (*Result, error) {
	ref, err := AsMatrix(req.Reference)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	tgt, err := AsMatrix(req.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return Procrustes(ref, tgt)
}
