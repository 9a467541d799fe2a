package overpass

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

type response struct {
	Elements *[]element `json:"elements"`
	Remark   string     `json:"remark,omitempty"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []model.Point     `json:"geometry"`
}

// Decode parses an Overpass JSON payload. A body without an elements array
// or with a runtime-error remark is malformed.
func Decode(body []byte) ([]model.Candidate, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode overpass json: %w", err)
	}
	if r.Elements == nil {
		return nil, errors.New("overpass payload has no elements")
	}
	if strings.Contains(strings.ToLower(r.Remark), "error") {
		return nil, fmt.Errorf("overpass remark: %s", r.Remark)
	}

	out := make([]model.Candidate, 0, len(*r.Elements))
	seen := make(map[int64]struct{}, len(*r.Elements))
	for _, el := range *r.Elements {
		if el.Type != "way" || len(el.Geometry) == 0 {
			continue
		}
		if _, ok := seen[el.ID]; ok {
			continue
		}
		seen[el.ID] = struct{}{}
		out = append(out, model.Candidate{ID: el.ID, Tags: el.Tags, Geometry: el.Geometry})
	}
	return out, nil
}
