package resolver

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mohammed-shakir/street-resolver/internal/retriever"
)

type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"` // [lon,lat]
}

type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   LineString     `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Meta carries the decision and the diagnostics behind it.
type Meta struct {
	Matched      bool                `json:"matched"`
	BestScore    *float64            `json:"bestScore"`
	Name         *string             `json:"name"`
	Target       string              `json:"target"`
	AliasApplied bool                `json:"aliasApplied"`
	Tier         int                 `json:"tier"`
	Radius       float64             `json:"radius"`
	Candidates   int                 `json:"candidates"`
	Attempts     []retriever.Attempt `json:"attempts"`
}

// Result is the outcome of one resolution. Feature is nil when unmatched and
// serializes as an empty FeatureCollection.
type Result struct {
	Matched bool
	Feature *Feature
	Meta    Meta
}

type wireResult struct {
	Matched  bool            `json:"matched"`
	Geometry json.RawMessage `json:"geometry"`
	Meta     Meta            `json:"meta"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	var geom any = featureCollection{Type: "FeatureCollection", Features: []Feature{}}
	if r.Feature != nil {
		geom = r.Feature
	}
	g, err := json.Marshal(geom)
	if err != nil {
		return nil, fmt.Errorf("marshal geometry: %w", err)
	}
	return json.Marshal(wireResult{Matched: r.Matched, Geometry: g, Meta: r.Meta})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var w wireResult
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	var hdr struct {
		Type string `json:"type"`
	}
	if len(w.Geometry) > 0 {
		if err := json.Unmarshal(w.Geometry, &hdr); err != nil {
			return fmt.Errorf("decode geometry header: %w", err)
		}
	}
	*r = Result{Matched: w.Matched, Meta: w.Meta}
	if hdr.Type == "Feature" {
		var f Feature
		if err := json.Unmarshal(w.Geometry, &f); err != nil {
			return fmt.Errorf("decode feature: %w", err)
		}
		r.Feature = &f
	}
	return nil
}

func toFeature(m *ScoredMatch) *Feature {
	coords := make([][2]float64, 0, len(m.Candidate.Geometry))
	for _, p := range m.Candidate.Geometry {
		coords = append(coords, [2]float64{p.Lon, p.Lat})
	}
	props := map[string]any{
		"name":     m.MatchedName,
		"osm_id":   m.Candidate.ID,
		"score":    m.Score,
		"distance": m.DistanceMeters,
	}
	if hw := m.Candidate.Tag("highway"); hw != "" {
		props["highway"] = hw
	}
	return &Feature{
		Type:       "Feature",
		ID:         "way/" + strconv.FormatInt(m.Candidate.ID, 10),
		Geometry:   LineString{Type: "LineString", Coordinates: coords},
		Properties: props,
	}
}
