// Package invalidation describes the road edit events that expire cached
// resolutions.
package invalidation

import (
	"fmt"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

// Event reports that roads inside BBox changed upstream. WayID and Changeset
// are optional; when both are set, replays of an older changeset are skipped.
type Event struct {
	Version   int       `json:"version"`
	Op        string    `json:"op"`
	TS        time.Time `json:"ts"`
	WayID     int64     `json:"way_id,omitempty"`
	Changeset uint64    `json:"changeset,omitempty"`
	Source    string    `json:"source,omitempty"`
	BBox      *BBox     `json:"bbox"`
}

type BBox struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid,omitempty"`
}

func (b BBox) Model() model.BBox {
	return model.BBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2, SRID: "EPSG:4326"}
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if e.BBox == nil {
		return fmt.Errorf("bbox is required")
	}
	bb := *e.BBox
	if bb.SRID != "" && bb.SRID != "EPSG:4326" {
		return fmt.Errorf("bbox.srid must be EPSG:4326")
	}
	if !(bb.X1 >= -180 && bb.X1 <= 180 && bb.X2 >= -180 && bb.X2 <= 180) {
		return fmt.Errorf("bbox longitude out of range")
	}
	if !(bb.Y1 >= -90 && bb.Y1 <= 90 && bb.Y2 >= -90 && bb.Y2 <= 90) {
		return fmt.Errorf("bbox latitude out of range")
	}
	// a single moved node gives a degenerate box
	if !(bb.X2 >= bb.X1 && bb.Y2 >= bb.Y1) {
		return fmt.Errorf("bbox must satisfy x2>=x1 and y2>=y1")
	}
	return nil
}
