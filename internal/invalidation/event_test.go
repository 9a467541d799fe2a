package invalidation

import (
	"encoding/json"
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate_BBoxHappyPath(t *testing.T) {
	ev := Event{
		Version: 1, Op: "update", TS: mustTS(), WayID: 23423712, Changeset: 9,
		BBox: &BBox{X1: 123.88, Y1: 10.29, X2: 123.89, Y2: 10.30, SRID: "EPSG:4326"},
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestEvent_Validate_DegenerateBoxIsAPoint(t *testing.T) {
	ev := Event{
		Version: 1, Op: "delete", TS: mustTS(),
		BBox: &BBox{X1: 123.88, Y1: 10.29, X2: 123.88, Y2: 10.29},
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("point-sized bbox should be accepted: %v", err)
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	ok := func() Event {
		return Event{Version: 1, Op: "insert", TS: mustTS(), BBox: &BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}}
	}
	cases := map[string]func(*Event){
		"version":  func(e *Event) { e.Version = 2 },
		"op":       func(e *Event) { e.Op = "upsert" },
		"ts":       func(e *Event) { e.TS = time.Time{} },
		"bbox":     func(e *Event) { e.BBox = nil },
		"srid":     func(e *Event) { e.BBox.SRID = "EPSG:3857" },
		"lon":      func(e *Event) { e.BBox.X2 = 181 },
		"lat":      func(e *Event) { e.BBox.Y1 = -91 },
		"inverted": func(e *Event) { e.BBox.X1 = 3 },
	}
	for name, mut := range cases {
		ev := ok()
		mut(&ev)
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEvent_DecodesWireForm(t *testing.T) {
	raw := `{"version":1,"op":"update","ts":"2025-10-26T12:30:45Z","way_id":42,"changeset":7,
		"bbox":{"x1":123.88,"y1":10.29,"x2":123.89,"y2":10.3}}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ev.WayID != 42 || ev.Changeset != 7 || ev.BBox.Model().SRID != "EPSG:4326" {
		t.Fatalf("decoded %+v", ev)
	}
}
