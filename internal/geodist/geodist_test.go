package geodist

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	d := HaversineMeters(model.Point{Lat: 0, Lon: 0}, model.Point{Lat: 1, Lon: 0})
	want := EarthRadiusMeters * math.Pi / 180
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("got %v want %v", d, want)
	}
}

func TestHaversine_SamePointIsZero(t *testing.T) {
	p := model.Point{Lat: 10.2945, Lon: 123.8847}
	if d := HaversineMeters(p, p); d != 0 {
		t.Fatalf("got %v want 0", d)
	}
}

func TestMinDistance_SingleVertex(t *testing.T) {
	p := model.Point{Lat: 10.2945, Lon: 123.8847}
	v := model.Point{Lat: 10.2950, Lon: 123.8847}
	got := MinDistanceMeters(p, []model.Point{v})
	if want := HaversineMeters(p, v); got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMinDistance_UsesNearestVertexNotSegment(t *testing.T) {
	p := model.Point{Lat: 0, Lon: 0}
	// the segment passes through p but both vertices are ~1.1km away
	line := []model.Point{{Lat: -0.01, Lon: 0}, {Lat: 0.01, Lon: 0}}
	got := MinDistanceMeters(p, line)
	if got < 1000 {
		t.Fatalf("expected vertex-only distance (~1112m), got %v", got)
	}
	line = append(line, model.Point{Lat: 0.001, Lon: 0})
	if got2 := MinDistanceMeters(p, line); got2 >= got {
		t.Fatalf("closer vertex should reduce distance: %v >= %v", got2, got)
	}
}

func TestMinDistance_EmptyGeometryIsInf(t *testing.T) {
	if d := MinDistanceMeters(model.Point{}, nil); !math.IsInf(d, 1) {
		t.Fatalf("got %v want +Inf", d)
	}
}
