// Package geodist estimates great-circle distances between points and lines.
package geodist

import (
	"math"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

// EarthRadiusMeters is the fixed mean radius used for every distance.
const EarthRadiusMeters = 6371000.0

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineMeters is the great-circle distance between a and b.
func HaversineMeters(a, b model.Point) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// clamp rounding noise so Asin stays defined
	s = math.Min(1, math.Max(0, s))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(s))
}

// MinDistanceMeters approximates point-to-polyline distance by the nearest
// vertex. Segment interiors are not considered. An empty geometry is +Inf.
func MinDistanceMeters(p model.Point, geometry []model.Point) float64 {
	best := math.Inf(1)
	for _, v := range geometry {
		if d := HaversineMeters(p, v); d < best {
			best = d
		}
	}
	return best
}
