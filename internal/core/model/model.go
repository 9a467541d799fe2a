// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// Valid reports whether both coordinates are finite and inside WGS84 bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

type Cells []string

// RawQuery is the caller's input to a single resolution.
type RawQuery struct {
	StreetName string
	City       string
	Barangay   string
	Point      Point
}

// Name tags consulted for candidate name variants, in enumeration order.
var NameTags = []string{"name", "official_name", "short_name", "alt_name"}

// Candidate is a line feature returned by the spatial database.
type Candidate struct {
	ID       int64
	Tags     map[string]string
	Geometry []Point
}

func (c Candidate) Tag(k string) string {
	if c.Tags == nil {
		return ""
	}
	return c.Tags[k]
}
