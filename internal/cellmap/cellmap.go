// Package cellmap maps query points and edit footprints onto H3 cells.
package cellmap

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

type Mapper struct {
	res int
}

func New(res int) (*Mapper, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	return &Mapper{res: res}, nil
}

func (m *Mapper) Res() int { return m.res }

// CellFor returns the cell containing p.
func (m *Mapper) CellFor(p model.Point) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("invalid point %v", p)
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, m.res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %s: %w", p, err)
	}
	return c.String(), nil
}

// CellsAround covers bb (corners, center and interior) and grows the cover by
// k rings so that queries whose search radius reaches bb are included.
// The result is sorted and unique.
func (m *Mapper) CellsAround(bb model.BBox, k int) (model.Cells, error) {
	if bb.X2 < bb.X1 || bb.Y2 < bb.Y1 {
		return nil, errors.New("bbox must satisfy x2>=x1 and y2>=y1")
	}
	if k < 0 {
		k = 0
	}

	seeds := map[h3.Cell]struct{}{}
	for _, ll := range []h3.LatLng{
		{Lat: bb.Y1, Lng: bb.X1},
		{Lat: bb.Y1, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X1},
		{Lat: (bb.Y1 + bb.Y2) / 2, Lng: (bb.X1 + bb.X2) / 2},
	} {
		c, err := h3.LatLngToCell(ll, m.res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for corner: %w", err)
		}
		seeds[c] = struct{}{}
	}

	// interior cells only exist when the box is larger than a cell
	if bb.X2 > bb.X1 && bb.Y2 > bb.Y1 {
		poly := h3.GeoPolygon{GeoLoop: h3.GeoLoop{
			{Lat: bb.Y1, Lng: bb.X1},
			{Lat: bb.Y1, Lng: bb.X2},
			{Lat: bb.Y2, Lng: bb.X2},
			{Lat: bb.Y2, Lng: bb.X1},
		}}
		inner, err := h3.PolygonToCells(poly, m.res)
		if err != nil {
			return nil, fmt.Errorf("h3 polyfill: %w", err)
		}
		for _, c := range inner {
			seeds[c] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(seeds))
	for c := range seeds {
		disk := []h3.Cell{c}
		if k > 0 {
			d, err := h3.GridDisk(c, k)
			if err != nil {
				return nil, fmt.Errorf("h3 grid disk: %w", err)
			}
			disk = d
		}
		for _, dc := range disk {
			seen[dc.String()] = struct{}{}
		}
	}

	out := make(model.Cells, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
