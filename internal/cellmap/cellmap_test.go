package cellmap

import (
	"slices"
	"sort"
	"testing"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

var sambag = model.Point{Lat: 10.2945, Lon: 123.8847}

func TestNew_RejectsBadResolution(t *testing.T) {
	for _, r := range []int{-1, 16} {
		if _, err := New(r); err == nil {
			t.Fatalf("expected error for res %d", r)
		}
	}
}

func TestCellFor_Deterministic(t *testing.T) {
	m, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c1, err := m.CellFor(sambag)
	if err != nil {
		t.Fatalf("CellFor: %v", err)
	}
	c2, _ := m.CellFor(model.Point{Lat: sambag.Lat + 1e-6, Lon: sambag.Lon})
	if c1 == "" || c1 != c2 {
		t.Fatalf("nearby points should share a cell: %q vs %q", c1, c2)
	}
	if _, err := m.CellFor(model.Point{Lat: 120, Lon: 0}); err == nil {
		t.Fatalf("expected error for invalid point")
	}
}

func TestCellsAround_ContainsQueryCellAndGrowsWithK(t *testing.T) {
	m, _ := New(8)
	qc, _ := m.CellFor(sambag)

	// tiny edit box around the query point, smaller than one cell
	bb := model.BBox{X1: sambag.Lon - 1e-4, Y1: sambag.Lat - 1e-4, X2: sambag.Lon + 1e-4, Y2: sambag.Lat + 1e-4}
	k0, err := m.CellsAround(bb, 0)
	if err != nil {
		t.Fatalf("CellsAround k=0: %v", err)
	}
	if !slices.Contains(k0, qc) {
		t.Fatalf("cover %v must include query cell %s", k0, qc)
	}
	k2, err := m.CellsAround(bb, 2)
	if err != nil {
		t.Fatalf("CellsAround k=2: %v", err)
	}
	if len(k2) <= len(k0) {
		t.Fatalf("k=2 cover (%d) must be larger than k=0 (%d)", len(k2), len(k0))
	}
	if !sort.StringsAreSorted(k2) {
		t.Fatalf("cells must be sorted")
	}
	for _, c := range k0 {
		if !slices.Contains(k2, c) {
			t.Fatalf("k=2 cover lost seed cell %s", c)
		}
	}
}

func TestCellsAround_RejectsInvertedBBox(t *testing.T) {
	m, _ := New(8)
	if _, err := m.CellsAround(model.BBox{X1: 2, Y1: 0, X2: 1, Y2: 1}, 1); err == nil {
		t.Fatalf("expected error for inverted bbox")
	}
}
