// starspan - raster/vector traversal engine
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package testcases holds declarative traversal scenarios: a single
// feature over a single-band grid, with the traversal settings and, where
// known, the cells which must be found.
package testcases

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/vector"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Scenario defines a single traversal test.
type Scenario struct {
	Name       string          // lowercase a-z, 0-9 and _ only
	Cols, Rows int             // grid size
	Transform  matrix.Matrix   // grid to world (zero value means unit cells, y up, origin at the lower left)
	Geometry   vector.Geometry // the feature
	Threshold  float64         // zero means starspan.DefaultThreshold
	Interior   starspan.Interior
	Rule       rasterize.FillRule
	Buffer     float64

	// Want lists the expected cells in any order. Nil means the result
	// is only checked for general properties.
	Want []Cell
}

// Cell is a grid cell.
type Cell struct {
	Col, Row int
}

// GridTransform returns the grid-to-world transform of the scenario.
func (s Scenario) GridTransform() matrix.Matrix {
	if s.Transform == (matrix.Matrix{}) {
		return raster.NorthUp(0, float64(s.Rows), 1)
	}
	return s.Transform
}

// Config returns the traversal settings of the scenario, for the given
// grid. Observers are left to the caller.
func (s Scenario) Config(g raster.Raster) starspan.Config {
	th := s.Threshold
	if th == 0 {
		th = starspan.DefaultThreshold
	}
	return starspan.Config{
		Vector:    vector.NewLayer(s.Name, nil, &vector.Feature{FID: 1, Geometry: s.Geometry}),
		Rasters:   []raster.Raster{g},
		Threshold: th,
		Interior:  s.Interior,
		FillRule:  s.Rule,
		Buffer:    s.Buffer,
		Logf:      func(string, ...any) {},
	}
}

// Run traverses the scenario and returns the cells found, in the order
// they were reported.
func (s Scenario) Run(ctx context.Context) ([]Cell, error) {
	g, err := raster.NewGrid(s.Name, s.Cols, s.Rows, 1, s.GridTransform())
	if err != nil {
		return nil, err
	}
	c := &collector{}
	cfg := s.Config(g)
	cfg.Observers = []starspan.Observer{c}
	t, err := starspan.New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := t.Traverse(ctx); err != nil {
		return nil, err
	}
	return c.cells, nil
}

type collector struct {
	starspan.NopObserver
	cells []Cell
}

func (c *collector) AddPixel(ev *starspan.Event) error {
	c.cells = append(c.cells, Cell{ev.Col, ev.Row})
	return nil
}

// Sorted returns a copy of cells in row-major order.
func Sorted(cells []Cell) []Cell {
	out := slices.Clone(cells)
	slices.SortFunc(out, func(a, b Cell) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})
	return out
}

// block returns the cells [c0,c1) × [r0,r1).
func block(c0, r0, c1, r1 int) []Cell {
	var cells []Cell
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			cells = append(cells, Cell{col, row})
		}
	}
	return cells
}

// without returns the cells of a which are not in b.
func without(a, b []Cell) []Cell {
	var out []Cell
	for _, c := range a {
		if !slices.Contains(b, c) {
			out = append(out, c)
		}
	}
	return out
}

// pt is a helper to create a vec.Vec2 from x, y coordinates.
func pt(x, y float64) vec.Vec2 {
	return vec.Vec2{X: x, Y: y}
}

// regular returns the ring of a regular n-gon.
func regular(cx, cy, r float64, n int) vector.Ring {
	ring := make(vector.Ring, n)
	for i := range ring {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring[i] = pt(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return ring
}

// star returns a self-intersecting five-pointed star, connecting every
// second vertex of a regular pentagon.
func star(cx, cy, r float64) vector.Ring {
	p := regular(cx, cy, r, 5)
	return vector.Ring{p[0], p[2], p[4], p[1], p[3]}
}
