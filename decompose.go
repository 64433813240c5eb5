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

package starspan

import (
	"math"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
	"seehuhn.de/go/geom/vec"
)

// decompose emits the cells occupied by g.
func (r *run) decompose(g vector.Geometry) error {
	if r.t.cfg.Buffer > 0 {
		return r.buffered(g)
	}

	switch g.Type {
	case vector.TypePoint, vector.TypeMultiPoint:
		for _, p := range g.Points {
			if err := r.point(p); err != nil {
				return err
			}
		}
	case vector.TypeLineString, vector.TypeMultiLineString:
		for _, line := range g.Lines {
			if err := r.lineString(line); err != nil {
				return err
			}
		}
	case vector.TypePolygon, vector.TypeMultiPolygon:
		for _, poly := range g.Polygons {
			if err := r.polygon(poly); err != nil {
				return err
			}
		}
	case vector.TypeCollection:
		for _, part := range g.Parts {
			if err := r.decompose(part); err != nil {
				return err
			}
		}
	default:
		return &vector.GeometryError{Type: g.Type, Reason: "unsupported geometry type"}
	}
	return nil
}

// point looks up a single point without rasterization.
func (r *run) point(p vec.Vec2) error {
	u, v := raster.Apply(r.t.toGrid, p.X, p.Y)
	return r.emit(int(math.Floor(u)), int(math.Floor(v)), p.X, p.Y)
}

// lineString walks the segments of a line as one chain, so that a cell
// shared by consecutive segments is judged by their combined coverage.
func (r *run) lineString(pts []vec.Vec2) error {
	r.line.Reset()
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		if err := r.line.Chain(a.X, a.Y, b.X, b.Y, i+2 == len(pts), r.found); err != nil {
			return err
		}
	}
	return nil
}

// found is the callback of the line rasterizer.
func (r *run) found(x, y float64) error {
	u, v := raster.Apply(r.t.toGrid, x, y)
	return r.emit(int(math.Floor(u)), int(math.Floor(v)), x, y)
}

// polygon emits the boundary and interior cells of one polygon.
func (r *run) polygon(poly vector.Polygon) error {
	single := vector.Geometry{Type: vector.TypePolygon, Polygons: []vector.Polygon{poly}}

	if r.t.cfg.Interior == InteriorCoverage {
		r.fill.Fill(single.Path(), r.t.cfg.FillRule, r.coverageRow)
		return r.takeErr()
	}

	for i, ring := range poly {
		if err := r.line.Ring(r.orient(ring.Open(), i == 0), r.found); err != nil {
			return err
		}
	}

	r.fill.FillCenters(single.Path(), r.t.cfg.FillRule, r.centerSpan)
	return r.takeErr()
}

// orient returns the ring with the polygon interior on the left of the
// direction of travel in grid space: outer rings get positive signed area
// in grid coordinates and holes get negative area. The result may share
// storage with r.ring.
func (r *run) orient(ring vector.Ring, outer bool) []vec.Vec2 {
	m := r.t.toGrid
	area := ring.SignedArea() * (m[0]*m[3] - m[1]*m[2])
	if (area >= 0) == outer {
		return ring
	}
	r.ring = r.ring[:0]
	for i := len(ring) - 1; i >= 0; i-- {
		r.ring = append(r.ring, ring[i])
	}
	return r.ring
}

// buffered emits the cells covered by g grown by the buffer distance.
func (r *run) buffered(g vector.Geometry) error {
	r.fill.Buffer(g.Path(), r.coverageRow)
	if err := r.takeErr(); err != nil {
		return err
	}
	for _, poly := range polygonsOf(g) {
		single := vector.Geometry{Type: vector.TypePolygon, Polygons: []vector.Polygon{poly}}
		r.fill.Fill(single.Path(), r.t.cfg.FillRule, r.coverageRow)
		if err := r.takeErr(); err != nil {
			return err
		}
	}
	return nil
}

func polygonsOf(g vector.Geometry) []vector.Polygon {
	polys := g.Polygons
	for _, part := range g.Parts {
		polys = append(polys, polygonsOf(part)...)
	}
	return polys
}

// coverageRow emits the cells of a row whose coverage reaches the
// threshold.
func (r *run) coverageRow(y, xMin int, coverage []float32) {
	if r.err != nil {
		return
	}
	for i, c := range coverage {
		if float64(c) < r.t.cfg.Threshold-coverageEpsilon {
			continue
		}
		if err := r.cell(xMin+i, y); err != nil {
			r.err = err
			return
		}
	}
}

// centerSpan emits the cells [xMin, xMax) of row y.
func (r *run) centerSpan(y, xMin, xMax int) {
	if r.err != nil {
		return
	}
	for x := xMin; x < xMax; x++ {
		if err := r.cell(x, y); err != nil {
			r.err = err
			return
		}
	}
}

// cell emits a reference grid cell, located by its center.
func (r *run) cell(col, row int) error {
	x, y := raster.Apply(r.t.toWorld, float64(col)+0.5, float64(row)+0.5)
	return r.emit(col, row, x, y)
}

func (r *run) takeErr() error {
	err := r.err
	r.err = nil
	return err
}

// boxAround returns a rectangle of the given size centered on the
// envelope of g.
func boxAround(g vector.Geometry, b Box) vector.Geometry {
	env, _ := g.Envelope()
	cx, cy := (env.LLx+env.URx)/2, (env.LLy+env.URy)/2
	return vector.Rect(cx-b.Width/2, cy-b.Height/2, cx+b.Width/2, cy+b.Height/2)
}

// coverageEpsilon absorbs float32 rounding in area coverage.
const coverageEpsilon = 1e-6
