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

package rasterize

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/path"
)

// crossing is the intersection of an edge with a row's center line.
type crossing struct {
	x   float64
	dir int // +1 if the edge runs towards larger y, -1 otherwise
}

// SpanFunc receives a run of cells [xMin, xMax) in row y.
type SpanFunc func(y, xMin, xMax int)

// FillCenters enumerates the cells whose centers lie inside the area
// enclosed by p, row by row in increasing y and, within a row, in
// increasing x. Open subpaths are closed implicitly.
//
// Each row is intersected with the horizontal line through the cell
// centers. An edge counts as crossing the line at height yc if
// min(y0,y1) <= yc < max(y0,y1), so that a vertex on the line is counted
// exactly once. A cell whose center lies exactly on a crossing belongs to
// the span to its right.
func (r *Rasterizer) FillCenters(p path.Path, rule FillRule, emit SpanFunc) {
	_, _, yMin, yMax, ok := r.collectPathEdges(p)
	if !ok {
		return
	}

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})

	clipXMin, clipXMax := int(r.Clip.LLx), int(r.Clip.URx)
	r.activeIdx = r.activeIdx[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		yc := float64(y) + 0.5

		for next < len(r.edges) && min(r.edges[next].y0, r.edges[next].y1) <= yc {
			r.activeIdx = append(r.activeIdx, next)
			next++
		}

		r.crossings = r.crossings[:0]
		for i := 0; i < len(r.activeIdx); {
			e := &r.edges[r.activeIdx[i]]
			if max(e.y0, e.y1) <= yc {
				last := len(r.activeIdx) - 1
				r.activeIdx[i] = r.activeIdx[last]
				r.activeIdx = r.activeIdx[:last]
				continue
			}
			dir := 1
			if e.y1 < e.y0 {
				dir = -1
			}
			r.crossings = append(r.crossings, crossing{
				x:   e.x0 + e.dxdy*(yc-e.y0),
				dir: dir,
			})
			i++
		}
		if len(r.crossings) < 2 {
			continue
		}
		slices.SortFunc(r.crossings, func(a, b crossing) int {
			return cmp.Compare(a.x, b.x)
		})

		span := func(a, b float64) {
			lo := max(int(math.Ceil(a-0.5)), clipXMin)
			hi := min(int(math.Ceil(b-0.5)), clipXMax)
			if lo < hi {
				emit(y, lo, hi)
			}
		}

		if rule == EvenOdd {
			for i := 0; i+1 < len(r.crossings); i += 2 {
				span(r.crossings[i].x, r.crossings[i+1].x)
			}
			continue
		}

		winding := 0
		var start float64
		for _, c := range r.crossings {
			before := winding
			winding += c.dir
			switch {
			case before == 0 && winding != 0:
				start = c.x
			case before != 0 && winding == 0:
				span(start, c.x)
			}
		}
	}
}
