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

package testcases

import (
	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/vector"
)

var polygonCases = []Scenario{
	{
		Name:     "square_aligned",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(2, 2, 5, 5),
		Want:     block(2, 5, 5, 8),
	},
	{
		Name:     "square_offset",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(2.3, 2, 5.3, 5),
		Want:     block(2, 5, 6, 8),
	},
	{
		Name:     "square_offset_coverage",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(2.3, 2, 5.3, 5),
		Interior: starspan.InteriorCoverage,
		Want:     block(2, 5, 5, 8),
	},
	{
		Name:     "hole_evenodd",
		Cols:     10,
		Rows:     10,
		Geometry: withHole(vector.Rect(0, 0, 10, 10), vector.Rect(3, 3, 7, 7)),
		Want:     without(block(0, 0, 10, 10), block(3, 3, 7, 7)),
	},
	{
		// both rings run counter-clockwise
		Name:     "hole_nonzero",
		Cols:     10,
		Rows:     10,
		Geometry: withHole(vector.Rect(0, 0, 10, 10), vector.Rect(3, 3, 7, 7)),
		Rule:     rasterize.NonZero,
		Want:     block(0, 0, 10, 10),
	},
	{
		Name: "multipolygon",
		Cols: 10,
		Rows: 10,
		Geometry: vector.NewMultiPolygon(
			vector.Rect(1, 1, 3, 3).Polygons[0],
			vector.Rect(6, 6, 9, 8).Polygons[0],
		),
		Want: append(block(1, 7, 3, 9), block(6, 2, 9, 4)...),
	},
	{
		Name:     "triangle",
		Cols:     16,
		Rows:     16,
		Geometry: vector.NewPolygon(vector.Ring{pt(1.3, 1.1), pt(14.6, 3.2), pt(6.1, 14.7)}),
	},
	{
		Name:     "star_evenodd",
		Cols:     32,
		Rows:     32,
		Geometry: vector.NewPolygon(star(16, 16, 13)),
	},
	{
		Name:     "star_nonzero",
		Cols:     32,
		Rows:     32,
		Geometry: vector.NewPolygon(star(16, 16, 13)),
		Rule:     rasterize.NonZero,
	},
	{
		Name:     "star_coverage",
		Cols:     32,
		Rows:     32,
		Geometry: vector.NewPolygon(star(16, 16, 13)),
		Interior: starspan.InteriorCoverage,
	},
	{
		Name:     "diamond",
		Cols:     12,
		Rows:     12,
		Geometry: vector.NewPolygon(regular(6, 6, 4.5, 4)),
	},
	{
		Name:     "partly_outside",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(-5, 2, 5, 8),
		Want:     block(0, 2, 5, 8),
	},
	{
		Name:     "far_outside",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(-1e7, 3, 1e7, 7),
		Want:     block(0, 3, 10, 7),
	},
	{
		Name:     "clipped",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(-5.5, -5.5, 4.5, 4.5),
	},
}

// withHole adds the outer ring of hole as a hole of the polygon g.
func withHole(g, hole vector.Geometry) vector.Geometry {
	return vector.NewPolygon(g.Polygons[0][0], hole.Polygons[0][0])
}
