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
	"github.com/Ecotrust/starspan/vector"
	"seehuhn.de/go/geom/vec"
)

var lineCases = []Scenario{
	{
		Name:     "horizontal",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0.5, 9.5), pt(4.5, 9.5)),
		Want:     block(0, 0, 5, 1),
	},
	{
		Name:     "vertical",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(3.5, 9.8), pt(3.5, 6.2)),
		Want:     block(3, 0, 4, 4),
	},
	{
		Name:     "backwards",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(4.5, 8.5), pt(0.5, 8.5)),
		Want:     block(0, 1, 5, 2),
	},
	{
		Name:     "diagonal_corners",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0, 10), pt(3, 7)),
		Want:     []Cell{{0, 0}, {1, 1}, {2, 2}},
	},
	{
		Name:     "grid_line",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0, 8), pt(3, 8)),
		Want:     block(0, 2, 3, 3),
	},
	{
		Name:     "polyline_corner",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0.5, 9.5), pt(2.5, 9.5), pt(2.5, 7.5)),
		Want:     []Cell{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}},
	},
	{
		Name:     "short_tail",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0.5, 9.5), pt(1.2, 9.5)),
		Want:     []Cell{{0, 0}, {1, 0}},
	},
	{
		Name:      "full_cells",
		Cols:      10,
		Rows:      10,
		Geometry:  vector.NewLineString(pt(0.5, 9.5), pt(3.5, 9.5)),
		Threshold: 1,
		Want:      []Cell{{1, 0}, {2, 0}, {3, 0}},
	},
	{
		Name: "multi",
		Cols: 10,
		Rows: 10,
		Geometry: vector.NewMultiLineString(
			[]vec.Vec2{pt(0.5, 9.5), pt(2.5, 9.5)},
			[]vec.Vec2{pt(0.5, 5.5), pt(0.5, 3.5)},
		),
		Want: []Cell{{0, 0}, {1, 0}, {2, 0}, {0, 4}, {0, 5}, {0, 6}},
	},
	{
		Name:     "steep",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(1.1, 0.3), pt(2.9, 9.6)),
	},
	{
		Name:     "partly_outside",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(-20.5, 4.5), pt(30.5, 4.5)),
		Want:     block(0, 5, 10, 6),
	},
	{
		Name:     "far_outside",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(-1e8, 4.5), pt(1e8, 4.5)),
		Want:     block(0, 5, 10, 6),
	},
	{
		Name:     "leaves_and_returns",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(2.5, 8.5), pt(-40, 8.5), pt(-40, 6.5), pt(2.5, 6.5)),
		Want:     append(block(0, 1, 3, 2), block(0, 3, 3, 4)...),
	},
	{
		Name:     "zigzag",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(0.2, 0.2), pt(9.8, 2.1), pt(0.4, 4.7), pt(9.1, 9.9)),
	},
}
