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

import "github.com/Ecotrust/starspan/vector"

var pointCases = []Scenario{
	{
		Name:     "single",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewPoint(2.5, 7.5),
		Want:     []Cell{{2, 2}},
	},
	{
		Name:     "on_corner",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewPoint(3, 7),
		Want:     []Cell{{3, 3}},
	},
	{
		Name:     "multi_duplicate",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewMultiPoint(pt(1.2, 8.8), pt(1.7, 8.3), pt(5.5, 5.5)),
		Want:     []Cell{{1, 1}, {5, 4}},
	},
	{
		Name:     "outside",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewPoint(20, 20),
		Want:     []Cell{},
	},
	{
		Name: "collection",
		Cols: 10,
		Rows: 10,
		Geometry: vector.NewCollection(
			vector.NewPoint(0.5, 9.5),
			vector.NewLineString(pt(2.5, 9.5), pt(4.5, 9.5)),
		),
		Want: []Cell{{0, 0}, {2, 0}, {3, 0}, {4, 0}},
	},
}
