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
	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
)

var precisionCases = []Scenario{
	{
		Name:     "sliver",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(0.5, 5.2, 9.5, 5.25),
		Want:     block(0, 4, 10, 5),
	},
	{
		Name:     "tiny",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(4.2, 4.2, 4.4, 4.4),
		Want:     []Cell{{4, 5}},
	},
	{
		// 30m cells with the upper left corner at (500000, 4200300)
		Name:      "utm_offset",
		Cols:      10,
		Rows:      10,
		Transform: raster.NorthUp(500000, 4200300, 30),
		Geometry:  vector.Rect(500065, 4200065, 500145, 4200145),
		Want:      block(2, 5, 5, 8),
	},
	{
		Name:     "subcell_offset_25",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(2.25, 2.25, 6.25, 6.25),
	},
	{
		Name:     "subcell_offset_75",
		Cols:     10,
		Rows:     10,
		Geometry: vector.Rect(2.75, 2.75, 6.75, 6.75),
	},
	{
		Name:      "rotated_grid",
		Cols:      20,
		Rows:      20,
		Transform: raster.GeoTransform([6]float64{100, 0.8, 0.6, 200, 0.6, -0.8}),
		Geometry:  vector.NewPolygon(regular(108, 194, 5, 7)),
	},
}
