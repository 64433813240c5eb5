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

var bufferCases = []Scenario{
	{
		Name:      "point_disc",
		Cols:      10,
		Rows:      10,
		Geometry:  vector.NewPoint(5.5, 4.5),
		Buffer:    1.5,
		Threshold: 0.7,
		Want:      []Cell{{5, 4}, {4, 5}, {5, 5}, {6, 5}, {5, 6}},
	},
	{
		Name:     "line_round_caps",
		Cols:     10,
		Rows:     10,
		Geometry: vector.NewLineString(pt(2.5, 5.5), pt(7.5, 5.5)),
		Buffer:   0.5,
		Want:     block(2, 4, 8, 5),
	},
	{
		Name:     "polyline",
		Cols:     16,
		Rows:     16,
		Geometry: vector.NewLineString(pt(2, 2), pt(8, 12.5), pt(13.5, 3)),
		Buffer:   1.2,
	},
	{
		Name:     "polygon",
		Cols:     12,
		Rows:     12,
		Geometry: vector.Rect(3, 3, 7, 7),
		Buffer:   1,
	},
}
