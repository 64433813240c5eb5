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
	"github.com/Ecotrust/starspan/vector"
)

// largeCases have bounding boxes of more than 65536 cells, which the
// fill engine handles with an active edge list.
var largeCases = []Scenario{
	{
		Name:     "large_square_coverage",
		Cols:     600,
		Rows:     600,
		Geometry: vector.Rect(50.25, 50.25, 550.25, 550.25),
		Interior: starspan.InteriorCoverage,
		Want:     block(50, 50, 550, 550),
	},
	{
		Name:     "large_circle",
		Cols:     600,
		Rows:     600,
		Geometry: vector.NewPolygon(regular(300, 300, 250, 720)),
	},
}
