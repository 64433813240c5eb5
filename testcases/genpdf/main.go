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

// Command genpdf draws every traversal scenario as a PDF plate, for visual
// inspection: found cells are shaded, the grid is drawn in gray and the
// geometry in black.
package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/testcases"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"
)

const plateDir = "testdata/plates"

// plateSize is the length of the longer side of a plate, in points.
const plateSize = 480.0

func main() {
	if err := os.MkdirAll(plateDir, 0o755); err != nil {
		panic(err)
	}

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, sc := range testcases.All[category] {
			name := category + "_" + sc.Name
			if err := generatePDF(sc, filepath.Join(plateDir, name+".pdf")); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
		}
	}
}

func generatePDF(sc testcases.Scenario, pdfPath string) error {
	cells, err := sc.Run(context.Background())
	if err != nil {
		return err
	}
	toGrid, err := raster.Invert(sc.GridTransform())
	if err != nil {
		return err
	}

	scale := plateSize / float64(max(sc.Cols, sc.Rows))
	paper := &pdf.Rectangle{
		URx: scale * float64(sc.Cols),
		URy: scale * float64(sc.Rows),
	}
	page, err := document.CreateSinglePage(pdfPath, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	// grid rows run downwards, PDF coordinates upwards
	page.Transform(matrix.Matrix{scale, 0, 0, -scale, 0, scale * float64(sc.Rows)})

	page.SetFillColor(color.DeviceGray(0.75))
	for _, c := range cells {
		page.Rectangle(float64(c.Col), float64(c.Row), 1, 1)
	}
	page.Fill()

	if scale >= 4 {
		page.SetStrokeColor(color.DeviceGray(0.5))
		page.SetLineWidth(0.5 / scale)
		for col := 0; col <= sc.Cols; col++ {
			page.MoveTo(float64(col), 0)
			page.LineTo(float64(col), float64(sc.Rows))
		}
		for row := 0; row <= sc.Rows; row++ {
			page.MoveTo(0, float64(row))
			page.LineTo(float64(sc.Cols), float64(row))
		}
		page.Stroke()
	}

	page.SetStrokeColor(color.DeviceGray(0))
	page.SetFillColor(color.DeviceGray(0))
	page.SetLineWidth(1.5 / scale)
	dot := 2 / scale
	for cmd, pts := range sc.Geometry.Path() {
		var u, v float64
		if len(pts) > 0 {
			u, v = raster.Apply(toGrid, pts[0].X, pts[0].Y)
		}
		switch cmd {
		case path.CmdMoveTo:
			page.MoveTo(u, v)
		case path.CmdLineTo:
			page.LineTo(u, v)
		case path.CmdClose:
			page.ClosePath()
		}
	}
	page.Stroke()

	// mark the start of every subpath; points do not show up in the
	// stroke
	for cmd, pts := range sc.Geometry.Path() {
		if cmd != path.CmdMoveTo {
			continue
		}
		u, v := raster.Apply(toGrid, pts[0].X, pts[0].Y)
		page.Rectangle(u-dot/2, v-dot/2, dot, dot)
	}
	page.Fill()

	return page.Close()
}
