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

package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/tiff"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

func TestInvert(t *testing.T) {
	ms := []matrix.Matrix{
		matrix.Identity,
		NorthUp(500000, 4200000, 30),
		GeoTransform([6]float64{100, 2, 0.5, 200, 0.25, -3}),
		{0, 1, 1, 0, 7, -2},
	}
	for _, m := range ms {
		inv, err := Invert(m)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {12.5, -7.25}} {
			x, y := Apply(m, p[0], p[1])
			u, v := Apply(inv, x, y)
			if math.Abs(u-p[0]) > 1e-6 || math.Abs(v-p[1]) > 1e-6 {
				t.Errorf("%v: round trip of %v gave (%g, %g)", m, p, u, v)
			}
		}
	}

	if _, err := Invert(matrix.Matrix{1, 2, 2, 4, 0, 0}); !errors.Is(err, ErrSingular) {
		t.Errorf("singular matrix: got %v", err)
	}
}

func TestGeo(t *testing.T) {
	// 10×5 cells of size 2, upper left corner at (100, 50)
	geo, err := NewGeo(10, 5, NorthUp(100, 50, 2))
	if err != nil {
		t.Fatal(err)
	}

	env := geo.Envelope()
	want := rect.Rect{LLx: 100, LLy: 40, URx: 120, URy: 50}
	if env != want {
		t.Errorf("envelope = %v, want %v", env, want)
	}

	x, y := geo.ToWorld(0, 0)
	if x != 101 || y != 49 {
		t.Errorf("center of (0,0) = (%g, %g)", x, y)
	}
	col, row, ok := geo.ToGrid(x, y)
	if !ok || col != 0 || row != 0 {
		t.Errorf("ToGrid(center) = %d, %d, %t", col, row, ok)
	}

	col, row, ok = geo.ToGrid(119.9, 40.1)
	if !ok || col != 9 || row != 4 {
		t.Errorf("lower right = %d, %d, %t", col, row, ok)
	}

	outside := [][2]float64{{99.9, 45}, {120, 45}, {110, 50.1}, {110, 40}}
	for _, p := range outside {
		if _, _, ok := geo.ToGrid(p[0], p[1]); ok {
			t.Errorf("%v reported inside", p)
		}
	}
}

func TestGridNoData(t *testing.T) {
	g, err := NewGrid("g", 3, 2, 2, matrix.Identity)
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(0, func(col, row int) float64 { return float64(10*row + col) })
	g.Set(1, 1, 1, math.NaN())
	g.SetNoData(0, 11)

	if v, ok, _ := g.BandValue(2, 1, 0); !ok || v != 12 {
		t.Errorf("(2,1,0) = %g, %t", v, ok)
	}
	if _, ok, _ := g.BandValue(1, 1, 0); ok {
		t.Error("sentinel value reported valid")
	}
	if _, ok, _ := g.BandValue(1, 1, 1); ok {
		t.Error("NaN reported valid")
	}
	if _, ok, _ := g.BandValue(3, 0, 0); ok {
		t.Error("out of range cell reported valid")
	}
	if _, _, err := g.BandValue(0, 0, 2); err == nil {
		t.Error("missing band did not fail")
	}
}

func TestReadTIFF(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 3))
	for y := range 3 {
		for x := range 4 {
			img.SetGray16(x, y, color.Gray16{Y: uint16(1000*y + x)})
		}
	}
	buf := &bytes.Buffer{}
	if err := tiff.Encode(buf, img, nil); err != nil {
		t.Fatal(err)
	}

	g, err := ReadTIFF(buf, "dem", NorthUp(0, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	if cols, rows := g.Size(); cols != 4 || rows != 3 {
		t.Fatalf("size = %dx%d", cols, rows)
	}
	if g.BandCount() != 1 {
		t.Fatalf("band count = %d", g.BandCount())
	}
	if v, _, _ := g.BandValue(3, 2, 0); v != 2003 {
		t.Errorf("(3,2) = %g, want 2003", v)
	}
}

func TestFromImageRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 128, A: 255})
	g, err := FromImage("rgb", img, matrix.Identity)
	if err != nil {
		t.Fatal(err)
	}
	if g.BandCount() != 4 {
		t.Fatalf("band count = %d", g.BandCount())
	}
	if v, _, _ := g.BandValue(0, 0, 0); v != 0xffff {
		t.Errorf("red = %g", v)
	}
	if v, _, _ := g.BandValue(0, 0, 2); v != 128*0x101 {
		t.Errorf("blue = %g", v)
	}
}
