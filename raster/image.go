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
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"seehuhn.de/go/geom/matrix"
)

// FromImage copies an image into a Grid. Gray and paletted images give a
// single band (gray level or palette index); all other images give four
// bands R, G, B, A with non-premultiplied 16-bit values.
func FromImage(name string, img image.Image, gridToWorld matrix.Matrix) (*Grid, error) {
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()

	switch img := img.(type) {
	case *image.Gray:
		g, err := NewGrid(name, cols, rows, 1, gridToWorld)
		if err != nil {
			return nil, err
		}
		g.Fill(0, func(col, row int) float64 {
			return float64(img.GrayAt(b.Min.X+col, b.Min.Y+row).Y)
		})
		return g, nil

	case *image.Gray16:
		g, err := NewGrid(name, cols, rows, 1, gridToWorld)
		if err != nil {
			return nil, err
		}
		g.Fill(0, func(col, row int) float64 {
			return float64(img.Gray16At(b.Min.X+col, b.Min.Y+row).Y)
		})
		return g, nil

	case *image.Paletted:
		g, err := NewGrid(name, cols, rows, 1, gridToWorld)
		if err != nil {
			return nil, err
		}
		g.Fill(0, func(col, row int) float64 {
			return float64(img.ColorIndexAt(b.Min.X+col, b.Min.Y+row))
		})
		return g, nil
	}

	g, err := NewGrid(name, cols, rows, 4, gridToWorld)
	if err != nil {
		return nil, err
	}
	for row := range rows {
		for col := range cols {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+col, b.Min.Y+row)).(color.NRGBA64)
			g.Set(col, row, 0, float64(c.R))
			g.Set(col, row, 1, float64(c.G))
			g.Set(col, row, 2, float64(c.B))
			g.Set(col, row, 3, float64(c.A))
		}
	}
	return g, nil
}

// ReadTIFF decodes a TIFF image into a Grid. TIFF files carry no
// georeferencing which golang.org/x/image/tiff can read, so the
// grid-to-world transform is supplied by the caller.
func ReadTIFF(r io.Reader, name string, gridToWorld matrix.Matrix) (*Grid, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return FromImage(name, img, gridToWorld)
}

// LoadTIFF reads a TIFF file. The raster is named after the file.
func LoadTIFF(fname string, gridToWorld matrix.Matrix) (*Grid, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	name := strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
	return ReadTIFF(fd, name, gridToWorld)
}
