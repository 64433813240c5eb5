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

// Package raster describes georeferenced raster grids as seen by the
// traversal engine, and provides an in-memory implementation.
//
// Grid coordinates are continuous: cell (col, row) covers the square
// [col, col+1) × [row, row+1). An affine matrix maps grid coordinates to
// world coordinates using the convention of seehuhn.de/go/geom/matrix:
//
//	x = M[0]*u + M[2]*v + M[4]
//	y = M[1]*u + M[3]*v + M[5]
package raster

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// Raster is a read-only, georeferenced grid with one or more bands.
// Implementations must be safe for concurrent reads.
type Raster interface {
	// Name identifies the raster in outputs.
	Name() string

	// Size returns the number of columns and rows.
	Size() (cols, rows int)

	// BandCount returns the number of bands.
	BandCount() int

	// Transform returns the grid-to-world matrix.
	Transform() matrix.Matrix

	// ToGrid returns the cell containing the world point (x, y).
	// ok is false if the point lies outside the grid.
	ToGrid(x, y float64) (col, row int, ok bool)

	// ToWorld returns the world coordinates of the center of a cell.
	ToWorld(col, row int) (x, y float64)

	// Envelope returns the world-space bounding box of the grid.
	Envelope() rect.Rect

	// BandValue returns the value of a band (counting from 0) at a cell.
	// valid is false for "no data" cells. An error indicates an I/O
	// failure and aborts the traversal.
	BandValue(col, row, band int) (value float64, valid bool, err error)
}

// ErrSingular is returned for grid transforms which cannot be inverted.
var ErrSingular = errors.New("singular grid transform")

// Geo holds the georeferencing of a grid. It implements all Raster methods
// except Name, BandCount and BandValue, and is meant to be embedded.
type Geo struct {
	Cols, Rows int
	toWorld    matrix.Matrix
	toGrid     matrix.Matrix
}

// NewGeo returns the georeferencing for a cols × rows grid with the given
// grid-to-world transform.
func NewGeo(cols, rows int, gridToWorld matrix.Matrix) (Geo, error) {
	if cols <= 0 || rows <= 0 {
		return Geo{}, fmt.Errorf("invalid grid size %dx%d", cols, rows)
	}
	inv, err := Invert(gridToWorld)
	if err != nil {
		return Geo{}, err
	}
	return Geo{Cols: cols, Rows: rows, toWorld: gridToWorld, toGrid: inv}, nil
}

// Size implements Raster.
func (g *Geo) Size() (cols, rows int) { return g.Cols, g.Rows }

// Transform implements Raster.
func (g *Geo) Transform() matrix.Matrix { return g.toWorld }

// Inverse returns the world-to-grid matrix.
func (g *Geo) Inverse() matrix.Matrix { return g.toGrid }

// ToGrid implements Raster.
func (g *Geo) ToGrid(x, y float64) (col, row int, ok bool) {
	u, v := Apply(g.toGrid, x, y)
	cf, rf := math.Floor(u), math.Floor(v)
	if cf < 0 || rf < 0 || cf >= float64(g.Cols) || rf >= float64(g.Rows) {
		return 0, 0, false
	}
	return int(cf), int(rf), true
}

// ToWorld implements Raster.
func (g *Geo) ToWorld(col, row int) (x, y float64) {
	return Apply(g.toWorld, float64(col)+0.5, float64(row)+0.5)
}

// Envelope implements Raster.
func (g *Geo) Envelope() rect.Rect {
	return TransformRect(g.toWorld, rect.Rect{URx: float64(g.Cols), URy: float64(g.Rows)})
}

// GeoTransform converts a GDAL-style geotransform
//
//	x = gt[0] + col*gt[1] + row*gt[2]
//	y = gt[3] + col*gt[4] + row*gt[5]
//
// into a grid-to-world matrix.
func GeoTransform(gt [6]float64) matrix.Matrix {
	return matrix.Matrix{gt[1], gt[4], gt[2], gt[5], gt[0], gt[3]}
}

// NorthUp returns the transform of a north-up grid whose upper left corner
// is at (x0, y0) and whose cells are size × size world units.
func NorthUp(x0, y0, size float64) matrix.Matrix {
	return matrix.Matrix{size, 0, 0, -size, x0, y0}
}

// Apply maps the point (x, y) through m.
func Apply(m matrix.Matrix, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Invert returns the inverse of an affine matrix.
func Invert(m matrix.Matrix) (matrix.Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return matrix.Matrix{}, ErrSingular
	}
	a := m[3] / det
	b := -m[1] / det
	c := -m[2] / det
	d := m[0] / det
	return matrix.Matrix{
		a, b,
		c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}, nil
}

// TransformRect returns the bounding box of the image of r under m.
func TransformRect(m matrix.Matrix, r rect.Rect) rect.Rect {
	var out rect.Rect
	corners := [4][2]float64{{r.LLx, r.LLy}, {r.URx, r.LLy}, {r.URx, r.URy}, {r.LLx, r.URy}}
	for i, c := range corners {
		x, y := Apply(m, c[0], c[1])
		if i == 0 {
			out = rect.Rect{LLx: x, LLy: y, URx: x, URy: y}
			continue
		}
		out.LLx = min(out.LLx, x)
		out.LLy = min(out.LLy, y)
		out.URx = max(out.URx, x)
		out.URy = max(out.URy, y)
	}
	return out
}
