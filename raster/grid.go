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
	"math"

	"seehuhn.de/go/geom/matrix"
)

// Grid is an in-memory raster. Band values are stored row by row as
// float64. NaN values are always "no data"; in addition every band may
// have a nodata sentinel.
type Grid struct {
	Geo

	name   string
	bands  [][]float64
	nodata []float64 // per band; NaN means no sentinel
}

var _ Raster = (*Grid)(nil)

// NewGrid allocates a zero-filled grid.
func NewGrid(name string, cols, rows, bands int, gridToWorld matrix.Matrix) (*Grid, error) {
	if bands <= 0 {
		return nil, fmt.Errorf("%s: invalid band count %d", name, bands)
	}
	geo, err := NewGeo(cols, rows, gridToWorld)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	g := &Grid{
		Geo:    geo,
		name:   name,
		bands:  make([][]float64, bands),
		nodata: make([]float64, bands),
	}
	for i := range g.bands {
		g.bands[i] = make([]float64, cols*rows)
		g.nodata[i] = math.NaN()
	}
	return g, nil
}

// Name implements Raster.
func (g *Grid) Name() string { return g.name }

// BandCount implements Raster.
func (g *Grid) BandCount() int { return len(g.bands) }

// BandValue implements Raster.
func (g *Grid) BandValue(col, row, band int) (float64, bool, error) {
	if band < 0 || band >= len(g.bands) {
		return 0, false, fmt.Errorf("%s: band %d out of range", g.name, band)
	}
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return 0, false, nil
	}
	v := g.bands[band][row*g.Cols+col]
	if math.IsNaN(v) || v == g.nodata[band] {
		return v, false, nil
	}
	return v, true, nil
}

// Set stores a band value.
func (g *Grid) Set(col, row, band int, v float64) {
	g.bands[band][row*g.Cols+col] = v
}

// Fill sets every cell of a band using f.
func (g *Grid) Fill(band int, f func(col, row int) float64) {
	data := g.bands[band]
	for row := range g.Rows {
		for col := range g.Cols {
			data[row*g.Cols+col] = f(col, row)
		}
	}
}

// SetNoData sets the nodata sentinel of a band. NaN clears it.
func (g *Grid) SetNoData(band int, v float64) {
	g.nodata[band] = v
}

// NoData returns the nodata sentinel of a band, or NaN if there is none.
func (g *Grid) NoData(band int) float64 {
	return g.nodata[band]
}
