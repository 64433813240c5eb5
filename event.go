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

package starspan

import (
	"slices"

	"github.com/Ecotrust/starspan/vector"
	"github.com/google/uuid"
	"seehuhn.de/go/geom/matrix"
)

// RasterInfo describes one attached raster.
type RasterInfo struct {
	Name       string
	Cols, Rows int
	Bands      int
	Transform  matrix.Matrix // grid to world
}

// GlobalInfo is passed to Observer.Init before the first feature.
type GlobalInfo struct {
	RunID     uuid.UUID
	Layer     string
	Fields    []string
	Rasters   []RasterInfo
	CRS       string
	Threshold float64
}

// BandCount returns the total number of bands over all rasters.
func (g *GlobalInfo) BandCount() int {
	n := 0
	for _, r := range g.Rasters {
		n += r.Bands
	}
	return n
}

// Sample holds the values of one raster at an event location.
type Sample struct {
	// Col and Row locate the cell in this raster. They are only
	// meaningful if InBounds is set.
	Col, Row int

	// InBounds is false if the location lies outside this raster; all
	// values are then reported as no data.
	InBounds bool

	// Values holds one entry per band. Valid[b] is false where the
	// raster has no data.
	Values []float64
	Valid  []bool
}

// Event is one cell found for the current feature.
//
// The Traverser reuses Events: an Observer must not keep the pointer, or
// any slice in it, after AddPixel returns. Use Clone to keep a copy.
type Event struct {
	// Feature is the current feature. It is nil if every observer
	// reported IsSimple.
	Feature *vector.Feature

	// Col and Row locate the cell in the grid of the first raster. The
	// cell may lie outside that raster if another raster covers it.
	Col, Row int

	// X and Y are the world coordinates of the hit: the point itself for
	// point geometries, the cell center otherwise.
	X, Y float64

	// Samples has one entry per attached raster, in registration order.
	Samples []Sample
}

// Clone returns a deep copy of e. The feature is shared.
func (e *Event) Clone() *Event {
	c := *e
	c.Samples = make([]Sample, len(e.Samples))
	for i, s := range e.Samples {
		s.Values = slices.Clone(s.Values)
		s.Valid = slices.Clone(s.Valid)
		c.Samples[i] = s
	}
	return &c
}
