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
	"fmt"
	"math"
	"slices"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/vector"
)

// DefaultThreshold is the pixel proportion used by the command line tool
// when none is configured.
const DefaultThreshold = 0.5

// Interior selects how the inside of polygons is turned into cells.
type Interior int

const (
	// InteriorCenters rasterizes the rings with the line rasterizer and
	// adds every cell whose center lies inside the polygon.
	InteriorCenters Interior = iota

	// InteriorCoverage emits every cell whose area is covered by the
	// polygon by at least the threshold.
	InteriorCoverage
)

func (i Interior) String() string {
	switch i {
	case InteriorCenters:
		return "centers"
	case InteriorCoverage:
		return "coverage"
	default:
		return fmt.Sprintf("Interior(%d)", int(i))
	}
}

// Box is the size of the rectangle which replaces each geometry when
// Config.Box is set.
type Box struct {
	Width, Height float64
}

// Config describes one traversal run. It is copied by New and must not be
// changed by the caller afterwards.
type Config struct {
	// Vector is the feature source. Required.
	Vector vector.Source

	// Rasters are the grids to extract values from, in output order. The
	// first raster defines the grid in which geometries are rasterized.
	// At least one is required.
	Rasters []raster.Raster

	// Threshold is the pixel proportion in (0, 1] a line or polygon must
	// cover for a cell to count as hit.
	Threshold float64

	// DesiredFID, if set, restricts the run to this feature.
	DesiredFID *int64

	// DesiredField and DesiredValue, if set, restrict the run to the first
	// feature whose attribute DesiredField has the string form
	// DesiredValue.
	DesiredField string
	DesiredValue string

	// Buffer, if positive, grows every geometry by this distance in world
	// units before it is rasterized.
	Buffer float64

	// Box, if set, replaces every geometry by a rectangle of this size
	// centered on the geometry's envelope.
	Box *Box

	// Interior and FillRule control polygon filling.
	Interior Interior
	FillRule rasterize.FillRule

	// DisableSpatialFilter turns off the envelope query on sources which
	// implement vector.SpatialSource.
	DisableSpatialFilter bool

	// Observers receive the traversal results, in this order.
	Observers []Observer

	// CRS describes the coordinate reference system for the observers.
	// It is not interpreted.
	CRS string

	// Verbose enables logging of every skipped feature.
	Verbose bool

	// Logf overrides the package logger for this run.
	Logf func(format string, v ...any)
}

// validate checks c and returns a *ConfigError for the first problem.
func (c *Config) validate() error {
	if c.Vector == nil {
		return &ConfigError{Field: "Vector", Reason: "no vector source"}
	}
	if len(c.Rasters) == 0 {
		return &ConfigError{Field: "Rasters", Reason: "no raster attached"}
	}
	for i, r := range c.Rasters {
		if r == nil {
			return &ConfigError{Field: fmt.Sprintf("Rasters[%d]", i), Reason: "nil raster"}
		}
		if cols, rows := r.Size(); cols <= 0 || rows <= 0 {
			return &ConfigError{Field: fmt.Sprintf("Rasters[%d]", i), Reason: fmt.Sprintf("empty grid %dx%d", cols, rows)}
		}
		if r.BandCount() <= 0 {
			return &ConfigError{Field: fmt.Sprintf("Rasters[%d]", i), Reason: "no bands"}
		}
	}
	if !(c.Threshold > 0 && c.Threshold <= 1) {
		return &ConfigError{Field: "Threshold", Reason: fmt.Sprintf("%g is outside (0, 1]", c.Threshold)}
	}
	if c.DesiredValue != "" && c.DesiredField == "" {
		return &ConfigError{Field: "DesiredField", Reason: "desired value given without a field"}
	}
	if c.DesiredField != "" && !slices.Contains(c.Vector.Fields(), c.DesiredField) {
		return &ConfigError{Field: "DesiredField", Reason: fmt.Sprintf("layer has no field %q", c.DesiredField)}
	}
	if c.DesiredFID != nil && c.DesiredField != "" {
		return &ConfigError{Field: "DesiredFID", Reason: "cannot be combined with DesiredField"}
	}
	if math.IsNaN(c.Buffer) || math.IsInf(c.Buffer, 0) || c.Buffer < 0 {
		return &ConfigError{Field: "Buffer", Reason: fmt.Sprintf("invalid distance %g", c.Buffer)}
	}
	if c.Box != nil && !(c.Box.Width > 0 && c.Box.Height > 0) {
		return &ConfigError{Field: "Box", Reason: fmt.Sprintf("invalid size %gx%g", c.Box.Width, c.Box.Height)}
	}
	if c.Interior != InteriorCenters && c.Interior != InteriorCoverage {
		return &ConfigError{Field: "Interior", Reason: fmt.Sprintf("unknown mode %d", int(c.Interior))}
	}
	if c.FillRule != rasterize.EvenOdd && c.FillRule != rasterize.NonZero {
		return &ConfigError{Field: "FillRule", Reason: fmt.Sprintf("unknown rule %d", int(c.FillRule))}
	}
	for i, o := range c.Observers {
		if o == nil {
			return &ConfigError{Field: fmt.Sprintf("Observers[%d]", i), Reason: "nil observer"}
		}
	}
	return nil
}
