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

package observers

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
)

// CSVOptions controls the columns written by a CSV observer.
type CSVOptions struct {
	// NoColRow omits the col and row columns.
	NoColRow bool

	// NoXY omits the x and y columns.
	NoXY bool

	// NoData is written for band values without data.
	NoData string
}

// CSV writes one record per cell:
//
//	FID, <fields>, [col, row,] [x, y,] <raster>_b<band>...
//
// col and row refer to the grid of the first raster.
type CSV struct {
	w      *csv.Writer
	opts   CSVOptions
	fields []string

	prefix []string // FID and attributes of the current feature
	record []string
}

var _ starspan.Observer = (*CSV)(nil)

// NewCSV returns an observer writing to w. The output is flushed by End.
func NewCSV(w io.Writer, opts CSVOptions) *CSV {
	return &CSV{w: csv.NewWriter(w), opts: opts}
}

// Init writes the header line.
func (c *CSV) Init(info *starspan.GlobalInfo) error {
	c.fields = info.Fields
	header := append([]string{"FID"}, info.Fields...)
	if !c.opts.NoColRow {
		header = append(header, "col", "row")
	}
	if !c.opts.NoXY {
		header = append(header, "x", "y")
	}
	header = append(header, bandColumns(info, "")...)
	return c.w.Write(header)
}

// IsSimple implements starspan.Observer.
func (c *CSV) IsSimple() bool { return false }

// IntersectionFound implements starspan.Observer.
func (c *CSV) IntersectionFound(f *vector.Feature) error {
	c.prefix = featureColumns(c.prefix[:0], f, c.fields)
	return nil
}

// AddPixel writes one record.
func (c *CSV) AddPixel(ev *starspan.Event) error {
	rec := append(c.record[:0], c.prefix...)
	if !c.opts.NoColRow {
		rec = append(rec, strconv.Itoa(ev.Col), strconv.Itoa(ev.Row))
	}
	if !c.opts.NoXY {
		rec = append(rec, formatFloat(ev.X), formatFloat(ev.Y))
	}
	for _, s := range ev.Samples {
		for b, v := range s.Values {
			if s.Valid[b] {
				rec = append(rec, formatFloat(v))
			} else {
				rec = append(rec, c.opts.NoData)
			}
		}
	}
	c.record = rec
	return c.w.Write(rec)
}

// End flushes the output.
func (c *CSV) End() error {
	c.w.Flush()
	return c.w.Error()
}
