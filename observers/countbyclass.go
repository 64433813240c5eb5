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
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
)

// CountByClass counts, for every feature, the cells per class of the first
// band of the first raster. Band values are truncated to integer classes;
// cells without data are not counted. The output has the columns
// FID,class,count, with the classes of a feature in increasing order.
type CountByClass struct {
	w *csv.Writer

	current *vector.Feature
	counts  map[int64]int
}

var _ starspan.Observer = (*CountByClass)(nil)

// NewCountByClass returns an observer writing to w.
func NewCountByClass(w io.Writer) *CountByClass {
	return &CountByClass{
		w:      csv.NewWriter(w),
		counts: make(map[int64]int),
	}
}

// Init writes the header line.
func (c *CountByClass) Init(info *starspan.GlobalInfo) error {
	return c.w.Write([]string{"FID", "class", "count"})
}

// IsSimple implements starspan.Observer.
func (c *CountByClass) IsSimple() bool { return false }

// IntersectionFound writes the counts of the previous feature.
func (c *CountByClass) IntersectionFound(f *vector.Feature) error {
	if err := c.flush(); err != nil {
		return err
	}
	c.current = f
	return nil
}

// AddPixel counts one cell.
func (c *CountByClass) AddPixel(ev *starspan.Event) error {
	if len(ev.Samples) == 0 {
		return nil
	}
	s := ev.Samples[0]
	if !s.InBounds || !s.Valid[0] {
		return nil
	}
	c.counts[int64(math.Trunc(s.Values[0]))]++
	return nil
}

// End writes the last counts and flushes the output.
func (c *CountByClass) End() error {
	err := c.flush()
	c.w.Flush()
	if err != nil {
		return err
	}
	return c.w.Error()
}

func (c *CountByClass) flush() error {
	if c.current == nil {
		return nil
	}
	fid := strconv.FormatInt(c.current.FID, 10)
	for _, class := range slices.Sorted(maps.Keys(c.counts)) {
		err := c.w.Write([]string{fid, strconv.FormatInt(class, 10), strconv.Itoa(c.counts[class])})
		if err != nil {
			return err
		}
	}
	clear(c.counts)
	c.current = nil
	return nil
}
