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
	"io"
	"maps"
	"slices"
	"time"

	"github.com/Ecotrust/starspan/vector"
	"github.com/google/uuid"
)

// Summary counts what happened during a traversal run.
type Summary struct {
	RunID uuid.UUID

	Read         int // features taken from the source
	Intersecting int // features passed to IntersectionFound
	Outside      int // features outside every raster
	Invalid      int // features skipped because of their geometry

	// ByType counts intersecting features by geometry type.
	ByType map[vector.Type]int

	Pixels  int // events passed to AddPixel
	Elapsed time.Duration
}

func newSummary(id uuid.UUID) *Summary {
	return &Summary{RunID: id, ByType: make(map[vector.Type]int)}
}

// Report writes a human readable version of s to w.
func (s *Summary) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w, "run %s: %d features read, %d intersecting, %d outside, %d invalid\n",
		s.RunID, s.Read, s.Intersecting, s.Outside, s.Invalid)
	if err != nil {
		return err
	}
	for _, t := range slices.Sorted(maps.Keys(s.ByType)) {
		if _, err := fmt.Fprintf(w, "  %-16s %d\n", t.String()+":", s.ByType[t]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%d pixels in %v\n", s.Pixels, s.Elapsed.Round(time.Millisecond))
	return err
}

// add merges the counts of o into s.
func (s *Summary) add(o *Summary) {
	s.Read += o.Read
	s.Intersecting += o.Intersecting
	s.Outside += o.Outside
	s.Invalid += o.Invalid
	s.Pixels += o.Pixels
	for t, n := range o.ByType {
		s.ByType[t] += n
	}
}
