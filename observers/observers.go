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

// Package observers provides the output stages of a traversal: CSV
// extraction, per-feature statistics, an SQLite store, text dumps,
// mini-rasters and class counts.
//
// All observers write to caller-supplied writers or databases. They are
// not safe for concurrent use; create one set per Traverser.
package observers

import (
	"strconv"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
)

// bandColumns returns one column name per band of every raster,
// "<raster>_b<band>" with bands counted from 1.
func bandColumns(info *starspan.GlobalInfo, prefix string) []string {
	cols := make([]string, 0, info.BandCount())
	for _, r := range info.Rasters {
		for b := range r.Bands {
			cols = append(cols, prefix+r.Name+"_b"+strconv.Itoa(b+1))
		}
	}
	return cols
}

// featureColumns returns the FID and the attribute values of f, in the
// order of fields.
func featureColumns(dst []string, f *vector.Feature, fields []string) []string {
	dst = append(dst, strconv.FormatInt(f.FID, 10))
	for _, name := range fields {
		dst = append(dst, f.Attributes.String(name))
	}
	return dst
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
