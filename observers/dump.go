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
	"bufio"
	"fmt"
	"io"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Dump writes features and the outlines of their cells as plain-text data
// sets, one "x , y" coordinate pair per line, for plotting:
//
//	DataSet: FID=<fid>
//	DataSet: <geometry part>
//	DataSet: Pixel
type Dump struct {
	w       *bufio.Writer
	toWorld matrix.Matrix
}

var _ starspan.Observer = (*Dump)(nil)

// NewDump returns an observer writing to w.
func NewDump(w io.Writer) *Dump {
	return &Dump{w: bufio.NewWriter(w)}
}

// Init writes the envelope of the first raster's grid.
func (d *Dump) Init(info *starspan.GlobalInfo) error {
	if len(info.Rasters) == 0 {
		return nil
	}
	r := info.Rasters[0]
	d.toWorld = r.Transform
	fmt.Fprintln(d.w, "DataSet: grid_envelope")
	d.outline(0, 0, float64(r.Cols), float64(r.Rows))
	return nil
}

// IsSimple implements starspan.Observer.
func (d *Dump) IsSimple() bool { return false }

// IntersectionFound writes the vertices of the feature geometry, one data
// set per subpath.
func (d *Dump) IntersectionFound(f *vector.Feature) error {
	fmt.Fprintf(d.w, "DataSet: FID=%d\n", f.FID)
	var first vec.Vec2
	n := 0 // vertices in the current subpath
	for cmd, pts := range f.Geometry.Path() {
		switch cmd {
		case path.CmdMoveTo:
			fmt.Fprintf(d.w, "DataSet: %v\n", f.Geometry.Type)
			first, n = pts[0], 0
		case path.CmdClose:
			if n > 1 {
				d.vertex(first)
			}
			continue
		}
		for _, p := range pts {
			d.vertex(p)
			n++
		}
	}
	return nil
}

func (d *Dump) vertex(p vec.Vec2) {
	fmt.Fprintf(d.w, "%10.3f , %10.3f\n", p.X, p.Y)
}

// AddPixel writes the corners of the cell, as a closed outline.
func (d *Dump) AddPixel(ev *starspan.Event) error {
	fmt.Fprintln(d.w, "DataSet: Pixel")
	c, r := float64(ev.Col), float64(ev.Row)
	d.outline(c, r, c+1, r+1)
	return nil
}

// End flushes the output.
func (d *Dump) End() error {
	return d.w.Flush()
}

// outline writes the closed outline of the grid rectangle [c0,c1]×[r0,r1]
// in world coordinates.
func (d *Dump) outline(c0, r0, c1, r1 float64) {
	corners := [...][2]float64{{c0, r0}, {c1, r0}, {c1, r1}, {c0, r1}, {c0, r0}}
	for _, c := range corners {
		x, y := raster.Apply(d.toWorld, c[0], c[1])
		fmt.Fprintf(d.w, "%f , %f\n", x, y)
	}
}
