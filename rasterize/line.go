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

package rasterize

import (
	"errors"
	"fmt"
	"math"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// CellFunc receives the world coordinates of the center of a cell found
// by a LineRasterizer. Returning an error stops the rasterization.
type CellFunc func(x, y float64) error

// ErrThreshold is returned by NewLineRasterizer for thresholds outside
// (0, 1].
var ErrThreshold = errors.New("coverage threshold must be in (0, 1]")

// LineRasterizer walks line segments through a grid and reports every cell
// which the segments cover by at least a given proportion.
//
// The coverage of a cell is the length of the segment inside the cell,
// measured along the dominant axis of the segment, so that a segment
// crossing a full cell along that axis covers it by 1. Coverage
// accumulates over chained segments while they stay in the same cell.
//
// A LineRasterizer is not safe for concurrent use.
type LineRasterizer struct {
	toGrid, toWorld matrix.Matrix
	threshold       float64

	clip    rect.Rect // grid coordinates
	clipped bool

	// state of the current chain
	pending  bool // a cell is being accumulated
	col, row int
	acc      float64
	reported bool

	// first cell of a ring, recorded when the ring leaves it
	ring          ringState
	firstCol      int
	firstRow      int
	firstAcc      float64
	firstReported bool
}

type ringState int

const (
	ringOff      ringState = iota
	ringArmed              // waiting to leave the start cell
	ringRecorded           // first* fields are valid
)

// NewLineRasterizer returns a LineRasterizer for the grid given by toGrid,
// which maps world coordinates to continuous grid coordinates.
func NewLineRasterizer(toGrid matrix.Matrix, threshold float64) (*LineRasterizer, error) {
	if !(threshold > 0 && threshold <= 1) {
		return nil, fmt.Errorf("%w: got %g", ErrThreshold, threshold)
	}
	toWorld, err := raster.Invert(toGrid)
	if err != nil {
		return nil, err
	}
	return &LineRasterizer{
		toGrid:    toGrid,
		toWorld:   toWorld,
		threshold: threshold,
	}, nil
}

// Threshold returns the coverage proportion a cell needs to be reported.
func (l *LineRasterizer) Threshold() float64 {
	return l.threshold
}

// SetClip restricts all further walks to the closed rectangle r, given in
// grid coordinates. Cells outside r are skipped without being visited, so
// the work per segment depends only on the part of it inside r. For the
// coverage of the cells inside to be unchanged, the corners of r must lie
// on grid lines.
func (l *LineRasterizer) SetClip(r rect.Rect) {
	l.clip = r
	l.clipped = true
}

// Reset discards the state of the current chain, without reporting a
// pending cell.
func (l *LineRasterizer) Reset() {
	l.pending = false
	l.acc = 0
	l.reported = false
	l.ring = ringOff
}

// Ring rasterizes the closed ring through pts; the segment from the last
// point back to the first is implied. The ring has no ends, so no partial
// cell is flushed: the cell containing pts[0] is judged by the coverage of
// the closing segment together with that of the opening one. A ring which
// never leaves its first cell reports that cell.
func (l *LineRasterizer) Ring(pts []vec.Vec2, found CellFunc) error {
	l.Reset()
	defer l.Reset()
	if len(pts) == 0 {
		return nil
	}

	l.ring = ringArmed
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		if err := l.Chain(a.X, a.Y, b.X, b.Y, false, found); err != nil {
			return err
		}
	}

	if !l.pending || l.reported {
		return nil
	}
	switch l.ring {
	case ringArmed:
		return l.report(found)
	case ringRecorded:
		if l.col == l.firstCol && l.row == l.firstRow && !l.firstReported &&
			l.acc+l.firstAcc >= l.threshold-coverageEpsilon {
			return l.report(found)
		}
	}
	return nil
}

// Line rasterizes the segment (x1,y1)-(x2,y2), independently of any
// previous segment. If last is set, a cell at the end of the segment which
// has some coverage below the threshold is reported as well. A segment with
// identical end points reports the cell containing that point.
func (l *LineRasterizer) Line(x1, y1, x2, y2 float64, last bool, found CellFunc) error {
	l.Reset()
	return l.Chain(x1, y1, x2, y2, last, found)
}

// Chain rasterizes the segment (x1,y1)-(x2,y2) as a continuation of the
// previous one: if the segment starts in the cell where the previous one
// ended, coverage keeps accumulating in that cell and the cell is reported
// at most once. Set last on the final segment of a chain to flush the
// pending cell and end the chain.
func (l *LineRasterizer) Chain(x1, y1, x2, y2 float64, last bool, found CellFunc) error {
	for _, c := range [...]float64{x1, y1, x2, y2} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return &vector.GeometryError{
				Type:   vector.TypeLineString,
				Reason: fmt.Sprintf("non-finite coordinate in segment (%g,%g)-(%g,%g)", x1, y1, x2, y2),
			}
		}
	}

	m := l.toGrid
	u0 := m[0]*x1 + m[2]*y1 + m[4]
	v0 := m[1]*x1 + m[3]*y1 + m[5]
	u1 := m[0]*x2 + m[2]*y2 + m[4]
	v1 := m[1]*x2 + m[3]*y2 + m[5]
	du, dv := u1-u0, v1-v0

	if du == 0 && dv == 0 {
		return l.point(u0, v0, last, found)
	}

	t0, t1 := 0.0, 1.0
	if l.clipped {
		var ok bool
		t0, t1, ok = clipSegment(l.clip, u0, v0, du, dv)
		if !ok {
			l.leave()
			return nil
		}
		if t0 > 0 && l.ring == ringArmed {
			// the ring starts outside the clip rectangle
			l.ring = ringOff
		}
	}

	cu := startCell(u0+t0*du, du, dv)
	cv := startCell(v0+t0*dv, dv, -du)
	stepU, stepV := step(du), step(dv)
	ext := max(math.Abs(du), math.Abs(dv))

	t := t0
	for {
		tNext := min(crossTime(u0, du, cu), crossTime(v0, dv, cv), t1)
		l.enter(cu, cv)
		if err := l.add(max(tNext-t, 0)*ext, found); err != nil {
			return err
		}
		if tNext >= t1 {
			break
		}
		t = tNext

		// both axes advance when the segment passes through a grid corner
		if crossTime(u0, du, cu) <= tNext {
			cu += stepU
		}
		if crossTime(v0, dv, cv) <= tNext {
			cv += stepV
		}
	}

	if t1 < 1 {
		// the rest of the segment lies outside the clip rectangle
		l.leave()
		return nil
	}
	if last {
		return l.finish(found)
	}
	return nil
}

// point handles a segment of length zero at grid position (u, v).
func (l *LineRasterizer) point(u, v float64, last bool, found CellFunc) error {
	col, row := int(math.Floor(u)), int(math.Floor(v))
	if !l.pending {
		l.pending = true
		l.col, l.row = col, row
		l.acc = 0
		l.reported = true
		if err := l.report(found); err != nil {
			return err
		}
		if last {
			l.Reset()
		}
		return nil
	}

	l.enter(col, row)
	if !last {
		return nil
	}
	if !l.reported {
		l.reported = true
		if err := l.report(found); err != nil {
			return err
		}
	}
	l.Reset()
	return nil
}

// enter moves the chain into cell (col, row). Coverage of a different
// previous cell is dropped.
func (l *LineRasterizer) enter(col, row int) {
	if l.pending && col == l.col && row == l.row {
		return
	}
	l.leave()
	l.pending = true
	l.col, l.row = col, row
}

// leave abandons the pending cell.
func (l *LineRasterizer) leave() {
	if l.pending && l.ring == ringArmed {
		l.ring = ringRecorded
		l.firstCol, l.firstRow = l.col, l.row
		l.firstAcc, l.firstReported = l.acc, l.reported
	}
	l.pending = false
	l.acc = 0
	l.reported = false
}

// add accumulates coverage in the current cell and reports the cell once
// the threshold is reached.
func (l *LineRasterizer) add(coverage float64, found CellFunc) error {
	l.acc += coverage
	if l.reported || l.acc < l.threshold-coverageEpsilon {
		return nil
	}
	l.reported = true
	return l.report(found)
}

// finish ends the chain, reporting the pending cell if it has some
// coverage which did not yet reach the threshold.
func (l *LineRasterizer) finish(found CellFunc) error {
	var err error
	if l.pending && !l.reported && l.acc > coverageEpsilon {
		l.reported = true
		err = l.report(found)
	}
	l.Reset()
	return err
}

func (l *LineRasterizer) report(found CellFunc) error {
	u, v := float64(l.col)+0.5, float64(l.row)+0.5
	m := l.toWorld
	return found(m[0]*u+m[2]*v+m[4], m[1]*u+m[3]*v+m[5])
}

// startCell returns the index of the cell where a segment starting at
// coordinate p begins, if it moves by d along this axis and by other along
// the perpendicular axis. On a grid line, the cell in the direction of
// travel is chosen; without motion along the axis, the cell left of the
// direction of travel.
func startCell(p, d, other float64) int {
	switch {
	case d > 0:
		return int(math.Floor(p))
	case d < 0:
		return int(math.Ceil(p)) - 1
	case other > 0:
		return int(math.Ceil(p)) - 1
	default:
		return int(math.Floor(p))
	}
}

func step(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

// crossTime returns the segment parameter at which a segment starting at
// p, moving by d, leaves cell c along this axis.
func crossTime(p, d float64, c int) float64 {
	switch {
	case d > 0:
		return (float64(c+1) - p) / d
	case d < 0:
		return (float64(c) - p) / d
	default:
		return math.Inf(1)
	}
}

// clipSegment returns the parameter range [t0, t1] of the segment
// (u+t*du, v+t*dv), 0 <= t <= 1, which lies inside the closed rectangle r.
// Segments touching r in a single point are rejected.
func clipSegment(r rect.Rect, u, v, du, dv float64) (t0, t1 float64, ok bool) {
	t0, t1 = 0, 1
	for _, e := range [...]struct{ p, q float64 }{
		{-du, u - r.LLx},
		{du, r.URx - u},
		{-dv, v - r.LLy},
		{dv, r.URy - v},
	} {
		if e.p == 0 {
			if e.q < 0 {
				return 0, 0, false
			}
			continue
		}
		t := e.q / e.p
		if e.p < 0 {
			t0 = max(t0, t)
		} else {
			t1 = min(t1, t)
		}
	}
	return t0, t1, t0 < t1
}

// coverageEpsilon absorbs rounding in accumulated coverage.
const coverageEpsilon = 1e-9
