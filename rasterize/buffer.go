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
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// outlineSegment is one straight piece of a buffered path, in world
// coordinates.
type outlineSegment struct {
	A, B vec.Vec2
	T    vec.Vec2 // unit tangent from A to B
	N    vec.Vec2 // unit normal, T rotated by +90°
}

// Buffer computes the coverage of the zone within Width/2 of the path p,
// using Cap for the ends of open subpaths and Join at their vertices.
// Subpaths of zero length become discs when Cap is round and are dropped
// otherwise. Overlapping parts of the zone are counted once.
func (r *Rasterizer) Buffer(p path.Path, emit RowFunc) {
	r.splitSubpaths(p)
	if len(r.segsOffsets) == 0 && len(r.isolated) == 0 {
		return
	}

	r.outline = r.outline[:0]
	r.outlineOffsets = r.outlineOffsets[:0]

	if r.Cap == graphics.LineCapRound {
		for _, pt := range r.isolated {
			start := len(r.outline)
			r.addArc(pt, r.Width/2, vec.Vec2{X: 1, Y: 0}, 2*math.Pi, true)
			r.endPolygon(start)
		}
	}

	for i := range r.segsOffsets {
		r.outlineSubpath(r.subpathSegments(i), r.subpathClosed[i])
	}

	r.fillOutlines(emit)
}

// endPolygon records r.outline[start:] as one outline polygon, or drops it
// if it has fewer than three vertices.
func (r *Rasterizer) endPolygon(start int) {
	if len(r.outline)-start >= 3 {
		r.outlineOffsets = append(r.outlineOffsets, start)
	} else {
		r.outline = r.outline[:start]
	}
}

func (r *Rasterizer) subpathSegments(i int) []outlineSegment {
	end := len(r.segs)
	if i+1 < len(r.segsOffsets) {
		end = r.segsOffsets[i+1]
	}
	return r.segs[r.segsOffsets[i]:end]
}

// splitSubpaths breaks p into subpaths of non-degenerate segments. The
// results are left in r.segs, r.segsOffsets, r.subpathClosed and
// r.isolated.
func (r *Rasterizer) splitSubpaths(p path.Path) {
	r.segs = r.segs[:0]
	r.segsOffsets = r.segsOffsets[:0]
	r.subpathClosed = r.subpathClosed[:0]
	r.isolated = r.isolated[:0]

	var current, start vec.Vec2
	first := 0     // index in r.segs where the current subpath starts
	open := false  // inside a subpath
	drawn := false // the current subpath had a drawing command

	finish := func(closed bool) {
		switch {
		case len(r.segs) > first:
			r.segsOffsets = append(r.segsOffsets, first)
			r.subpathClosed = append(r.subpathClosed, closed)
		case drawn || closed:
			r.isolated = append(r.isolated, start)
		}
	}

	for cmd, pts := range p {
		switch cmd {
		case path.CmdMoveTo:
			if open && drawn {
				finish(false)
			}
			current = pts[0]
			start = current
			first = len(r.segs)
			open = true
			drawn = false

		case path.CmdLineTo, path.CmdQuadTo, path.CmdCubeTo:
			if !open {
				continue
			}
			end := pts[len(pts)-1]
			drawn = true
			r.addSegment(current, end)
			current = end

		case path.CmdClose:
			if !open {
				continue
			}
			if current != start {
				r.addSegment(current, start)
			}
			finish(true)
			current = start
			first = len(r.segs)
			open = false
			drawn = false
		}
	}
	if open && drawn {
		finish(false)
	}
}

// addSegment appends the segment a-b unless it is shorter than
// zeroLengthThreshold.
func (r *Rasterizer) addSegment(a, b vec.Vec2) {
	d := b.Sub(a)
	length := d.Length()
	if length < zeroLengthThreshold {
		return
	}
	t := d.Mul(1 / length)
	r.segs = append(r.segs, outlineSegment{A: a, B: b, T: t, N: vec.Vec2{X: -t.Y, Y: t.X}})
}

// outlineSubpath appends the buffer outline of one subpath to r.outline.
// The +N side is traced forwards and the -N side backwards. An open
// subpath gives one polygon, joining both sides with caps; a closed
// subpath gives one polygon per side, with opposite orientations. Joins are
// only needed on the outer side of each corner; on the inner side the two
// offset lines are cut at their intersection.
func (r *Rasterizer) outlineSubpath(segs []outlineSegment, closed bool) {
	if len(segs) == 0 {
		return
	}
	d := r.Width / 2
	first := &segs[0]
	last := &segs[len(segs)-1]

	if closed {
		sinClose := cross(last.T, first.T)

		// +N side, forwards
		start := len(r.outline)
		for i := range segs {
			seg := &segs[i]
			next := first
			sin := sinClose
			if i < len(segs)-1 {
				next = &segs[i+1]
				sin = cross(seg.T, next.T)
			}
			switch {
			case math.Abs(sin) < collinearityThreshold:
				r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)), next.A.Add(next.N.Mul(d)))
			case sin > 0:
				r.addInnerCorner(seg.B, seg.T, next.T, seg.N, next.N, d, true)
			default:
				r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
				r.addJoin(seg.B, seg.T, next.T, d, true)
				r.outline = append(r.outline, next.A.Add(next.N.Mul(d)))
			}
		}

		r.endPolygon(start)

		// -N side, backwards, starting with the closing corner
		start = len(r.outline)
		switch {
		case math.Abs(sinClose) < collinearityThreshold:
			r.outline = append(r.outline, first.A.Sub(first.N.Mul(d)), last.B.Sub(last.N.Mul(d)))
		case sinClose > 0:
			r.outline = append(r.outline, first.A.Sub(first.N.Mul(d)))
			r.addJoin(first.A, last.T, first.T, d, false)
			r.outline = append(r.outline, last.B.Sub(last.N.Mul(d)))
		default:
			r.addInnerCorner(first.A, last.T, first.T, last.N, first.N, d, false)
		}
		for i := len(segs) - 1; i > 0; i-- {
			seg, prev := &segs[i], &segs[i-1]
			sin := cross(prev.T, seg.T)
			switch {
			case math.Abs(sin) < collinearityThreshold:
				r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)), prev.B.Sub(prev.N.Mul(d)))
			case sin > 0:
				r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
				r.addJoin(seg.A, prev.T, seg.T, d, false)
				r.outline = append(r.outline, prev.B.Sub(prev.N.Mul(d)))
			default:
				r.addInnerCorner(seg.A, prev.T, seg.T, prev.N, seg.N, d, false)
			}
		}
		r.endPolygon(start)
		return
	}

	start := len(r.outline)
	r.addCap(first.A, first.T.Mul(-1), d)

	// +N side, forwards
	skip := false
	for i := range segs {
		seg := &segs[i]
		if !skip {
			r.outline = append(r.outline, seg.A.Add(seg.N.Mul(d)))
		}
		skip = false
		if i == len(segs)-1 {
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
			break
		}
		next := &segs[i+1]
		sin := cross(seg.T, next.T)
		switch {
		case math.Abs(sin) < collinearityThreshold:
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
		case sin > 0:
			skip = r.addInnerCorner(seg.B, seg.T, next.T, seg.N, next.N, d, true)
		default:
			r.outline = append(r.outline, seg.B.Add(seg.N.Mul(d)))
			r.addJoin(seg.B, seg.T, next.T, d, true)
		}
	}

	r.addCap(last.B, last.T, d)

	// -N side, backwards
	skip = false
	for i := len(segs) - 1; i >= 0; i-- {
		seg := &segs[i]
		if !skip {
			r.outline = append(r.outline, seg.B.Sub(seg.N.Mul(d)))
		}
		skip = false
		if i == 0 {
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
			break
		}
		prev := &segs[i-1]
		sin := cross(prev.T, seg.T)
		switch {
		case math.Abs(sin) < collinearityThreshold:
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
		case sin > 0:
			r.outline = append(r.outline, seg.A.Sub(seg.N.Mul(d)))
			r.addJoin(seg.A, prev.T, seg.T, d, false)
		default:
			skip = r.addInnerCorner(seg.A, prev.T, seg.T, prev.N, seg.N, d, false)
		}
	}
	r.endPolygon(start)
}

// cross returns the z component of a × b.
func cross(a, b vec.Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// addCap appends the cap at P. T points away from the line, d is half the
// buffer width.
func (r *Rasterizer) addCap(P, T vec.Vec2, d float64) {
	N := vec.Vec2{X: -T.Y, Y: T.X}
	switch r.Cap {
	case graphics.LineCapSquare:
		ext := P.Add(T.Mul(d))
		r.outline = append(r.outline, ext.Add(N.Mul(d)), ext.Sub(N.Mul(d)))
	case graphics.LineCapRound:
		r.addArc(P, d, N, -math.Pi, true)
	}
}

// innerCorner returns the point where the offset lines of two segments
// meeting at P intersect on the inner side of the corner. ok is false for
// nearly collinear or reversing segments.
func innerCorner(P, T1, T2 vec.Vec2, d float64, positive bool) (vec.Vec2, bool) {
	cosTheta := T1.Dot(T2)
	if cosTheta > 1-1e-9 {
		return vec.Vec2{}, false
	}
	cosHalf := math.Sqrt((1 + cosTheta) / 2)
	if cosHalf < 1e-9 {
		return vec.Vec2{}, false
	}

	dir := vec.Vec2{X: -T1.Y, Y: T1.X}.Add(vec.Vec2{X: -T2.Y, Y: T2.X})
	if !positive {
		dir = dir.Mul(-1)
	}
	l := dir.Length()
	if l < 1e-9 {
		return vec.Vec2{}, false
	}
	return P.Add(dir.Mul(d / (l * cosHalf))), true
}

// addInnerCorner appends the inner side of a corner: the intersection of
// the offset lines if it exists, both offset points otherwise. It reports
// whether the intersection was used, in which case the caller must not add
// the next offset point.
func (r *Rasterizer) addInnerCorner(P, T1, T2, N1, N2 vec.Vec2, d float64, positive bool) bool {
	if pt, ok := innerCorner(P, T1, T2, d, positive); ok {
		r.outline = append(r.outline, pt)
		return true
	}
	if positive {
		r.outline = append(r.outline, P.Add(N1.Mul(d)), P.Add(N2.Mul(d)))
	} else {
		r.outline = append(r.outline, P.Sub(N1.Mul(d)), P.Sub(N2.Mul(d)))
	}
	return false
}

// addJoin appends the outer side of the corner at P, where the direction
// changes from T1 to T2.
func (r *Rasterizer) addJoin(P, T1, T2 vec.Vec2, d float64, positive bool) {
	cosTheta := T1.Dot(T2)
	sinTheta := cross(T1, T2)
	if math.Abs(sinTheta) < collinearityThreshold {
		return
	}
	if cosTheta < cuspCosineThreshold {
		r.addCap(P, T1, d)
		r.addCap(P, T2.Mul(-1), d)
		return
	}

	switch r.Join {
	case graphics.LineJoinMiter:
		cosHalf := math.Sqrt((1 + cosTheta) / 2)
		const eps = 1e-10
		if cosHalf > 0 && 1/cosHalf <= r.MiterLimit+eps {
			bisector := vec.Vec2{X: -T1.Y, Y: T1.X}.Add(vec.Vec2{X: -T2.Y, Y: T2.X})
			if !positive {
				bisector = bisector.Mul(-1)
			}
			if l := bisector.Length(); l > zeroLengthThreshold {
				r.outline = append(r.outline, P.Add(bisector.Mul(d/(l*cosHalf))))
			}
		}
		// beyond the miter limit the corner is bevelled

	case graphics.LineJoinRound:
		angle := math.Acos(max(-1, min(1, cosTheta)))
		if positive {
			N1 := vec.Vec2{X: -T1.Y, Y: T1.X}
			if sinTheta > 0 {
				r.addArc(P, d, N1, angle, false)
			} else {
				r.addArc(P, d, N1, -angle, false)
			}
		} else {
			negN2 := vec.Vec2{X: T2.Y, Y: -T2.X}
			if sinTheta > 0 {
				r.addArc(P, d, negN2, -angle, false)
			} else {
				r.addArc(P, d, negN2, angle, false)
			}
		}
	}
}

// addArc appends vertices along a circular arc around center. startDir is
// the unit vector to the first point, sweep is the signed angle in radians
// (positive is counter-clockwise). The number of vertices is chosen so
// that the chords stay within Flatness of the arc in grid space.
func (r *Rasterizer) addArc(center vec.Vec2, radius float64, startDir vec.Vec2, sweep float64, includeStart bool) {
	gridRadius := max(
		r.toGridLinear(vec.Vec2{X: radius}).Length(),
		r.toGridLinear(vec.Vec2{Y: radius}).Length(),
	)

	n := 1
	if gridRadius >= r.Flatness {
		step := 2 * math.Acos(1-r.Flatness/gridRadius)
		if step <= 0 || math.IsNaN(step) {
			step = math.Pi / 4
		}
		n = max(int(math.Ceil(math.Abs(sweep)/step)), 1)
	}

	i0 := 0
	if !includeStart {
		i0 = 1
	}
	dt := sweep / float64(n)
	for i := i0; i <= n; i++ {
		sin, cos := math.Sincos(float64(i) * dt)
		dir := vec.Vec2{
			X: startDir.X*cos - startDir.Y*sin,
			Y: startDir.X*sin + startDir.Y*cos,
		}
		r.outline = append(r.outline, center.Add(dir.Mul(radius)))
	}
}

// fillOutlines fills all outline polygons together with the nonzero rule.
func (r *Rasterizer) fillOutlines(emit RowFunc) {
	if len(r.outlineOffsets) == 0 {
		return
	}

	r.startEdges()
	for i, start := range r.outlineOffsets {
		end := len(r.outline)
		if i+1 < len(r.outlineOffsets) {
			end = r.outlineOffsets[i+1]
		}
		poly := r.outline[start:end]
		if len(poly) < 2 {
			continue
		}
		for j := 1; j < len(poly); j++ {
			r.addEdge(poly[j-1], poly[j])
		}
		r.addEdge(poly[len(poly)-1], poly[0])
	}

	xMin, xMax, yMin, yMax, ok := r.edgeBounds()
	if !ok {
		return
	}
	r.fillEdges(xMin, xMax, yMin, yMax, NonZero, emit)
}
