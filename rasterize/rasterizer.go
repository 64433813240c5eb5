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

// Package rasterize converts world-space geometry into grid cells.
//
// Three tools are provided. LineRasterizer walks single segments cell by
// cell under a coverage threshold. Rasterizer computes exact area coverage
// of filled and buffered outlines, and also enumerates the cells whose
// centers lie inside a polygon.
//
// All of them work in continuous grid coordinates, where cell (col, row)
// covers [col, col+1) × [row, row+1).
package rasterize

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// FillRule decides which points are inside a path.
type FillRule int

const (
	// EvenOdd counts a point as inside if a ray from it crosses the
	// outline an odd number of times.
	EvenOdd FillRule = iota

	// NonZero counts a point as inside if the winding number of the
	// outline around it is non-zero.
	NonZero
)

func (r FillRule) String() string {
	if r == NonZero {
		return "nonzero"
	}
	return "evenodd"
}

// RowFunc receives the coverage of one grid row: coverage[i] is the
// fraction of cell (xMin+i, y) which is covered, between 0 and 1. The
// slice is only valid during the call.
type RowFunc func(y, xMin int, coverage []float32)

// edge is a non-horizontal outline segment in grid coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // (x1-x0)/(y1-y0)
}

// Rasterizer computes per-cell coverage of closed outlines. Create one
// instance per traversal run and reuse it for every feature; its buffers
// grow as needed and are never released.
//
// A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM maps world coordinates to grid coordinates. Must be non-singular.
	CTM matrix.Matrix

	// Clip restricts output to this integer-aligned grid rectangle.
	Clip rect.Rect

	// Flatness is the maximum distance, in cells, between a round cap or
	// join and the polygon approximating it.
	Flatness float64

	// Width is the full width of buffer outlines in world units.
	Width float64

	// Cap is the style used at the ends of buffered lines.
	Cap graphics.LineCapStyle

	// Join is the style used at the vertices of buffered lines.
	Join graphics.LineJoinStyle

	// MiterLimit bounds the length of miter joins. At least 1.
	MiterLimit float64

	// smallPathThreshold is the largest bounding box area, in cells, for
	// which the dense 2D buffers are used instead of the active edge list.
	smallPathThreshold int

	cover       []float32 // per-cell cover change; overwritten by the result
	area        []float32 // per-cell area term
	edges       []edge
	activeIdx   []int
	rowHasEdges []bool
	crossings   []crossing // used by FillCenters

	outline        []vec.Vec2 // buffer outline vertices, all polygons contiguous
	outlineOffsets []int      // start of each polygon in outline

	segs          []outlineSegment
	segsOffsets   []int
	subpathClosed []bool
	isolated      []vec.Vec2 // subpaths without any length

	bboxEmpty          bool
	bboxXMin, bboxXMax float64
	bboxYMin, bboxYMax float64
}

// NewRasterizer returns a Rasterizer for the given clip rectangle, with an
// identity CTM and round buffer ends.
func NewRasterizer(clip rect.Rect) *Rasterizer {
	r := &Rasterizer{}
	r.Reset(clip)
	return r
}

// Reset restores the default parameters, keeping the buffers.
func (r *Rasterizer) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.Width = 1
	r.Cap = graphics.LineCapRound
	r.Join = graphics.LineJoinRound
	r.MiterLimit = defaultMiterLimit
	r.smallPathThreshold = smallPathThreshold
}

// toGridLinear applies the linear part of the CTM, ignoring translation.
func (r *Rasterizer) toGridLinear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// FillNonZero computes the coverage of the area enclosed by p under the
// nonzero winding rule.
func (r *Rasterizer) FillNonZero(p path.Path, emit RowFunc) {
	r.Fill(p, NonZero, emit)
}

// FillEvenOdd computes the coverage of the area enclosed by p under the
// even-odd rule.
func (r *Rasterizer) FillEvenOdd(p path.Path, emit RowFunc) {
	r.Fill(p, EvenOdd, emit)
}

// Fill computes the coverage of the area enclosed by p. Rows without any
// coverage are skipped, and leading and trailing zeros are trimmed from
// the rows passed to emit. Open subpaths are closed implicitly.
func (r *Rasterizer) Fill(p path.Path, rule FillRule, emit RowFunc) {
	xMin, xMax, yMin, yMax, ok := r.collectPathEdges(p)
	if !ok {
		return
	}
	r.fillEdges(xMin, xMax, yMin, yMax, rule, emit)
}

// fillEdges integrates the current edge list.
func (r *Rasterizer) fillEdges(xMin, xMax, yMin, yMax int, rule FillRule, emit RowFunc) {
	if (xMax-xMin)*(yMax-yMin) < r.smallPathThreshold {
		r.fillSmall(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillLarge(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// collectPathEdges converts p into the edge list and returns its bounding
// box in grid cells, clamped to the clip rectangle. Geometries are made of
// straight segments only; curve commands are replaced by their chords.
func (r *Rasterizer) collectPathEdges(p path.Path) (xMin, xMax, yMin, yMax int, ok bool) {
	r.startEdges()

	var current, start vec.Vec2
	open := false
	for cmd, pts := range p {
		switch cmd {
		case path.CmdMoveTo:
			if open && current != start {
				r.addEdge(current, start)
			}
			current = pts[0]
			start = current
			open = true
		case path.CmdLineTo, path.CmdQuadTo, path.CmdCubeTo:
			end := pts[len(pts)-1]
			r.addEdge(current, end)
			current = end
		case path.CmdClose:
			if current != start {
				r.addEdge(current, start)
			}
			current = start
			open = false
		}
	}
	if open && current != start {
		r.addEdge(current, start)
	}

	return r.edgeBounds()
}

func (r *Rasterizer) startEdges() {
	r.edges = r.edges[:0]
	r.bboxEmpty = true
}

// edgeBounds returns the cell range touched by the edge list, clamped to
// the clip rectangle.
func (r *Rasterizer) edgeBounds() (xMin, xMax, yMin, yMax int, ok bool) {
	if len(r.edges) == 0 {
		return 0, 0, 0, 0, false
	}

	xMin = max(int(math.Floor(r.bboxXMin)), int(r.Clip.LLx))
	xMax = min(int(math.Floor(r.bboxXMax))+1, int(r.Clip.URx))
	yMin = max(int(math.Floor(r.bboxYMin)), int(r.Clip.LLy))
	yMax = min(int(math.Floor(r.bboxYMax))+1, int(r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

// addEdge maps a world-space segment to grid space and appends it.
func (r *Rasterizer) addEdge(p0, p1 vec.Vec2) {
	gx0 := r.CTM[0]*p0.X + r.CTM[2]*p0.Y + r.CTM[4]
	gy0 := r.CTM[1]*p0.X + r.CTM[3]*p0.Y + r.CTM[5]
	gx1 := r.CTM[0]*p1.X + r.CTM[2]*p1.Y + r.CTM[4]
	gy1 := r.CTM[1]*p1.X + r.CTM[3]*p1.Y + r.CTM[5]

	dy := gy1 - gy0
	if dy > -horizontalEdgeThreshold && dy < horizontalEdgeThreshold {
		return
	}

	r.edges = append(r.edges, edge{
		x0: gx0, y0: gy0,
		x1: gx1, y1: gy1,
		dxdy: (gx1 - gx0) / dy,
	})

	if r.bboxEmpty {
		r.bboxXMin, r.bboxXMax = min(gx0, gx1), max(gx0, gx1)
		r.bboxYMin, r.bboxYMax = min(gy0, gy1), max(gy0, gy1)
		r.bboxEmpty = false
		return
	}
	r.bboxXMin = min(r.bboxXMin, gx0, gx1)
	r.bboxXMax = max(r.bboxXMax, gx0, gx1)
	r.bboxYMin = min(r.bboxYMin, gy0, gy1)
	r.bboxYMax = max(r.bboxYMax, gy0, gy1)
}

// Coverage is computed from the signed area swept by the edges. For every
// cell of a row two numbers are collected:
//
//	cover: signed height of the edge pieces inside the cell's column
//	area:  cover weighted by the fraction of the cell right of the edge
//
// Scanning the row left to right, the coverage of cell i is the sum of
// cover over all cells left of i plus area[i]. Its absolute value, clamped
// to 1, is the nonzero coverage; folding it modulo 2 gives even-odd.

// accumulateEdge adds the part of e inside row y to cover and area. Both
// slices are indexed by x - bboxXMin. Edges left of the box still
// contribute cover to the first cell.
func (r *Rasterizer) accumulateEdge(e *edge, y int, cover, area []float32, bboxXMin, bboxXMax int) {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	if yBot <= yTop {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xTop := e.x0 + e.dxdy*(yTop-e.y0)
	xBot := e.x0 + e.dxdy*(yBot-e.y0)
	xLeft, xRight := min(xTop, xBot), max(xTop, xBot)
	pixLeft := int(math.Floor(xLeft))
	pixRight := int(math.Floor(xRight))

	if pixRight < bboxXMin {
		c := sign * float32(yBot-yTop)
		cover[0] += c
		area[0] += c
		return
	}
	if pixLeft >= bboxXMax {
		return
	}
	if pixLeft == pixRight {
		r.accumulateInColumn(e, yTop, yBot, sign, pixLeft, cover, area, bboxXMin, bboxXMax)
		return
	}

	// The edge crosses several columns: split it at the column boundaries.
	dydx := 1 / e.dxdy
	for pix := pixLeft; pix <= pixRight; pix++ {
		yA := e.y0 + dydx*(float64(pix)-e.x0)
		yB := e.y0 + dydx*(float64(pix+1)-e.x0)
		segTop := max(min(yA, yB), yTop)
		segBot := min(max(yA, yB), yBot)
		if segBot <= segTop {
			continue
		}

		c := sign * float32(segBot-segTop)
		xMid := e.x0 + e.dxdy*((segTop+segBot)/2-e.y0)
		a := c * float32(1-(xMid-float64(pix)))

		switch {
		case pix < bboxXMin:
			cover[0] += c
			area[0] += c
		case pix < bboxXMax:
			cover[pix-bboxXMin] += c
			area[pix-bboxXMin] += a
		}
	}
}

// accumulateInColumn handles an edge piece which stays inside one column.
func (r *Rasterizer) accumulateInColumn(e *edge, yTop, yBot float64, sign float32, pix int, cover, area []float32, bboxXMin, bboxXMax int) {
	c := sign * float32(yBot-yTop)
	if pix < bboxXMin {
		cover[0] += c
		area[0] += c
		return
	}
	if pix >= bboxXMax {
		return
	}

	xMid := e.x0 + e.dxdy*((yTop+yBot)/2-e.y0)
	idx := pix - bboxXMin
	cover[idx] += c
	area[idx] += c * float32(1-(xMid-float64(pix)))
}

// integrateNonZero turns cover/area into nonzero coverage, in place.
func integrateNonZero(cover, area []float32) {
	var acc float32
	for i := range cover {
		raw := acc + area[i]
		acc += cover[i]
		cover[i] = min(abs32(raw), 1)
	}
}

// integrateEvenOdd turns cover/area into even-odd coverage, in place.
func integrateEvenOdd(cover, area []float32) {
	var acc float32
	for i := range cover {
		raw := abs32(acc + area[i])
		acc += cover[i]
		mod := raw - 2*float32(int(raw/2))
		cover[i] = 1 - abs32(1-mod)
	}
}

func integrate(rule FillRule, cover, area []float32) {
	if rule == NonZero {
		integrateNonZero(cover, area)
	} else {
		integrateEvenOdd(cover, area)
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// trimZeros strips leading and trailing zeros. It returns nil if every
// value is zero.
func trimZeros(coverage []float32) (trimmed []float32, offset int) {
	lo, hi := 0, len(coverage)
	for lo < hi && coverage[lo] == 0 {
		lo++
	}
	if lo == hi {
		return nil, 0
	}
	for coverage[hi-1] == 0 {
		hi--
	}
	return coverage[lo:hi], lo
}

// fillSmall integrates the edge list using one cover/area buffer for the
// whole bounding box.
func (r *Rasterizer) fillSmall(xMin, xMax, yMin, yMax int, rule FillRule, emit RowFunc) {
	width := xMax - xMin
	height := yMax - yMin
	size := width * height

	r.cover = slices.Grow(r.cover[:0], size)[:size]
	r.area = slices.Grow(r.area[:0], size)[:size]
	clear(r.cover)
	clear(r.area)
	r.rowHasEdges = slices.Grow(r.rowHasEdges[:0], height)[:height]
	clear(r.rowHasEdges)

	for i := range r.edges {
		e := &r.edges[i]
		lo := max(int(math.Floor(min(e.y0, e.y1))), yMin)
		hi := min(int(math.Floor(max(e.y0, e.y1)))+1, yMax)
		for y := lo; y < hi; y++ {
			row := y - yMin
			off := row * width
			r.accumulateEdge(e, y, r.cover[off:off+width], r.area[off:off+width], xMin, xMax)
			r.rowHasEdges[row] = true
		}
	}

	for row := range height {
		if !r.rowHasEdges[row] {
			continue
		}
		off := row * width
		coverage := r.cover[off : off+width]
		integrate(rule, coverage, r.area[off:off+width])
		if trimmed, lo := trimZeros(coverage); trimmed != nil {
			emit(yMin+row, xMin+lo, trimmed)
		}
	}
}

// fillLarge integrates the edge list one row at a time, keeping a list of
// the edges which intersect the current row.
func (r *Rasterizer) fillLarge(xMin, xMax, yMin, yMax int, rule FillRule, emit RowFunc) {
	width := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})

	r.activeIdx = r.activeIdx[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		yTop, yBot := float64(y), float64(y+1)

		for next < len(r.edges) && min(r.edges[next].y0, r.edges[next].y1) < yBot {
			r.activeIdx = append(r.activeIdx, next)
			next++
		}
		if len(r.activeIdx) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.activeIdx); {
			e := &r.edges[r.activeIdx[i]]
			if max(e.y0, e.y1) <= yTop {
				last := len(r.activeIdx) - 1
				r.activeIdx[i] = r.activeIdx[last]
				r.activeIdx = r.activeIdx[:last]
				continue
			}
			r.accumulateEdge(e, y, r.cover, r.area, xMin, xMax)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrate(rule, r.cover, r.area)
		if trimmed, lo := trimZeros(r.cover); trimmed != nil {
			emit(y, xMin+lo, trimmed)
		}
	}
}

const (
	// defaultFlatness is the default tolerance for round caps and joins,
	// in cells.
	defaultFlatness = 0.05

	// defaultMiterLimit matches the PDF default.
	defaultMiterLimit = 10.0

	// horizontalEdgeThreshold is the smallest vertical extent for which an
	// edge contributes to coverage.
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the largest bounding box area, in cells, for
	// the dense 2D buffers.
	smallPathThreshold = 65536

	// zeroLengthThreshold is the length below which outline segments are
	// dropped.
	zeroLengthThreshold = 1e-10

	// collinearityThreshold is the sine below which consecutive segments
	// are treated as collinear.
	collinearityThreshold = 1e-6

	// cuspCosineThreshold detects segments which double back on
	// themselves; cos(179.43°) ≈ -0.9999.
	cuspCosineThreshold = -0.9999
)
