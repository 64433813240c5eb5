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

package vector

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Type identifies the kind of a Geometry.
type Type int

// Geometry types.
const (
	TypeUnknown Type = iota
	TypePoint
	TypeLineString
	TypePolygon
	TypeMultiPoint
	TypeMultiLineString
	TypeMultiPolygon
	TypeCollection
)

func (t Type) String() string {
	switch t {
	case TypePoint:
		return "Point"
	case TypeLineString:
		return "LineString"
	case TypePolygon:
		return "Polygon"
	case TypeMultiPoint:
		return "MultiPoint"
	case TypeMultiLineString:
		return "MultiLineString"
	case TypeMultiPolygon:
		return "MultiPolygon"
	case TypeCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// Ring is a closed boundary component of a polygon. The closing vertex may
// be given explicitly (first == last) or be implied.
type Ring []vec.Vec2

// Polygon is an outer ring followed by zero or more holes.
type Polygon []Ring

// Geometry is a feature geometry in world coordinates. Which of the
// coordinate fields is used depends on Type:
//
//   - Point, MultiPoint: Points
//   - LineString, MultiLineString: Lines
//   - Polygon, MultiPolygon: Polygons
//   - GeometryCollection: Parts
type Geometry struct {
	Type     Type
	Points   []vec.Vec2
	Lines    [][]vec.Vec2
	Polygons []Polygon
	Parts    []Geometry
}

// NewPoint returns a point geometry.
func NewPoint(x, y float64) Geometry {
	return Geometry{Type: TypePoint, Points: []vec.Vec2{{X: x, Y: y}}}
}

// NewMultiPoint returns a multi-point geometry.
func NewMultiPoint(pts ...vec.Vec2) Geometry {
	return Geometry{Type: TypeMultiPoint, Points: pts}
}

// NewLineString returns a line string through the given vertices.
func NewLineString(pts ...vec.Vec2) Geometry {
	return Geometry{Type: TypeLineString, Lines: [][]vec.Vec2{pts}}
}

// NewMultiLineString returns a multi-line-string geometry.
func NewMultiLineString(lines ...[]vec.Vec2) Geometry {
	return Geometry{Type: TypeMultiLineString, Lines: lines}
}

// NewPolygon returns a polygon with the given outer ring and holes.
func NewPolygon(rings ...Ring) Geometry {
	return Geometry{Type: TypePolygon, Polygons: []Polygon{rings}}
}

// NewMultiPolygon returns a multi-polygon geometry.
func NewMultiPolygon(polys ...Polygon) Geometry {
	return Geometry{Type: TypeMultiPolygon, Polygons: polys}
}

// NewCollection returns a geometry collection.
func NewCollection(parts ...Geometry) Geometry {
	return Geometry{Type: TypeCollection, Parts: parts}
}

// Rect returns an axis-aligned rectangular polygon.
func Rect(xMin, yMin, xMax, yMax float64) Geometry {
	return NewPolygon(Ring{
		{X: xMin, Y: yMin},
		{X: xMax, Y: yMin},
		{X: xMax, Y: yMax},
		{X: xMin, Y: yMax},
	})
}

// IsEmpty reports whether the geometry has no vertices at all.
func (g Geometry) IsEmpty() bool {
	empty := true
	g.eachVertex(func(vec.Vec2) bool {
		empty = false
		return false
	})
	return empty
}

// Envelope returns the bounding box of all vertices. The second result is
// false for an empty geometry.
func (g Geometry) Envelope() (rect.Rect, bool) {
	var env rect.Rect
	first := true
	g.eachVertex(func(p vec.Vec2) bool {
		if first {
			env = rect.Rect{LLx: p.X, LLy: p.Y, URx: p.X, URy: p.Y}
			first = false
			return true
		}
		env.LLx = min(env.LLx, p.X)
		env.LLy = min(env.LLy, p.Y)
		env.URx = max(env.URx, p.X)
		env.URy = max(env.URy, p.Y)
		return true
	})
	return env, !first
}

// eachVertex calls yield for every vertex until yield returns false.
func (g Geometry) eachVertex(yield func(vec.Vec2) bool) bool {
	for _, p := range g.Points {
		if !yield(p) {
			return false
		}
	}
	for _, line := range g.Lines {
		for _, p := range line {
			if !yield(p) {
				return false
			}
		}
	}
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			for _, p := range ring {
				if !yield(p) {
					return false
				}
			}
		}
	}
	for _, part := range g.Parts {
		if !part.eachVertex(yield) {
			return false
		}
	}
	return true
}

// Validate checks that the geometry can be traversed. Errors unwrap to
// ErrInvalidGeometry.
func (g Geometry) Validate() error {
	switch g.Type {
	case TypePoint, TypeMultiPoint:
		if len(g.Points) == 0 {
			return &GeometryError{Type: g.Type, Reason: "no points"}
		}
		if g.Type == TypePoint && len(g.Points) != 1 {
			return &GeometryError{Type: g.Type, Reason: "point with more than one coordinate"}
		}
	case TypeLineString, TypeMultiLineString:
		if len(g.Lines) == 0 {
			return &GeometryError{Type: g.Type, Reason: "no lines"}
		}
		for _, line := range g.Lines {
			if len(line) < 2 {
				return &GeometryError{Type: g.Type, Reason: "line with fewer than two vertices"}
			}
		}
	case TypePolygon, TypeMultiPolygon:
		if len(g.Polygons) == 0 {
			return &GeometryError{Type: g.Type, Reason: "no polygons"}
		}
		for _, poly := range g.Polygons {
			if len(poly) == 0 {
				return &GeometryError{Type: g.Type, Reason: "polygon without rings"}
			}
			for _, ring := range poly {
				if len(ring.Open()) < 3 {
					return &GeometryError{Type: g.Type, Reason: "ring with fewer than three distinct vertices"}
				}
			}
		}
	case TypeCollection:
		if len(g.Parts) == 0 {
			return &GeometryError{Type: g.Type, Reason: "empty collection"}
		}
		for _, part := range g.Parts {
			if err := part.Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return &GeometryError{Type: g.Type, Reason: "unsupported geometry type"}
	}

	finite := g.eachVertex(func(p vec.Vec2) bool {
		return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
	})
	if !finite {
		return &GeometryError{Type: g.Type, Reason: "non-finite coordinate"}
	}
	return nil
}

// Open returns the ring without a repeated closing vertex. Consecutive
// duplicate vertices are dropped.
func (r Ring) Open() Ring {
	out := make(Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}

// SignedArea returns the shoelace area of the ring. It is positive for
// counter-clockwise rings in a y-up coordinate system.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := range n {
		a, b := r[i], r[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Path returns the geometry outline as a path. Polygon rings become closed
// subpaths, lines become open subpaths and points become zero-length closed
// subpaths.
func (g Geometry) Path() path.Path {
	return func(yield func(path.Command, []vec.Vec2) bool) {
		g.walkPath(yield)
	}
}

func (g Geometry) walkPath(yield func(path.Command, []vec.Vec2) bool) bool {
	var buf [1]vec.Vec2
	emit := func(cmd path.Command, p vec.Vec2) bool {
		buf[0] = p
		return yield(cmd, buf[:])
	}

	for _, p := range g.Points {
		if !emit(path.CmdMoveTo, p) || !yield(path.CmdClose, nil) {
			return false
		}
	}
	for _, line := range g.Lines {
		for i, p := range line {
			cmd := path.CmdLineTo
			if i == 0 {
				cmd = path.CmdMoveTo
			}
			if !emit(cmd, p) {
				return false
			}
		}
	}
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			open := ring.Open()
			for i, p := range open {
				cmd := path.CmdLineTo
				if i == 0 {
					cmd = path.CmdMoveTo
				}
				if !emit(cmd, p) {
					return false
				}
			}
			if len(open) > 0 && !yield(path.CmdClose, nil) {
				return false
			}
		}
	}
	for _, part := range g.Parts {
		if !part.walkPath(yield) {
			return false
		}
	}
	return true
}
