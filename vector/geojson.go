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
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"seehuhn.de/go/geom/vec"
)

// ReadGeoJSON reads a GeoJSON FeatureCollection into a Layer.
//
// Numeric feature ids are used as FIDs; features without an id get their
// position in the collection. The layer's field list is the sorted union
// of all property names, and every feature carries every field (missing
// properties are nil).
func ReadGeoJSON(r io.Reader, name string) (*Layer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	names := make(map[string]bool)
	for _, f := range fc.Features {
		for k := range f.Properties {
			names[k] = true
		}
	}
	fields := slices.Sorted(maps.Keys(names))

	layer := NewLayer(name, fields)
	for i, f := range fc.Features {
		fid, err := featureID(f.ID, i)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", name, i, err)
		}
		if _, dup := layer.byID[fid]; dup {
			return nil, fmt.Errorf("%s: duplicate feature id %d", name, fid)
		}

		attrs := make(Attributes, len(fields))
		for j, field := range fields {
			attrs[j] = Field{Name: field, Value: propertyValue(f.Properties[field])}
		}

		layer.Add(&Feature{
			FID:        fid,
			Geometry:   fromOrb(f.Geometry),
			Attributes: attrs,
		})
	}
	return layer, nil
}

// LoadGeoJSON reads a GeoJSON file. The layer is named after the file.
func LoadGeoJSON(fname string) (*Layer, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	name := strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
	return ReadGeoJSON(fd, name)
}

func featureID(id any, pos int) (int64, error) {
	switch id := id.(type) {
	case nil:
		return int64(pos), nil
	case float64:
		if id != math.Trunc(id) || math.Abs(id) > 1<<53 {
			return 0, fmt.Errorf("non-integer id %v", id)
		}
		return int64(id), nil
	case string:
		fid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric id %q", id)
		}
		return fid, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", id)
	}
}

// propertyValue maps decoded JSON values onto the attribute value types.
// Integral numbers become int64.
func propertyValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= 1<<53 {
			return int64(v)
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// fromOrb converts an orb geometry. Unknown types give a geometry of
// TypeUnknown, which fails validation.
func fromOrb(g orb.Geometry) Geometry {
	switch g := g.(type) {
	case orb.Point:
		return NewPoint(g[0], g[1])
	case orb.MultiPoint:
		return NewMultiPoint(orbPoints(g)...)
	case orb.LineString:
		return NewLineString(orbPoints(g)...)
	case orb.MultiLineString:
		lines := make([][]vec.Vec2, len(g))
		for i, ls := range g {
			lines[i] = orbPoints(ls)
		}
		return NewMultiLineString(lines...)
	case orb.Polygon:
		return Geometry{Type: TypePolygon, Polygons: []Polygon{orbPolygon(g)}}
	case orb.MultiPolygon:
		polys := make([]Polygon, len(g))
		for i, p := range g {
			polys[i] = orbPolygon(p)
		}
		return NewMultiPolygon(polys...)
	case orb.Collection:
		parts := make([]Geometry, len(g))
		for i, part := range g {
			parts[i] = fromOrb(part)
		}
		return NewCollection(parts...)
	default:
		return Geometry{}
	}
}

func orbPoints(pts []orb.Point) []vec.Vec2 {
	out := make([]vec.Vec2, len(pts))
	for i, p := range pts {
		out[i] = vec.Vec2{X: p[0], Y: p[1]}
	}
	return out
}

func orbPolygon(p orb.Polygon) Polygon {
	rings := make(Polygon, len(p))
	for i, r := range p {
		rings[i] = Ring(orbPoints(r))
	}
	return rings
}

// MarshalGeoJSON encodes the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalGeoJSON() ([]byte, error) {
	og, err := toOrb(g)
	if err != nil {
		return nil, err
	}
	return geojson.NewGeometry(og).MarshalJSON()
}

func toOrb(g Geometry) (orb.Geometry, error) {
	switch g.Type {
	case TypePoint:
		if len(g.Points) == 0 {
			return nil, &GeometryError{Type: g.Type, Reason: "no coordinates"}
		}
		return orb.Point{g.Points[0].X, g.Points[0].Y}, nil
	case TypeMultiPoint:
		return orb.MultiPoint(toOrbPoints(g.Points)), nil
	case TypeLineString:
		if len(g.Lines) == 0 {
			return nil, &GeometryError{Type: g.Type, Reason: "no coordinates"}
		}
		return orb.LineString(toOrbPoints(g.Lines[0])), nil
	case TypeMultiLineString:
		mls := make(orb.MultiLineString, len(g.Lines))
		for i, l := range g.Lines {
			mls[i] = toOrbPoints(l)
		}
		return mls, nil
	case TypePolygon:
		if len(g.Polygons) == 0 {
			return nil, &GeometryError{Type: g.Type, Reason: "no coordinates"}
		}
		return toOrbPolygon(g.Polygons[0]), nil
	case TypeMultiPolygon:
		mp := make(orb.MultiPolygon, len(g.Polygons))
		for i, p := range g.Polygons {
			mp[i] = toOrbPolygon(p)
		}
		return mp, nil
	case TypeCollection:
		c := make(orb.Collection, len(g.Parts))
		for i, part := range g.Parts {
			og, err := toOrb(part)
			if err != nil {
				return nil, err
			}
			c[i] = og
		}
		return c, nil
	default:
		return nil, &GeometryError{Type: g.Type, Reason: "unsupported geometry type"}
	}
}

func toOrbPoints(pts []vec.Vec2) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = orb.Point{p.X, p.Y}
	}
	return out
}

// toOrbPolygon closes the rings explicitly, as GeoJSON requires.
func toOrbPolygon(p Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := orb.Ring(toOrbPoints(r))
		if n := len(ring); n > 0 && ring[0] != ring[n-1] {
			ring = append(ring, ring[0])
		}
		out[i] = ring
	}
	return out
}
