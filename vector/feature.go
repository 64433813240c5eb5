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
	"iter"
	"strconv"

	"seehuhn.de/go/geom/rect"
)

// Field is one named attribute value. Value holds one of nil, bool,
// int64, float64 or string.
type Field struct {
	Name  string
	Value any
}

// Attributes is the ordered attribute record of a feature.
type Attributes []Field

// Get returns the value of the named field.
func (a Attributes) Get(name string) (any, bool) {
	for _, f := range a {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value of the named field formatted as text, or the
// empty string if the field is missing or null.
func (a Attributes) String(name string) string {
	v, ok := a.Get(name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// FormatValue formats an attribute value the way it is written to text
// outputs.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Feature is one record of a vector layer.
type Feature struct {
	FID        int64
	Geometry   Geometry
	Attributes Attributes
}

// Source is a read-only feature layer. Features must be produced in a
// stable order, the same on every call.
type Source interface {
	// Name identifies the layer in outputs.
	Name() string

	// Fields lists the attribute names in record order.
	Fields() []string

	// Features iterates over all features. A non-nil error ends the
	// iteration.
	Features() iter.Seq2[*Feature, error]

	// FeatureByID returns the feature with the given FID, or an error
	// wrapping ErrNotFound.
	FeatureByID(fid int64) (*Feature, error)
}

// SpatialSource is implemented by sources which can restrict iteration to
// features whose envelope intersects a query rectangle. The order of the
// returned features must agree with Features.
type SpatialSource interface {
	Source
	FeaturesIn(env rect.Rect) iter.Seq2[*Feature, error]
}

// Intersects reports whether two closed rectangles overlap.
func Intersects(a, b rect.Rect) bool {
	return a.LLx <= b.URx && b.LLx <= a.URx && a.LLy <= b.URy && b.LLy <= a.URy
}
