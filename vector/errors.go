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
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned for geometries which cannot be
	// traversed: non-finite coordinates, unsupported types and degenerate
	// rings.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrNotFound is returned by Source.FeatureByID for unknown FIDs.
	ErrNotFound = errors.New("feature not found")
)

// GeometryError describes why a geometry was rejected.
type GeometryError struct {
	Type   Type
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Type != TypeUnknown {
		return fmt.Sprintf("invalid geometry (%v): %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidGeometry) work.
func (e *GeometryError) Unwrap() error {
	return ErrInvalidGeometry
}
