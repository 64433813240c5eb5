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
	"errors"
	"fmt"

	"github.com/Ecotrust/starspan/vector"
)

var (
	// ErrConfiguration is wrapped by all errors New reports for invalid
	// configurations.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidGeometry marks features whose geometry cannot be traversed.
	ErrInvalidGeometry = vector.ErrInvalidGeometry
)

// ConfigError describes an invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// FeatureError attaches a feature ID to an error.
type FeatureError struct {
	FID int64
	Err error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %d: %v", e.FID, e.Err)
}

func (e *FeatureError) Unwrap() error {
	return e.Err
}
