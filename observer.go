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

	"github.com/Ecotrust/starspan/vector"
)

// Observer consumes the results of a traversal run. For each Observer the
// calls are strictly ordered:
//
//	Init, IsSimple, (IntersectionFound, AddPixel*)*, End
//
// Every callback is delivered to all observers, in registration order,
// before the next callback starts. An error returned by any method other
// than End aborts the run; End is still called.
//
// Observers are not safe for concurrent use and must not be shared
// between runs.
type Observer interface {
	// Init is called once before the first feature.
	Init(info *GlobalInfo) error

	// IsSimple reports whether the observer only needs the pixel stream.
	// If all observers are simple, Event.Feature is nil.
	IsSimple() bool

	// IntersectionFound starts a feature which overlaps at least one
	// raster.
	IntersectionFound(f *vector.Feature) error

	// AddPixel reports one cell of the current feature.
	AddPixel(ev *Event) error

	// End is called once after the last feature. Observers flush and
	// release their resources here.
	End() error
}

// GeometryErrorObserver is implemented by observers which want to know
// about features skipped because of their geometry. GeometryError is
// never called between IntersectionFound and the AddPixel calls of the
// same feature.
type GeometryErrorObserver interface {
	GeometryError(fid int64, err error) error
}

// AbortObserver is implemented by observers which need to tell a failed
// run from a complete one. Abort is called right before End, with the
// error which ended the run.
type AbortObserver interface {
	Abort(err error)
}

// NopObserver implements Observer with methods which do nothing. It can be
// embedded by observers which only need some of the callbacks.
type NopObserver struct{}

func (NopObserver) Init(*GlobalInfo) error { return nil }
func (NopObserver) IsSimple() bool { return true }
func (NopObserver) IntersectionFound(*vector.Feature) error { return nil }
func (NopObserver) AddPixel(*Event) error { return nil }
func (NopObserver) End() error { return nil }

// observerSet fans callbacks out to all observers, breadth first.
type observerSet struct {
	list    []Observer
	started int // number of observers whose Init succeeded
}

func (s *observerSet) init(info *GlobalInfo) error {
	for _, o := range s.list {
		if err := o.Init(info); err != nil {
			return err
		}
		s.started++
	}
	return nil
}

// simple reports whether no observer needs the feature in events.
func (s *observerSet) simple() bool {
	simple := true
	for _, o := range s.list {
		if !o.IsSimple() {
			simple = false
		}
	}
	return simple
}

func (s *observerSet) intersectionFound(f *vector.Feature) error {
	for _, o := range s.list {
		if err := o.IntersectionFound(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *observerSet) addPixel(ev *Event) error {
	for _, o := range s.list {
		if err := o.AddPixel(ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *observerSet) geometryError(fid int64, err error) error {
	for _, o := range s.list {
		if g, ok := o.(GeometryErrorObserver); ok {
			if err := g.GeometryError(fid, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// abort notifies every started observer that the run failed.
func (s *observerSet) abort(err error) {
	for _, o := range s.list[:s.started] {
		if a, ok := o.(AbortObserver); ok {
			a.Abort(err)
		}
	}
}

// end calls End on every observer whose Init succeeded and joins the
// errors.
func (s *observerSet) end() error {
	var errs []error
	for _, o := range s.list[:s.started] {
		if err := o.End(); err != nil {
			errs = append(errs, err)
		}
	}
	s.started = 0
	return errors.Join(errs...)
}
