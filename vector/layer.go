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
	"math"
	"slices"
	"sync"

	"github.com/dhconnelly/rtreego"
	"seehuhn.de/go/geom/rect"
)

// minExtent is the smallest side length of an index rectangle. R-tree
// rectangles must have positive size, so points and axis-parallel lines
// are padded.
const minExtent = 1e-9

// Layer is an in-memory feature layer with an R-tree over the feature
// envelopes. Features are iterated in insertion order.
//
// A Layer must not be modified while it is being traversed. Concurrent
// reads are safe.
type Layer struct {
	name     string
	fields   []string
	features []*Feature
	byID     map[int64]int

	indexOnce sync.Once
	index     *rtreego.Rtree
	unindexed []int // features without a finite envelope
}

// NewLayer returns a layer holding the given features.
func NewLayer(name string, fields []string, features ...*Feature) *Layer {
	l := &Layer{
		name:   name,
		fields: slices.Clone(fields),
		byID:   make(map[int64]int, len(features)),
	}
	for _, f := range features {
		l.Add(f)
	}
	return l
}

// Add appends a feature. FIDs must be unique.
func (l *Layer) Add(f *Feature) {
	if _, dup := l.byID[f.FID]; dup {
		panic(fmt.Sprintf("vector: duplicate FID %d", f.FID))
	}
	l.byID[f.FID] = len(l.features)
	l.features = append(l.features, f)
	l.indexOnce = sync.Once{}
	l.index = nil
	l.unindexed = nil
}

// Name implements Source.
func (l *Layer) Name() string { return l.name }

// Fields implements Source.
func (l *Layer) Fields() []string { return l.fields }

// Len returns the number of features.
func (l *Layer) Len() int { return len(l.features) }

// Features implements Source.
func (l *Layer) Features() iter.Seq2[*Feature, error] {
	return func(yield func(*Feature, error) bool) {
		for _, f := range l.features {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// FeatureByID implements Source.
func (l *Layer) FeatureByID(fid int64) (*Feature, error) {
	idx, ok := l.byID[fid]
	if !ok {
		return nil, fmt.Errorf("FID %d: %w", fid, ErrNotFound)
	}
	return l.features[idx], nil
}

// FeaturesIn implements SpatialSource. Features whose geometry has no
// finite envelope are always returned, so that the caller can report them.
func (l *Layer) FeaturesIn(env rect.Rect) iter.Seq2[*Feature, error] {
	return func(yield func(*Feature, error) bool) {
		l.indexOnce.Do(l.buildIndex)

		hits := l.index.SearchIntersect(toRtreeRect(env))
		idx := make([]int, 0, len(hits))
		for _, h := range hits {
			e := h.(*indexEntry)
			if Intersects(e.env, env) {
				idx = append(idx, e.idx)
			}
		}
		idx = append(idx, l.unindexed...)
		slices.Sort(idx)

		for _, i := range idx {
			if !yield(l.features[i], nil) {
				return
			}
		}
	}
}

// indexEntry wraps a feature envelope for R-tree storage.
type indexEntry struct {
	idx int
	env rect.Rect
}

// Bounds implements rtreego.Spatial.
func (e *indexEntry) Bounds() rtreego.Rect {
	return toRtreeRect(e.env)
}

func (l *Layer) buildIndex() {
	objs := make([]rtreego.Spatial, 0, len(l.features))
	for i, f := range l.features {
		env, ok := f.Geometry.Envelope()
		if !ok || !finite(env) {
			l.unindexed = append(l.unindexed, i)
			continue
		}
		objs = append(objs, &indexEntry{idx: i, env: env})
	}
	l.index = rtreego.NewTree(2, 25, 50, objs...)
}

func finite(r rect.Rect) bool {
	for _, x := range [...]float64{r.LLx, r.LLy, r.URx, r.URy} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func toRtreeRect(env rect.Rect) rtreego.Rect {
	point := rtreego.Point{env.LLx - minExtent/2, env.LLy - minExtent/2}
	lengths := []float64{
		max(env.URx-env.LLx, 0) + minExtent,
		max(env.URy-env.LLy, 0) + minExtent,
	}
	r, _ := rtreego.NewRect(point, lengths)
	return r
}
