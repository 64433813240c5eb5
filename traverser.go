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

// Package starspan overlays vector features on raster grids.
//
// A Traverser takes the features of a vector source one at a time, finds
// the raster cells each geometry occupies, reads the band values of every
// attached raster at these cells and passes the results to a set of
// Observers. Points are looked up directly, lines are walked cell by cell
// under a coverage threshold, and polygons are rasterized along their
// rings and then filled.
package starspan

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/vector"
	"github.com/google/uuid"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Traverser runs the traversal described by a Config. Rasters and the
// vector source are only read, so several Traversers may share them and
// run concurrently as long as each has its own observers.
type Traverser struct {
	cfg Config

	toGrid  matrix.Matrix // world to the grid of the first raster
	toWorld matrix.Matrix
	extent  rect.Rect // union of the raster envelopes, world coordinates
	clip    rect.Rect // extent in cells of the first raster
}

// New checks cfg and returns a Traverser for it. Configuration problems
// are reported as errors wrapping ErrConfiguration.
func New(cfg Config) (*Traverser, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Rasters = slices.Clone(cfg.Rasters)
	cfg.Observers = slices.Clone(cfg.Observers)
	if cfg.DesiredFID != nil {
		fid := *cfg.DesiredFID
		cfg.DesiredFID = &fid
	}
	if cfg.Box != nil {
		box := *cfg.Box
		cfg.Box = &box
	}

	toWorld := cfg.Rasters[0].Transform()
	toGrid, err := raster.Invert(toWorld)
	if err != nil {
		return nil, &ConfigError{Field: "Rasters[0]", Reason: err.Error()}
	}

	t := &Traverser{
		cfg:     cfg,
		toGrid:  toGrid,
		toWorld: toWorld,
		extent:  cfg.Rasters[0].Envelope(),
	}
	for _, r := range cfg.Rasters[1:] {
		t.extent = union(t.extent, r.Envelope())
	}
	g := raster.TransformRect(toGrid, t.extent)
	t.clip = rect.Rect{
		LLx: math.Floor(g.LLx),
		LLy: math.Floor(g.LLy),
		URx: math.Ceil(g.URx),
		URy: math.Ceil(g.URy),
	}
	return t, nil
}

// Traverse processes all selected features. It returns a summary of the
// run even if an error occurs.
//
// Geometry problems only skip the affected feature. Errors from the vector
// source, a raster or an observer end the run; so does cancellation of
// ctx, which is checked before every feature. Observers whose Init
// succeeded always receive End, preceded by Abort if the run failed.
func (t *Traverser) Traverse(ctx context.Context) (*Summary, error) {
	start := time.Now()

	r, err := t.newRun()
	if err != nil {
		return nil, err
	}

	if err := r.obs.init(t.globalInfo(r.summary.RunID)); err != nil {
		err = fmt.Errorf("observer init: %w", err)
		r.obs.abort(err)
		return r.summary, errors.Join(err, r.obs.end())
	}
	r.keepFeature = !r.obs.simple()

	err = r.processAll(ctx)
	if err != nil {
		r.obs.abort(err)
	}
	endErr := r.obs.end()
	r.summary.Elapsed = time.Since(start)
	if err != nil {
		return r.summary, errors.Join(err, endErr)
	}
	if endErr != nil {
		return r.summary, fmt.Errorf("observer end: %w", endErr)
	}
	return r.summary, nil
}

func (t *Traverser) globalInfo(runID uuid.UUID) *GlobalInfo {
	info := &GlobalInfo{
		RunID:     runID,
		Layer:     t.cfg.Vector.Name(),
		Fields:    slices.Clone(t.cfg.Vector.Fields()),
		CRS:       t.cfg.CRS,
		Threshold: t.cfg.Threshold,
	}
	for _, r := range t.cfg.Rasters {
		cols, rows := r.Size()
		info.Rasters = append(info.Rasters, RasterInfo{
			Name:      r.Name(),
			Cols:      cols,
			Rows:      rows,
			Bands:     r.BandCount(),
			Transform: r.Transform(),
		})
	}
	return info
}

func (t *Traverser) logf(format string, v ...any) {
	if t.cfg.Logf != nil {
		t.cfg.Logf(format, v...)
		return
	}
	Logf(format, v...)
}

// reach is how far a geometry can extend beyond its own envelope once
// buffering and boxes are applied.
func (t *Traverser) reach() (dx, dy float64) {
	dx, dy = t.cfg.Buffer, t.cfg.Buffer
	if b := t.cfg.Box; b != nil {
		dx += b.Width / 2
		dy += b.Height / 2
	}
	return dx, dy
}

// intersectsAny reports whether env meets the envelope of at least one
// raster.
func (t *Traverser) intersectsAny(env rect.Rect) bool {
	for _, r := range t.cfg.Rasters {
		if vector.Intersects(env, r.Envelope()) {
			return true
		}
	}
	return false
}

// run holds the state of one call to Traverse.
type run struct {
	t           *Traverser
	obs         observerSet
	line        *rasterize.LineRasterizer
	fill        *rasterize.Rasterizer
	summary     *Summary
	keepFeature bool

	current *vector.Feature
	seen    map[[2]int]struct{} // cells emitted for the current feature
	ev      Event
	ring    []vec.Vec2 // polygon ring in grid orientation
	err     error      // first error inside a rasterizer callback
}

func (t *Traverser) newRun() (*run, error) {
	line, err := rasterize.NewLineRasterizer(t.toGrid, t.cfg.Threshold)
	if err != nil {
		return nil, &ConfigError{Field: "Threshold", Reason: err.Error()}
	}
	line.SetClip(t.clip)

	fill := rasterize.NewRasterizer(t.clip)
	fill.CTM = t.toGrid
	fill.Width = 2 * t.cfg.Buffer
	fill.Cap = graphics.LineCapRound
	fill.Join = graphics.LineJoinRound

	r := &run{
		t:       t,
		obs:     observerSet{list: t.cfg.Observers},
		line:    line,
		fill:    fill,
		summary: newSummary(uuid.New()),
		seen:    make(map[[2]int]struct{}),
	}
	r.ev.Samples = make([]Sample, len(t.cfg.Rasters))
	for i, ras := range t.cfg.Rasters {
		n := ras.BandCount()
		r.ev.Samples[i].Values = make([]float64, n)
		r.ev.Samples[i].Valid = make([]bool, n)
	}
	return r, nil
}

// features returns the feature stream of the run, restricted to the
// raster extent where the source supports it.
func (r *run) features() iter.Seq2[*vector.Feature, error] {
	cfg := &r.t.cfg
	if s, ok := cfg.Vector.(vector.SpatialSource); ok && !cfg.DisableSpatialFilter && cfg.DesiredField == "" {
		dx, dy := r.t.reach()
		env := r.t.extent
		env.LLx -= dx
		env.LLy -= dy
		env.URx += dx
		env.URy += dy
		return s.FeaturesIn(env)
	}
	return cfg.Vector.Features()
}

func (r *run) processAll(ctx context.Context) error {
	cfg := &r.t.cfg

	if cfg.DesiredFID != nil {
		f, err := cfg.Vector.FeatureByID(*cfg.DesiredFID)
		if errors.Is(err, vector.ErrNotFound) {
			r.t.logf("starspan: feature %d not found in %s", *cfg.DesiredFID, cfg.Vector.Name())
			return nil
		} else if err != nil {
			return fmt.Errorf("%s: %w", cfg.Vector.Name(), err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.feature(f)
	}

	for f, err := range r.features() {
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Vector.Name(), err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.DesiredField != "" {
			if f.Attributes.String(cfg.DesiredField) != cfg.DesiredValue {
				continue
			}
			return r.feature(f)
		}
		if err := r.feature(f); err != nil {
			return err
		}
	}

	if cfg.DesiredField != "" {
		r.t.logf("starspan: no feature in %s has %s=%q", cfg.Vector.Name(), cfg.DesiredField, cfg.DesiredValue)
	}
	return nil
}

// feature processes a single feature.
func (r *run) feature(f *vector.Feature) error {
	r.summary.Read++

	g := f.Geometry
	if err := g.Validate(); err != nil {
		return r.invalid(f, err)
	}
	if r.t.cfg.Box != nil {
		g = boxAround(g, *r.t.cfg.Box)
	}

	env, _ := g.Envelope()
	if d := r.t.cfg.Buffer; d > 0 {
		env = rect.Rect{LLx: env.LLx - d, LLy: env.LLy - d, URx: env.URx + d, URy: env.URy + d}
	}
	if !r.t.intersectsAny(env) {
		r.summary.Outside++
		if r.t.cfg.Verbose {
			r.t.logf("starspan: feature %d does not intersect any raster", f.FID)
		}
		return nil
	}

	if err := r.obs.intersectionFound(f); err != nil {
		return &FeatureError{FID: f.FID, Err: err}
	}
	r.summary.Intersecting++
	r.summary.ByType[f.Geometry.Type]++

	r.current = f
	clear(r.seen)
	err := r.decompose(g)
	r.current = nil

	if errors.Is(err, ErrInvalidGeometry) {
		return r.invalid(f, err)
	} else if err != nil {
		return &FeatureError{FID: f.FID, Err: err}
	}
	return nil
}

// invalid records a feature skipped because of its geometry.
func (r *run) invalid(f *vector.Feature, err error) error {
	r.summary.Invalid++
	r.t.logf("starspan: skipping feature %d: %v", f.FID, err)
	if err := r.obs.geometryError(f.FID, err); err != nil {
		return &FeatureError{FID: f.FID, Err: err}
	}
	return nil
}

// emit reports the cell (col, row) of the reference grid, hit at world
// position (x, y), unless it was already reported for this feature or lies
// outside every raster.
func (r *run) emit(col, row int, x, y float64) error {
	key := [2]int{col, row}
	if _, dup := r.seen[key]; dup {
		return nil
	}

	ev := &r.ev
	inAny := false
	for i, ras := range r.t.cfg.Rasters {
		s := &ev.Samples[i]
		s.Col, s.Row, s.InBounds = ras.ToGrid(x, y)
		if s.InBounds {
			inAny = true
		}
	}
	if !inAny {
		return nil
	}
	r.seen[key] = struct{}{}

	for i, ras := range r.t.cfg.Rasters {
		s := &ev.Samples[i]
		for b := range s.Values {
			if !s.InBounds {
				s.Values[b], s.Valid[b] = math.NaN(), false
				continue
			}
			v, valid, err := ras.BandValue(s.Col, s.Row, b)
			if err != nil {
				return fmt.Errorf("raster %s: %w", ras.Name(), err)
			}
			s.Values[b], s.Valid[b] = v, valid
		}
	}

	ev.Col, ev.Row = col, row
	ev.X, ev.Y = x, y
	ev.Feature = nil
	if r.keepFeature {
		ev.Feature = r.current
	}
	if err := r.obs.addPixel(ev); err != nil {
		return err
	}
	r.summary.Pixels++
	return nil
}

func union(a, b rect.Rect) rect.Rect {
	return rect.Rect{
		LLx: min(a.LLx, b.LLx),
		LLy: min(a.LLy, b.LLy),
		URx: max(a.URx, b.URx),
		URy: max(a.URy, b.URy),
	}
}
