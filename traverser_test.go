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
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/vector"
	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"
)

// recorder logs every observer call as a string.
type recorder struct {
	calls  []string
	events []*Event
	simple bool

	failOn string // call prefix which returns an error
}

var errRecorder = errors.New("recorder failure")

func (r *recorder) log(format string, v ...any) error {
	s := fmt.Sprintf(format, v...)
	r.calls = append(r.calls, s)
	if r.failOn != "" && strings.HasPrefix(s, r.failOn) {
		return errRecorder
	}
	return nil
}

func (r *recorder) Init(info *GlobalInfo) error {
	return r.log("init %s rasters=%d bands=%d", info.Layer, len(info.Rasters), info.BandCount())
}

func (r *recorder) IsSimple() bool { return r.simple }

func (r *recorder) IntersectionFound(f *vector.Feature) error {
	return r.log("feature %d", f.FID)
}

func (r *recorder) AddPixel(ev *Event) error {
	r.events = append(r.events, ev.Clone())
	return r.log("pixel %d,%d", ev.Col, ev.Row)
}

func (r *recorder) End() error {
	return r.log("end")
}

func (r *recorder) GeometryError(fid int64, err error) error {
	return r.log("error %d", fid)
}

func (r *recorder) Abort(err error) {
	_ = r.log("abort")
}

// pixels returns the recorded cells.
func (r *recorder) pixels() [][2]int {
	var out [][2]int
	for _, ev := range r.events {
		out = append(out, [2]int{ev.Col, ev.Row})
	}
	return out
}

// testGrid returns a north-up grid with unit cells whose upper left corner
// is at (x0, y0). Band b holds 1000*b + 100*row + col.
func testGrid(t *testing.T, name string, x0, y0 float64, cols, rows, bands int) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(name, cols, rows, bands, raster.NorthUp(x0, y0, 1))
	if err != nil {
		t.Fatal(err)
	}
	for b := range bands {
		g.Fill(b, func(col, row int) float64 { return float64(1000*b + 100*row + col) })
	}
	return g
}

func feature(fid int64, g vector.Geometry) *vector.Feature {
	return &vector.Feature{
		FID:        fid,
		Geometry:   g,
		Attributes: vector.Attributes{{Name: "name", Value: fmt.Sprintf("f%d", fid)}},
	}
}

func layer(features ...*vector.Feature) *vector.Layer {
	return vector.NewLayer("fields", []string{"name"}, features...)
}

func runConfig(t *testing.T, cfg Config) (*recorder, *Summary) {
	t.Helper()
	rec := &recorder{}
	cfg.Observers = append(cfg.Observers, rec)
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	cfg.Logf = t.Logf
	tr, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := tr.Traverse(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return rec, s
}

func uniqueCells(t *testing.T, cells [][2]int) map[[2]int]bool {
	t.Helper()
	set := make(map[[2]int]bool)
	for _, c := range cells {
		if set[c] {
			t.Errorf("cell %v reported twice", c)
		}
		set[c] = true
	}
	return set
}

func TestSquarePolygon(t *testing.T) {
	// covers columns 2-4 and rows 2-4 of the grid
	src := layer(feature(1, vector.Rect(2, 5, 5, 8)))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	cells := uniqueCells(t, rec.pixels())
	if len(cells) != 9 {
		t.Errorf("got %d cells, want 9: %v", len(cells), rec.pixels())
	}
	for c := range cells {
		if c[0] < 2 || c[0] > 4 || c[1] < 2 || c[1] > 4 {
			t.Errorf("cell %v outside the square", c)
		}
	}
	for _, ev := range rec.events {
		want := float64(100*ev.Row + ev.Col)
		if s := ev.Samples[0]; !s.InBounds || !s.Valid[0] || s.Values[0] != want {
			t.Errorf("cell (%d,%d): sample %+v", ev.Col, ev.Row, s)
		}
	}
}

func TestSquarePolygonReversed(t *testing.T) {
	// the same square, given clockwise and with an explicit closing vertex
	ring := vector.Ring{{X: 2, Y: 5}, {X: 2, Y: 8}, {X: 5, Y: 8}, {X: 5, Y: 5}, {X: 2, Y: 5}}
	src := layer(feature(1, vector.NewPolygon(ring)))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	if cells := uniqueCells(t, rec.pixels()); len(cells) != 9 {
		t.Errorf("got %d cells, want 9", len(cells))
	}
}

func TestHorizontalLine(t *testing.T) {
	// from the center of cell (0,0) to the center of cell (4,0)
	src := layer(feature(1, vector.NewLineString(vec.Vec2{X: 0.5, Y: 9.5}, vec.Vec2{X: 4.5, Y: 9.5})))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	want := [][2]int{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	if d := cmp.Diff(want, rec.pixels()); d != "" {
		t.Errorf("cells (-want +got):\n%s", d)
	}
	for i, ev := range rec.events {
		if ev.X != float64(i)+0.5 || ev.Y != 9.5 {
			t.Errorf("event %d at (%g, %g)", i, ev.X, ev.Y)
		}
	}
}

func TestCallSequence(t *testing.T) {
	src := layer(
		feature(1, vector.NewPoint(1.5, 8.5)),
		feature(2, vector.NewPoint(50, 50)), // outside
		feature(3, vector.NewMultiPoint(vec.Vec2{X: 3.5, Y: 9.5}, vec.Vec2{X: 3.7, Y: 9.2}, vec.Vec2{X: 9.5, Y: 0.5})),
	)
	rec, s := runConfig(t, Config{
		Vector:               src,
		Rasters:              []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 2)},
		DisableSpatialFilter: true,
	})

	want := []string{
		"init fields rasters=1 bands=2",
		"feature 1",
		"pixel 1,1",
		"feature 3",
		"pixel 3,0",
		"pixel 9,9",
		"end",
	}
	if d := cmp.Diff(want, rec.calls); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
	if s.Read != 3 || s.Intersecting != 2 || s.Outside != 1 || s.Pixels != 3 {
		t.Errorf("summary %+v", s)
	}
	if got := rec.events[0].Samples[0].Values; got[1] != 1101 {
		t.Errorf("band 1 of (1,1) = %g", got[1])
	}
}

func TestDeterminism(t *testing.T) {
	cfg := Config{
		Vector: layer(
			feature(1, vector.NewPolygon(vector.Ring{{X: 1.2, Y: 1.3}, {X: 8.7, Y: 2.1}, {X: 5.5, Y: 9.4}})),
			feature(2, vector.NewLineString(vec.Vec2{X: 0.3, Y: 0.2}, vec.Vec2{X: 9.1, Y: 7.7}, vec.Vec2{X: 2, Y: 9})),
			feature(3, vector.NewMultiPoint(vec.Vec2{X: 4, Y: 4}, vec.Vec2{X: 6.2, Y: 1.1})),
		),
		Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)},
	}
	a, _ := runConfig(t, cfg)
	b, _ := runConfig(t, cfg)
	if d := cmp.Diff(a.calls, b.calls); d != "" {
		t.Errorf("second run differs (-first +second):\n%s", d)
	}
	for i := range a.calls {
		if a.calls[i] == "feature 1" && (i+1 >= len(a.calls) || !strings.HasPrefix(a.calls[i+1], "pixel")) {
			t.Error("polygon produced no pixels")
		}
	}
}

func TestMultiRaster(t *testing.T) {
	big := testGrid(t, "big", 0, 10, 10, 10, 1)
	small := testGrid(t, "small", 0, 10, 4, 4, 2) // x 0..4, y 6..10
	src := layer(feature(1, vector.NewMultiPoint(
		vec.Vec2{X: 2.5, Y: 7.5},
		vec.Vec2{X: 7.5, Y: 2.5},
		vec.Vec2{X: 20, Y: 20},
	)))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{big, small}})

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.events))
	}
	for _, ev := range rec.events {
		if len(ev.Samples) != 2 {
			t.Fatalf("event has %d samples", len(ev.Samples))
		}
		if len(ev.Samples[1].Values) != 2 {
			t.Errorf("small raster slot has %d bands", len(ev.Samples[1].Values))
		}
	}

	inBoth, onlyBig := rec.events[0].Samples, rec.events[1].Samples
	if !inBoth[1].InBounds || inBoth[1].Values[0] != 202 || inBoth[1].Values[1] != 1202 {
		t.Errorf("small raster at (2.5, 7.5): %+v", inBoth[1])
	}
	if onlyBig[1].InBounds || onlyBig[1].Valid[0] || onlyBig[1].Valid[1] {
		t.Errorf("small raster at (7.5, 2.5): %+v", onlyBig[1])
	}
	if !onlyBig[0].Valid[0] || onlyBig[0].Values[0] != 707 {
		t.Errorf("big raster at (7.5, 2.5): %+v", onlyBig[0])
	}
}

func TestRasterResolutions(t *testing.T) {
	// the second raster has 2×2 cells over the same area
	fine := testGrid(t, "fine", 0, 10, 10, 10, 1)
	coarse, err := raster.NewGrid("coarse", 5, 5, 1, raster.NorthUp(0, 10, 2))
	if err != nil {
		t.Fatal(err)
	}
	coarse.Fill(0, func(col, row int) float64 { return float64(10*row + col) })

	src := layer(feature(1, vector.NewLineString(vec.Vec2{X: 0.5, Y: 9.5}, vec.Vec2{X: 3.5, Y: 9.5})))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{fine, coarse}})

	var got []float64
	for _, ev := range rec.events {
		got = append(got, ev.Samples[1].Values[0])
	}
	if d := cmp.Diff([]float64{0, 0, 1, 1}, got); d != "" {
		t.Errorf("coarse values (-want +got):\n%s", d)
	}
}

func TestDesiredFID(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)), feature(2, vector.NewPoint(2.5, 2.5)))
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	fid := int64(2)
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, DesiredFID: &fid})
	want := []string{"init fields rasters=1 bands=1", "feature 2", "pixel 2,7", "end"}
	if d := cmp.Diff(want, rec.calls); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}

	missing := int64(99)
	rec, s := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, DesiredFID: &missing})
	want = []string{"init fields rasters=1 bands=1", "end"}
	if d := cmp.Diff(want, rec.calls); d != "" {
		t.Errorf("calls for missing FID (-want +got):\n%s", d)
	}
	if s.Read != 0 {
		t.Errorf("read %d features", s.Read)
	}
}

func TestDesiredField(t *testing.T) {
	src := layer(
		feature(1, vector.NewPoint(1.5, 1.5)),
		feature(2, vector.NewPoint(2.5, 2.5)),
		feature(3, vector.NewPoint(3.5, 3.5)),
	)
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, DesiredField: "name", DesiredValue: "f2"})

	want := []string{"init fields rasters=1 bands=1", "feature 2", "pixel 2,7", "end"}
	if d := cmp.Diff(want, rec.calls); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
}

func TestInvalidGeometry(t *testing.T) {
	src := layer(
		feature(1, vector.NewPoint(1.5, 1.5)),
		feature(2, vector.NewLineString(vec.Vec2{X: math.NaN(), Y: 1}, vec.Vec2{X: 2, Y: 2})),
		feature(3, vector.NewPolygon(vector.Ring{{X: 1, Y: 1}, {X: 2, Y: 2}})),
		feature(4, vector.NewPoint(3.5, 3.5)),
	)
	rec, s := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	want := []string{
		"init fields rasters=1 bands=1",
		"feature 1", "pixel 1,8",
		"error 2",
		"error 3",
		"feature 4", "pixel 3,6",
		"end",
	}
	if d := cmp.Diff(want, rec.calls); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
	if s.Invalid != 2 {
		t.Errorf("invalid = %d, want 2", s.Invalid)
	}
}

func TestConfigErrors(t *testing.T) {
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)
	src := layer(feature(1, vector.NewPoint(1, 1)))
	rasters := []raster.Raster{grid}

	cases := map[string]Config{
		"no vector":       {Rasters: rasters, Threshold: 0.5},
		"no rasters":      {Vector: src, Threshold: 0.5},
		"zero threshold":  {Vector: src, Rasters: rasters},
		"big threshold":   {Vector: src, Rasters: rasters, Threshold: 1.01},
		"nan threshold":   {Vector: src, Rasters: rasters, Threshold: math.NaN()},
		"negative buffer": {Vector: src, Rasters: rasters, Threshold: 0.5, Buffer: -1},
		"empty box":       {Vector: src, Rasters: rasters, Threshold: 0.5, Box: &Box{Width: 0, Height: 1}},
		"unknown field":   {Vector: src, Rasters: rasters, Threshold: 0.5, DesiredField: "nope", DesiredValue: "x"},
		"bad interior":    {Vector: src, Rasters: rasters, Threshold: 0.5, Interior: Interior(7)},
		"bad fill rule":   {Vector: src, Rasters: rasters, Threshold: 0.5, FillRule: rasterize.FillRule(3)},
		"nil observer":    {Vector: src, Rasters: rasters, Threshold: 0.5, Observers: []Observer{nil}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			if cfg.Observers == nil {
				cfg.Observers = []Observer{rec}
			}
			_, err := New(cfg)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field == "" {
				t.Errorf("no field in %v", err)
			}
			if len(rec.calls) != 0 {
				t.Errorf("observer saw %v", rec.calls)
			}
		})
	}
}

func TestObserverFailure(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)), feature(2, vector.NewPoint(2.5, 2.5)))
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	first := &recorder{}
	failing := &recorder{failOn: "pixel"}
	tr, err := New(Config{
		Vector:    src,
		Rasters:   []raster.Raster{grid},
		Threshold: 0.5,
		Observers: []Observer{first, failing},
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = tr.Traverse(context.Background())
	if !errors.Is(err, errRecorder) {
		t.Fatalf("got %v", err)
	}
	var fe *FeatureError
	if !errors.As(err, &fe) || fe.FID != 1 {
		t.Errorf("error does not name feature 1: %v", err)
	}

	want := []string{"init fields rasters=1 bands=1", "feature 1", "pixel 1,8", "abort", "end"}
	for _, rec := range []*recorder{first, failing} {
		if d := cmp.Diff(want, rec.calls); d != "" {
			t.Errorf("calls (-want +got):\n%s", d)
		}
	}
}

func TestInitFailure(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)))
	ok := &recorder{}
	failing := &recorder{failOn: "init"}
	never := &recorder{}
	tr, err := New(Config{
		Vector:    src,
		Rasters:   []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)},
		Threshold: 0.5,
		Observers: []Observer{ok, failing, never},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Traverse(context.Background()); !errors.Is(err, errRecorder) {
		t.Fatalf("got %v", err)
	}
	if d := cmp.Diff([]string{"init fields rasters=1 bands=1", "abort", "end"}, ok.calls); d != "" {
		t.Errorf("first observer (-want +got):\n%s", d)
	}
	if len(never.calls) != 0 {
		t.Errorf("third observer saw %v", never.calls)
	}
}

func TestCancel(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)))
	rec := &recorder{}
	tr, err := New(Config{
		Vector:    src,
		Rasters:   []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)},
		Threshold: 0.5,
		Observers: []Observer{rec},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Traverse(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if d := cmp.Diff([]string{"init fields rasters=1 bands=1", "abort", "end"}, rec.calls); d != "" {
		t.Errorf("calls (-want +got):\n%s", d)
	}
}

func TestIsSimple(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)))
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	for _, simple := range []bool{true, false} {
		rec := &recorder{simple: simple}
		tr, err := New(Config{Vector: src, Rasters: []raster.Raster{grid}, Threshold: 0.5, Observers: []Observer{rec}})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Traverse(context.Background()); err != nil {
			t.Fatal(err)
		}
		if hasFeature := rec.events[0].Feature != nil; hasFeature == simple {
			t.Errorf("simple=%t: event feature %v", simple, rec.events[0].Feature)
		}
	}
}

func TestInteriorModes(t *testing.T) {
	// columns 2 and 5 are covered by 70% and 30%
	src := layer(feature(1, vector.Rect(2.3, 5, 5.3, 8)))
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}})
	if n := len(uniqueCells(t, rec.pixels())); n != 12 {
		t.Errorf("centers: %d cells, want 12", n)
	}

	rec, _ = runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, Interior: InteriorCoverage})
	cells := uniqueCells(t, rec.pixels())
	if len(cells) != 9 {
		t.Errorf("coverage: %d cells, want 9", len(cells))
	}
	if cells[[2]int{5, 3}] {
		t.Error("coverage: 30% cell included")
	}
}

func TestHole(t *testing.T) {
	outer := vector.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	hole := vector.Ring{{X: 3, Y: 3}, {X: 7, Y: 3}, {X: 7, Y: 7}, {X: 3, Y: 7}}
	src := layer(feature(1, vector.NewPolygon(outer, hole)))
	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	cells := uniqueCells(t, rec.pixels())
	if len(cells) != 100-16 {
		t.Errorf("got %d cells, want 84", len(cells))
	}
	if cells[[2]int{5, 5}] {
		t.Error("hole was filled")
	}
}

func TestBufferAndBox(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(5.5, 4.5)))
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	rec, _ := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, Buffer: 1.5, Threshold: 0.7})
	cells := uniqueCells(t, rec.pixels())
	want := map[[2]int]bool{{5, 5}: true, {4, 5}: true, {6, 5}: true, {5, 4}: true, {5, 6}: true}
	if d := cmp.Diff(want, cells); d != "" {
		t.Errorf("buffer (-want +got):\n%s", d)
	}

	rec, _ = runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}, Box: &Box{Width: 3, Height: 3}})
	cells = uniqueCells(t, rec.pixels())
	if len(cells) != 9 {
		t.Errorf("box: %d cells, want 9", len(cells))
	}
	for c := range cells {
		if c[0] < 4 || c[0] > 6 || c[1] < 4 || c[1] > 6 {
			t.Errorf("box: unexpected cell %v", c)
		}
	}
}

// plainSource hides the spatial index of a layer.
type plainSource struct{ l *vector.Layer }

func (p plainSource) Name() string { return p.l.Name() }
func (p plainSource) Fields() []string { return p.l.Fields() }
func (p plainSource) Features() iter.Seq2[*vector.Feature, error] { return p.l.Features() }
func (p plainSource) FeatureByID(fid int64) (*vector.Feature, error) {
	return p.l.FeatureByID(fid)
}

func TestSpatialFilter(t *testing.T) {
	var features []*vector.Feature
	for i := range 30 {
		x := float64(i) - 10
		features = append(features, feature(int64(i), vector.Rect(x, x, x+0.8, x+0.8)))
	}
	src := layer(features...)
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	indexed, si := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{grid}})
	plain, sp := runConfig(t, Config{Vector: plainSource{src}, Rasters: []raster.Raster{grid}})
	if d := cmp.Diff(plain.calls, indexed.calls); d != "" {
		t.Errorf("spatial filter changed the output (-plain +indexed):\n%s", d)
	}
	if si.Read >= sp.Read {
		t.Errorf("spatial filter read %d features, plain source %d", si.Read, sp.Read)
	}
}

func TestTraverseEach(t *testing.T) {
	src := layer(
		feature(1, vector.NewPoint(1.5, 1.5)),
		feature(2, vector.Rect(2, 2, 4, 4)),
		feature(3, vector.NewLineString(vec.Vec2{X: 0.5, Y: 9.5}, vec.Vec2{X: 4.5, Y: 9.5})),
	)
	cfg := Config{
		Vector:    src,
		Rasters:   []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)},
		Threshold: 0.5,
		Logf:      t.Logf,
	}

	var mu sync.Mutex
	recs := map[int64]*recorder{}
	factory := func(fid int64) ([]Observer, error) {
		rec := &recorder{}
		mu.Lock()
		recs[fid] = rec
		mu.Unlock()
		return []Observer{rec}, nil
	}

	s, err := TraverseEach(context.Background(), cfg, []int64{1, 2, 3}, factory, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s.Intersecting != 3 {
		t.Errorf("intersecting = %d", s.Intersecting)
	}
	for fid, rec := range recs {
		if rec.calls[1] != fmt.Sprintf("feature %d", fid) {
			t.Errorf("run %d: calls %v", fid, rec.calls)
		}
	}
	if n := len(recs[3].events); n != 5 {
		t.Errorf("line run: %d events", n)
	}

	failing := func(fid int64) ([]Observer, error) {
		if fid == 2 {
			return nil, errRecorder
		}
		return []Observer{&recorder{}}, nil
	}
	if _, err := TraverseEach(context.Background(), cfg, []int64{1, 2, 3}, failing, 1); !errors.Is(err, errRecorder) {
		t.Errorf("factory failure: %v", err)
	}
}

func TestSummaryReport(t *testing.T) {
	src := layer(feature(1, vector.NewPoint(1.5, 1.5)), feature(2, vector.Rect(2, 2, 4, 4)))
	_, s := runConfig(t, Config{Vector: src, Rasters: []raster.Raster{testGrid(t, "dem", 0, 10, 10, 10, 1)}})

	buf := &strings.Builder{}
	if err := s.Report(buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 features read", "2 intersecting", "Point:", "Polygon:", "5 pixels"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func TestEventClone(t *testing.T) {
	ev := &Event{Col: 1, Row: 2, Samples: []Sample{{Values: []float64{1}, Valid: []bool{true}}}}
	c := ev.Clone()
	ev.Samples[0].Values[0] = 7
	ev.Samples[0].Valid[0] = false
	if c.Samples[0].Values[0] != 1 || !c.Samples[0].Valid[0] {
		t.Errorf("clone shares storage: %+v", c.Samples[0])
	}
}

func TestLogger(t *testing.T) {
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)
	src := layer(feature(1, vector.NewPolygon(vector.Ring{{X: 1, Y: 1}, {X: 2, Y: 2}})))

	saved := Logf
	t.Cleanup(func() { Logf = saved })

	var global []string
	SetLogger(func(format string, v ...any) {
		global = append(global, fmt.Sprintf(format, v...))
	})
	traverse := func(cfg Config) {
		t.Helper()
		tr, err := New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tr.Traverse(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	traverse(Config{Vector: src, Rasters: []raster.Raster{grid}, Threshold: DefaultThreshold})
	if len(global) != 1 || !strings.HasPrefix(global[0], "starspan: skipping feature 1:") {
		t.Errorf("package logger got %q", global)
	}

	var local []string
	traverse(Config{
		Vector:    src,
		Rasters:   []raster.Raster{grid},
		Threshold: DefaultThreshold,
		Logf: func(format string, v ...any) {
			local = append(local, fmt.Sprintf(format, v...))
		},
	})
	if len(local) != 1 || len(global) != 1 {
		t.Errorf("config logger got %q, package logger got %q", local, global)
	}

	SetLogger(nil)
	traverse(Config{Vector: src, Rasters: []raster.Raster{grid}, Threshold: DefaultThreshold})
	if len(global) != 1 {
		t.Errorf("disabled logger still received %q", global[1:])
	}
}

func TestOutsideRaster(t *testing.T) {
	grid := testGrid(t, "dem", 0, 10, 10, 10, 1)

	// a line far longer than the grid is wide, crossing row 5
	long := vector.NewLineString(vec.Vec2{X: -1e9, Y: 4.5}, vec.Vec2{X: 1e9, Y: 4.5})
	rec, _ := runConfig(t, Config{Vector: layer(feature(1, long)), Rasters: []raster.Raster{grid}})
	var want [][2]int
	for col := range 10 {
		want = append(want, [2]int{col, 5})
	}
	if d := cmp.Diff(want, rec.pixels()); d != "" {
		t.Errorf("line (-want +got):\n%s", d)
	}

	// the left half of the polygon lies outside the grid
	rec, _ = runConfig(t, Config{Vector: layer(feature(2, vector.Rect(-5, 2, 5, 8))), Rasters: []raster.Raster{grid}})
	cells := uniqueCells(t, rec.pixels())
	if len(cells) != 30 {
		t.Errorf("polygon: got %d cells, want 30", len(cells))
	}
	for c := range cells {
		if c[0] < 0 || c[0] > 4 || c[1] < 2 || c[1] > 7 {
			t.Errorf("polygon: unexpected cell %v", c)
		}
	}

	// the work done depends on the cells inside the grid only
	allocs := func(g vector.Geometry) float64 {
		tr, err := New(Config{
			Vector:    layer(feature(1, g)),
			Rasters:   []raster.Raster{grid},
			Threshold: DefaultThreshold,
			Observers: []Observer{NopObserver{}},
		})
		if err != nil {
			t.Fatal(err)
		}
		return testing.AllocsPerRun(5, func() {
			if _, err := tr.Traverse(context.Background()); err != nil {
				t.Fatal(err)
			}
		})
	}
	short := allocs(vector.NewLineString(vec.Vec2{X: -1, Y: 4.5}, vec.Vec2{X: 11, Y: 4.5}))
	if got := allocs(long); got > short+2 {
		t.Errorf("long line: %g allocations, short line %g", got, short)
	}
}
