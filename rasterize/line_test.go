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

package rasterize

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

type cell struct{ Col, Row int }

// recordCells returns a CellFunc which appends the cells of an identity
// grid to *out.
func recordCells(out *[]cell) CellFunc {
	return func(x, y float64) error {
		*out = append(*out, cell{int(math.Floor(x)), int(math.Floor(y))})
		return nil
	}
}

func mustLine(t *testing.T, threshold float64) *LineRasterizer {
	t.Helper()
	l, err := NewLineRasterizer(matrix.Identity, threshold)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLineHorizontal(t *testing.T) {
	l := mustLine(t, 0.5)
	var got []cell
	if err := l.Line(0.5, 0.5, 4.5, 0.5, true, recordCells(&got)); err != nil {
		t.Fatal(err)
	}
	want := []cell{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("cells (-want +got):\n%s", d)
	}
}

func TestLineCases(t *testing.T) {
	cases := []struct {
		name           string
		x1, y1, x2, y2 float64
		threshold      float64
		last           bool
		want           []cell
	}{
		{"degenerate", 2.3, 7.9, 2.3, 7.9, 1, false, []cell{{2, 7}}},
		{"degenerate last", 2.3, 7.9, 2.3, 7.9, 0.5, true, []cell{{2, 7}}},
		{"backwards", 4.5, 1.5, 0.5, 1.5, 0.5, false, []cell{{4, 1}, {3, 1}, {2, 1}, {1, 1}, {0, 1}}},
		{"vertical", 3.5, 0.2, 3.5, 3.8, 0.5, false, []cell{{3, 0}, {3, 1}, {3, 2}, {3, 3}}},
		{"diagonal through corners", 0, 0, 3, 3, 0.5, false, []cell{{0, 0}, {1, 1}, {2, 2}}},
		{"grid line, right", 0, 2, 3, 2, 0.5, false, []cell{{0, 2}, {1, 2}, {2, 2}}},
		{"grid line, left", 3, 2, 0, 2, 0.5, false, []cell{{2, 1}, {1, 1}, {0, 1}}},
		{"grid line, down", 2, 0, 2, 3, 0.5, false, []cell{{1, 0}, {1, 1}, {1, 2}}},
		{"grid line, up", 2, 3, 2, 0, 0.5, false, []cell{{2, 2}, {2, 1}, {2, 0}}},
		{"short tail dropped", 0.5, 0.5, 1.2, 0.5, 0.5, false, []cell{{0, 0}}},
		{"short tail flushed", 0.5, 0.5, 1.2, 0.5, 0.5, true, []cell{{0, 0}, {1, 0}}},
		{"full cells only", 0.5, 0.5, 3.5, 0.5, 1, false, []cell{{1, 0}, {2, 0}}},
		{"shallow", 0.5, 0.5, 4.5, 1.5, 0.5, false, []cell{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {3, 1}, {4, 1}}},
		{"shallow, strict", 0.5, 0.5, 4.5, 1.5, 0.75, false, []cell{{1, 0}, {3, 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := mustLine(t, tc.threshold)
			var got []cell
			if err := l.Line(tc.x1, tc.y1, tc.x2, tc.y2, tc.last, recordCells(&got)); err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("cells (-want +got):\n%s", d)
			}
		})
	}
}

func TestLineChain(t *testing.T) {
	l := mustLine(t, 0.5)

	// coverage of cell 1 is split between two segments
	var chained []cell
	if err := l.Chain(0.5, 0.5, 1.2, 0.5, false, recordCells(&chained)); err != nil {
		t.Fatal(err)
	}
	if err := l.Chain(1.2, 0.5, 1.5, 0.5, false, recordCells(&chained)); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]cell{{0, 0}, {1, 0}}, chained); d != "" {
		t.Errorf("chained (-want +got):\n%s", d)
	}

	// a new Line does not see the earlier coverage
	var fresh []cell
	if err := l.Line(1.2, 0.5, 1.5, 0.5, false, recordCells(&fresh)); err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 0 {
		t.Errorf("fresh line reported %v", fresh)
	}

	// a cell reached again by the next segment is not reported twice
	var corner []cell
	l.Reset()
	_ = l.Chain(0.5, 0.5, 2.5, 0.5, false, recordCells(&corner))
	_ = l.Chain(2.5, 0.5, 2.5, 2.5, false, recordCells(&corner))
	_ = l.Chain(2.5, 2.5, 2.5, 2.5, true, recordCells(&corner))
	want := []cell{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}}
	if d := cmp.Diff(want, corner); d != "" {
		t.Errorf("corner (-want +got):\n%s", d)
	}
}

// TestLineProperties checks random segments: no cell is reported twice in
// a row, the cells move monotonically along the dominant axis, and raising
// the threshold never adds cells.
func TestLineProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	thresholds := []float64{0.05, 0.25, 0.5, 0.75, 1}

	for range 500 {
		x1, y1 := rng.Float64()*40-20, rng.Float64()*40-20
		x2, y2 := x1+rng.NormFloat64()*8, y1+rng.NormFloat64()*8
		dx, dy := x2-x1, y2-y1

		var prev map[cell]bool
		for _, th := range thresholds {
			l := mustLine(t, th)
			var cells []cell
			if err := l.Line(x1, y1, x2, y2, false, recordCells(&cells)); err != nil {
				t.Fatal(err)
			}

			for i := 1; i < len(cells); i++ {
				a, b := cells[i-1], cells[i]
				if a == b {
					t.Fatalf("(%g,%g)-(%g,%g): %v reported twice", x1, y1, x2, y2, a)
				}
				var step float64
				if math.Abs(dx) >= math.Abs(dy) {
					step = float64(b.Col-a.Col) * dx
				} else {
					step = float64(b.Row-a.Row) * dy
				}
				if step < 0 {
					t.Fatalf("(%g,%g)-(%g,%g): %v → %v runs backwards", x1, y1, x2, y2, a, b)
				}
			}

			set := make(map[cell]bool, len(cells))
			for _, c := range cells {
				set[c] = true
				if prev != nil && !prev[c] {
					t.Fatalf("(%g,%g)-(%g,%g): threshold %g adds %v", x1, y1, x2, y2, th, c)
				}
			}
			prev = set
		}
	}
}

func TestLineClip(t *testing.T) {
	cases := []struct {
		name           string
		x1, y1, x2, y2 float64
		want           []cell
	}{
		{"through", -1e9, 5.5, 1e9, 5.5, []cell{{0, 5}, {1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}, {6, 5}, {7, 5}, {8, 5}, {9, 5}}},
		{"backwards", 1e9, 2.5, -1e9, 2.5, []cell{{9, 2}, {8, 2}, {7, 2}, {6, 2}, {5, 2}, {4, 2}, {3, 2}, {2, 2}, {1, 2}, {0, 2}}},
		{"outside", -100, 5.5, -50, 5.5, nil},
		{"outside, vertical", 12.5, -3, 12.5, 20, nil},
		{"entering", -3, 0.5, 1.2, 0.5, []cell{{0, 0}, {1, 0}}},
		{"leaving", 8.5, 0.5, 12, 0.5, []cell{{8, 0}, {9, 0}}},
		{"corner only", -1, 1, 1, -1, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := mustLine(t, 0.5)
			l.SetClip(rect.Rect{URx: 10, URy: 10})
			var got []cell
			if err := l.Line(tc.x1, tc.y1, tc.x2, tc.y2, true, recordCells(&got)); err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); d != "" {
				t.Errorf("cells (-want +got):\n%s", d)
			}
		})
	}
}

// TestLineClipAgrees checks that clipping only removes cells outside the
// clip rectangle.
func TestLineClipAgrees(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	clip := rect.Rect{LLx: -5, LLy: -3, URx: 7, URy: 6}
	inside := func(c cell) bool {
		return float64(c.Col) >= clip.LLx && float64(c.Col) < clip.URx &&
			float64(c.Row) >= clip.LLy && float64(c.Row) < clip.URy
	}

	for range 500 {
		x1, y1 := rng.Float64()*40-20, rng.Float64()*40-20
		x2, y2 := rng.Float64()*40-20, rng.Float64()*40-20
		th := 0.1 + 0.9*rng.Float64()

		var all, clipped []cell
		l := mustLine(t, th)
		if err := l.Line(x1, y1, x2, y2, true, recordCells(&all)); err != nil {
			t.Fatal(err)
		}
		l.SetClip(clip)
		if err := l.Line(x1, y1, x2, y2, true, recordCells(&clipped)); err != nil {
			t.Fatal(err)
		}

		var want []cell
		for _, c := range all {
			if inside(c) {
				want = append(want, c)
			}
		}
		if d := cmp.Diff(want, clipped, cmpopts.EquateEmpty()); d != "" {
			t.Fatalf("(%g,%g)-(%g,%g) at %g (-want +got):\n%s", x1, y1, x2, y2, th, d)
		}
	}
}

func TestRing(t *testing.T) {
	cases := []struct {
		name      string
		pts       []vec.Vec2
		threshold float64
		want      []cell
	}{
		{
			// the start cell gets 0.4 from the first and from the last segment
			name:      "start cell combined",
			pts:       []vec.Vec2{{X: 0.6, Y: 0.2}, {X: 3.5, Y: 0.2}, {X: 3.5, Y: 0.8}},
			threshold: 0.75,
			want:      []cell{{1, 0}, {2, 0}, {3, 0}, {2, 0}, {1, 0}, {0, 0}},
		},
		{
			name:      "start cell below threshold",
			pts:       []vec.Vec2{{X: 0.8, Y: 0.2}, {X: 3.5, Y: 0.2}, {X: 3.5, Y: 0.8}},
			threshold: 0.75,
			want:      []cell{{1, 0}, {2, 0}, {3, 0}, {2, 0}, {1, 0}},
		},
		{
			name:      "inside one cell",
			pts:       []vec.Vec2{{X: 4.2, Y: 4.2}, {X: 4.4, Y: 4.2}, {X: 4.3, Y: 4.4}},
			threshold: 0.5,
			want:      []cell{{4, 4}},
		},
		{
			name:      "single point",
			pts:       []vec.Vec2{{X: 2.5, Y: 7.5}},
			threshold: 0.5,
			want:      []cell{{2, 7}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := mustLine(t, tc.threshold)
			var got []cell
			if err := l.Ring(tc.pts, recordCells(&got)); err != nil {
				t.Fatal(err)
			}
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("cells (-want +got):\n%s", d)
			}
		})
	}
}

func TestRingClip(t *testing.T) {
	l := mustLine(t, 0.5)
	l.SetClip(rect.Rect{URx: 10, URy: 10})

	pts := []vec.Vec2{{X: -1e9, Y: 2.5}, {X: 1e9, Y: 2.5}, {X: 1e9, Y: 7.5}, {X: -1e9, Y: 7.5}}
	var got []cell
	if err := l.Ring(pts, recordCells(&got)); err != nil {
		t.Fatal(err)
	}
	var want []cell
	for col := range 10 {
		want = append(want, cell{col, 2})
	}
	for col := 9; col >= 0; col-- {
		want = append(want, cell{col, 7})
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("cells (-want +got):\n%s", d)
	}
}

func TestLineWorldCoordinates(t *testing.T) {
	// 30m cells, upper left corner at (500000, 4200000)
	toWorld := raster.NorthUp(500000, 4200000, 30)
	toGrid, err := raster.Invert(toWorld)
	if err != nil {
		t.Fatal(err)
	}
	l, err := NewLineRasterizer(toGrid, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	type point struct{ X, Y float64 }
	var got []point
	err = l.Line(500015, 4199985, 500075, 4199985, false, func(x, y float64) error {
		got = append(got, point{x, y})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []point{{500015, 4199985}, {500045, 4199985}, {500075, 4199985}}
	if d := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-6)); d != "" {
		t.Errorf("centers (-want +got):\n%s", d)
	}
}

func TestLineErrors(t *testing.T) {
	if _, err := NewLineRasterizer(matrix.Identity, 0); !errors.Is(err, ErrThreshold) {
		t.Errorf("threshold 0: %v", err)
	}
	if _, err := NewLineRasterizer(matrix.Identity, 1.5); !errors.Is(err, ErrThreshold) {
		t.Errorf("threshold 1.5: %v", err)
	}
	if _, err := NewLineRasterizer(matrix.Matrix{1, 1, 1, 1, 0, 0}, 0.5); !errors.Is(err, raster.ErrSingular) {
		t.Errorf("singular transform: %v", err)
	}

	l := mustLine(t, 0.5)
	noop := func(x, y float64) error { return nil }
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := l.Line(0, 0, bad, 1, true, noop)
		if !errors.Is(err, vector.ErrInvalidGeometry) {
			t.Errorf("coordinate %g: got %v", bad, err)
		}
	}

	stop := errors.New("stop")
	calls := 0
	err := l.Line(0.5, 0.5, 9.5, 0.5, true, func(x, y float64) error {
		calls++
		if calls == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 3 {
		t.Errorf("callback error: %v after %d calls", err, calls)
	}
}
