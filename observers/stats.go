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

package observers

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stat selects a per-feature statistic.
type Stat int

// Supported statistics.
const (
	Sum Stat = iota
	Min
	Max
	Avg
	Var // sample variance
	Stdev
	Mode   // most frequent value, the smallest one on ties
	Median // mean of the middle pair for even counts
	Nulls  // number of cells without data
)

var statNames = [...]string{"sum", "min", "max", "avg", "var", "stdev", "mode", "median", "nulls"}

func (s Stat) String() string {
	if s < 0 || int(s) >= len(statNames) {
		return "Stat(" + strconv.Itoa(int(s)) + ")"
	}
	return statNames[s]
}

// ParseStat converts a statistic name, like "avg" or "STDEV", to a Stat.
func ParseStat(name string) (Stat, error) {
	for i, n := range statNames {
		if strings.EqualFold(name, n) {
			return Stat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown statistic %q", name)
}

// AllStats lists every supported statistic.
func AllStats() []Stat {
	all := make([]Stat, len(statNames))
	for i := range all {
		all[i] = Stat(i)
	}
	return all
}

// Stats writes one CSV record per feature with at least one cell:
//
//	FID, <fields>, numPixels, <stat>_<raster>_b<band>...
//
// Cells without data only count towards NULLS.
type Stats struct {
	w      *csv.Writer
	stats  []Stat
	noData string

	fields []string
	bands  int

	current *vector.Feature
	pixels  int
	values  [][]float64 // valid values, per band
	nulls   []int
	record  []string
}

var _ starspan.Observer = (*Stats)(nil)

// NewStats returns an observer computing the given statistics. Statistics
// of features without valid values are written as noData.
func NewStats(w io.Writer, stats []Stat, noData string) *Stats {
	return &Stats{
		w:      csv.NewWriter(w),
		stats:  slices.Clone(stats),
		noData: noData,
	}
}

// Init writes the header line.
func (s *Stats) Init(info *starspan.GlobalInfo) error {
	for _, st := range s.stats {
		if st < 0 || int(st) >= len(statNames) {
			return fmt.Errorf("stats: unknown statistic %d", st)
		}
	}
	s.fields = info.Fields
	s.bands = info.BandCount()
	s.values = make([][]float64, s.bands)
	s.nulls = make([]int, s.bands)

	header := append([]string{"FID"}, info.Fields...)
	header = append(header, "numPixels")
	for _, st := range s.stats {
		header = append(header, bandColumns(info, st.String()+"_")...)
	}
	return s.w.Write(header)
}

// IsSimple implements starspan.Observer.
func (s *Stats) IsSimple() bool { return false }

// IntersectionFound writes the record of the previous feature.
func (s *Stats) IntersectionFound(f *vector.Feature) error {
	if err := s.flush(); err != nil {
		return err
	}
	s.current = f
	return nil
}

// AddPixel collects the band values of a cell.
func (s *Stats) AddPixel(ev *starspan.Event) error {
	s.pixels++
	i := 0
	for _, smp := range ev.Samples {
		for b, v := range smp.Values {
			if smp.Valid[b] {
				s.values[i] = append(s.values[i], v)
			} else {
				s.nulls[i]++
			}
			i++
		}
	}
	return nil
}

// End writes the record of the last feature and flushes the output.
func (s *Stats) End() error {
	err := s.flush()
	s.w.Flush()
	if err != nil {
		return err
	}
	return s.w.Error()
}

func (s *Stats) flush() error {
	if s.current == nil {
		return nil
	}
	defer s.reset()
	if s.pixels == 0 {
		return nil
	}

	rec := featureColumns(s.record[:0], s.current, s.fields)
	rec = append(rec, strconv.Itoa(s.pixels))
	for _, st := range s.stats {
		for b := range s.bands {
			if st == Nulls {
				rec = append(rec, strconv.Itoa(s.nulls[b]))
				continue
			}
			v, ok := compute(st, s.values[b])
			if ok {
				rec = append(rec, formatFloat(v))
			} else {
				rec = append(rec, s.noData)
			}
		}
	}
	s.record = rec
	return s.w.Write(rec)
}

func (s *Stats) reset() {
	s.current = nil
	s.pixels = 0
	for b := range s.values {
		s.values[b] = s.values[b][:0]
		s.nulls[b] = 0
	}
}

// compute evaluates a statistic. ok is false if x has too few values. x
// may be reordered.
func compute(st Stat, x []float64) (v float64, ok bool) {
	n := len(x)
	if n == 0 {
		return 0, false
	}
	switch st {
	case Sum:
		return floats.Sum(x), true
	case Min:
		return floats.Min(x), true
	case Max:
		return floats.Max(x), true
	case Avg:
		return stat.Mean(x, nil), true
	case Var:
		if n < 2 {
			return 0, false
		}
		return stat.Variance(x, nil), true
	case Stdev:
		if n < 2 {
			return 0, false
		}
		return stat.StdDev(x, nil), true
	case Mode:
		slices.Sort(x)
		_, count := stat.Mode(x, nil)
		return smallestRun(x, int(count)), true
	case Median:
		slices.Sort(x)
		if n%2 == 1 {
			return x[n/2], true
		}
		return (x[n/2-1] + x[n/2]) / 2, true
	}
	return math.NaN(), false
}

// smallestRun returns the first value of sorted x which occurs count
// times.
func smallestRun(x []float64, count int) float64 {
	for i := 0; i < len(x); {
		j := i + 1
		for j < len(x) && x[j] == x[i] {
			j++
		}
		if j-i >= count {
			return x[i]
		}
		i = j
	}
	return x[0]
}
