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

// Package config reads the JSON run files of the starspan command.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/observers"
	"github.com/Ecotrust/starspan/rasterize"
)

// maxFileSize limits the size of run files.
const maxFileSize = 1 * 1024 * 1024

// Run describes one invocation of the starspan command. Relative paths
// are interpreted relative to the directory of the run file.
type Run struct {
	Vector  string   `json:"vector"`
	CRS     string   `json:"crs,omitempty"`
	Rasters []Raster `json:"rasters"`

	Threshold *float64 `json:"threshold,omitempty"`
	Interior  string   `json:"interior,omitempty"`  // "centers" or "coverage"
	FillRule  string   `json:"fill_rule,omitempty"` // "evenodd" or "nonzero"
	Buffer    float64  `json:"buffer,omitempty"`
	Box       *Box     `json:"box,omitempty"`

	FID   *int64 `json:"fid,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	// FIDs and Parallel select a batch run, one traversal per FID.
	FIDs     []int64 `json:"fids,omitempty"`
	Parallel int     `json:"parallel,omitempty"`

	NoSpatialFilter bool `json:"no_spatial_filter,omitempty"`
	Verbose         bool `json:"verbose,omitempty"`

	Outputs Outputs `json:"outputs"`
}

// Raster is one input raster.
type Raster struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"` // defaults to the file name

	// GeoTransform uses the GDAL coefficient order.
	GeoTransform *[6]float64 `json:"geotransform"`

	// NoData applies to every band.
	NoData *float64 `json:"nodata,omitempty"`
}

// Box replaces every geometry by a box of the given size.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Outputs selects the observers of a run. Nil or empty entries are
// disabled.
type Outputs struct {
	CSV          *CSVOutput        `json:"csv,omitempty"`
	Stats        *StatsOutput      `json:"stats,omitempty"`
	SQLite       string            `json:"sqlite,omitempty"`
	Dump         string            `json:"dump,omitempty"`
	MiniRasters  *MiniRasterOutput `json:"minirasters,omitempty"`
	CountByClass string            `json:"count_by_class,omitempty"`
}

// CSVOutput configures the CSV observer.
type CSVOutput struct {
	Path     string `json:"path"`
	NoData   string `json:"nodata,omitempty"`
	NoColRow bool   `json:"no_col_row,omitempty"`
	NoXY     bool   `json:"no_xy,omitempty"`
}

// StatsOutput configures the statistics observer.
type StatsOutput struct {
	Path   string   `json:"path"`
	Stats  []string `json:"stats,omitempty"` // defaults to all
	NoData string   `json:"nodata,omitempty"`
}

// MiniRasterOutput configures the mini-raster observer.
type MiniRasterOutput struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix,omitempty"`
	Raster int    `json:"raster,omitempty"`
	Band   int    `json:"band,omitempty"`
	Fill   uint16 `json:"fill,omitempty"`
}

// Load reads a run file, fills in defaults and validates the result.
func Load(path string) (*Run, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	run := &Run{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(run); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	run.Defaults()
	run.resolve(filepath.Dir(cleanPath))
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return run, nil
}

// Defaults fills in unset optional values.
func (r *Run) Defaults() {
	if r.Threshold == nil {
		th := starspan.DefaultThreshold
		r.Threshold = &th
	}
	if r.Interior == "" {
		r.Interior = starspan.InteriorCenters.String()
	}
	if r.FillRule == "" {
		r.FillRule = "evenodd"
	}
	if r.Parallel <= 0 {
		r.Parallel = 1
	}
	for i := range r.Rasters {
		if r.Rasters[i].Name == "" {
			base := filepath.Base(r.Rasters[i].Path)
			r.Rasters[i].Name = base[:len(base)-len(filepath.Ext(base))]
		}
	}
	if s := r.Outputs.Stats; s != nil && len(s.Stats) == 0 {
		for _, st := range observers.AllStats() {
			s.Stats = append(s.Stats, st.String())
		}
	}
}

// resolve makes relative paths relative to dir.
func (r *Run) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	abs(&r.Vector)
	for i := range r.Rasters {
		abs(&r.Rasters[i].Path)
	}
	o := &r.Outputs
	if o.CSV != nil {
		abs(&o.CSV.Path)
	}
	if o.Stats != nil {
		abs(&o.Stats.Path)
	}
	abs(&o.SQLite)
	abs(&o.Dump)
	if o.MiniRasters != nil {
		abs(&o.MiniRasters.Dir)
	}
	abs(&o.CountByClass)
}

// Validate checks the run for errors which can be detected without
// opening any file.
func (r *Run) Validate() error {
	if r.Vector == "" {
		return errors.New("vector is required")
	}
	if len(r.Rasters) == 0 {
		return errors.New("at least one raster is required")
	}
	for i, ras := range r.Rasters {
		if ras.Path == "" {
			return fmt.Errorf("raster %d: path is required", i)
		}
		if ras.GeoTransform == nil {
			return fmt.Errorf("raster %d: geotransform is required", i)
		}
	}
	if r.Threshold != nil && !(*r.Threshold > 0 && *r.Threshold <= 1) {
		return fmt.Errorf("threshold must be in (0, 1], got %g", *r.Threshold)
	}
	if _, err := r.InteriorMode(); err != nil {
		return err
	}
	if _, err := r.Rule(); err != nil {
		return err
	}
	if r.Buffer < 0 {
		return fmt.Errorf("buffer must be non-negative, got %g", r.Buffer)
	}
	if r.Box != nil && !(r.Box.Width > 0 && r.Box.Height > 0) {
		return fmt.Errorf("box must have positive size, got %gx%g", r.Box.Width, r.Box.Height)
	}
	if r.Value != "" && r.Field == "" {
		return errors.New("value requires field")
	}
	if r.FID != nil && (r.Field != "" || len(r.FIDs) > 0) {
		return errors.New("fid cannot be combined with field or fids")
	}
	if len(r.FIDs) > 0 && r.Field != "" {
		return errors.New("fids cannot be combined with field")
	}

	o := r.Outputs
	if o.CSV == nil && o.Stats == nil && o.SQLite == "" && o.Dump == "" &&
		o.MiniRasters == nil && o.CountByClass == "" {
		return errors.New("no outputs configured")
	}
	if o.CSV != nil && o.CSV.Path == "" {
		return errors.New("outputs.csv: path is required")
	}
	if o.Stats != nil {
		if o.Stats.Path == "" {
			return errors.New("outputs.stats: path is required")
		}
		if _, err := o.Stats.Parse(); err != nil {
			return fmt.Errorf("outputs.stats: %w", err)
		}
	}
	if m := o.MiniRasters; m != nil {
		if m.Dir == "" {
			return errors.New("outputs.minirasters: dir is required")
		}
		if m.Raster < 0 || m.Raster >= len(r.Rasters) {
			return fmt.Errorf("outputs.minirasters: no raster %d", m.Raster)
		}
	}
	return nil
}

// InteriorMode converts the interior setting.
func (r *Run) InteriorMode() (starspan.Interior, error) {
	for _, mode := range []starspan.Interior{starspan.InteriorCenters, starspan.InteriorCoverage} {
		if r.Interior == mode.String() {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown interior mode %q", r.Interior)
}

// Rule converts the fill rule setting.
func (r *Run) Rule() (rasterize.FillRule, error) {
	switch r.FillRule {
	case "evenodd":
		return rasterize.EvenOdd, nil
	case "nonzero":
		return rasterize.NonZero, nil
	default:
		return 0, fmt.Errorf("unknown fill rule %q", r.FillRule)
	}
}

// Parse converts the statistic names.
func (s *StatsOutput) Parse() ([]observers.Stat, error) {
	stats := make([]observers.Stat, len(s.Stats))
	for i, name := range s.Stats {
		st, err := observers.ParseStat(name)
		if err != nil {
			return nil, err
		}
		stats[i] = st
	}
	return stats, nil
}

// Apply copies the traversal settings into cfg. Inputs and observers are
// left to the caller.
func (r *Run) Apply(cfg *starspan.Config) error {
	interior, err := r.InteriorMode()
	if err != nil {
		return err
	}
	rule, err := r.Rule()
	if err != nil {
		return err
	}
	if r.Threshold != nil {
		cfg.Threshold = *r.Threshold
	}
	cfg.Interior = interior
	cfg.FillRule = rule
	cfg.Buffer = r.Buffer
	if r.Box != nil {
		cfg.Box = &starspan.Box{Width: r.Box.Width, Height: r.Box.Height}
	}
	cfg.DesiredFID = r.FID
	cfg.DesiredField = r.Field
	cfg.DesiredValue = r.Value
	cfg.DisableSpatialFilter = r.NoSpatialFilter
	cfg.CRS = r.CRS
	cfg.Verbose = r.Verbose
	return nil
}
