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

// Command starspan extracts raster values under vector features.
//
// Usage:
//
//	starspan -config run.json [-summary]
//
// The run file names the GeoJSON features, the TIFF rasters with their
// geotransforms, the traversal settings and the outputs to write.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/internal/config"
	"github.com/Ecotrust/starspan/observers"
	"github.com/Ecotrust/starspan/raster"
	"github.com/Ecotrust/starspan/vector"
)

func main() {
	configPath := flag.String("config", "", "path of the JSON run file")
	summary := flag.Bool("summary", false, "print a summary of the run")
	flag.Parse()
	if *configPath == "" || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	run, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%s: %v", *configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := execute(ctx, run)
	if s != nil && *summary {
		s.Report(os.Stdout)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// execute loads the inputs of run, traverses them and writes the
// configured outputs.
func execute(ctx context.Context, run *config.Run) (*starspan.Summary, error) {
	layer, err := vector.LoadGeoJSON(run.Vector)
	if err != nil {
		return nil, err
	}
	rasters, err := loadRasters(run.Rasters)
	if err != nil {
		return nil, err
	}

	cfg := starspan.Config{
		Vector:  layer,
		Rasters: rasters,
	}
	if err := run.Apply(&cfg); err != nil {
		return nil, err
	}

	if len(run.FIDs) > 0 {
		var mu sync.Mutex
		var outs []*outputs
		newObservers := func(fid int64) ([]starspan.Observer, error) {
			o, err := openOutputs(run.Outputs, "_"+strconv.FormatInt(fid, 10))
			if err != nil {
				return nil, err
			}
			mu.Lock()
			outs = append(outs, o)
			mu.Unlock()
			return o.observers, nil
		}
		s, err := starspan.TraverseEach(ctx, cfg, run.FIDs, newObservers, run.Parallel)
		for _, o := range outs {
			err = errors.Join(err, o.Close())
		}
		return s, err
	}

	o, err := openOutputs(run.Outputs, "")
	if err != nil {
		return nil, err
	}
	cfg.Observers = o.observers
	t, err := starspan.New(cfg)
	if err != nil {
		return nil, errors.Join(err, o.Close())
	}
	s, err := t.Traverse(ctx)
	return s, errors.Join(err, o.Close())
}

func loadRasters(cfgs []config.Raster) ([]raster.Raster, error) {
	rasters := make([]raster.Raster, len(cfgs))
	for i, rc := range cfgs {
		g, err := loadRaster(rc)
		if err != nil {
			return nil, err
		}
		rasters[i] = g
	}
	return rasters, nil
}

func loadRaster(rc config.Raster) (*raster.Grid, error) {
	fd, err := os.Open(rc.Path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	g, err := raster.ReadTIFF(fd, rc.Name, raster.GeoTransform(*rc.GeoTransform))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rc.Path, err)
	}
	if rc.NoData != nil {
		for b := range g.BandCount() {
			g.SetNoData(b, *rc.NoData)
		}
	}
	return g, nil
}

// outputs holds the observers of one run and the resources they write to.
type outputs struct {
	observers []starspan.Observer
	closers   []io.Closer
}

// openOutputs creates the configured observers. suffix is inserted before
// the extension of every output file name.
func openOutputs(cfg config.Outputs, suffix string) (_ *outputs, err error) {
	o := &outputs{}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()

	create := func(path string) (io.Writer, error) {
		fd, err := os.Create(withSuffix(path, suffix))
		if err != nil {
			return nil, err
		}
		o.closers = append(o.closers, fd)
		return fd, nil
	}

	if c := cfg.CSV; c != nil {
		w, err := create(c.Path)
		if err != nil {
			return nil, err
		}
		o.add(observers.NewCSV(w, observers.CSVOptions{
			NoColRow: c.NoColRow,
			NoXY:     c.NoXY,
			NoData:   c.NoData,
		}))
	}
	if s := cfg.Stats; s != nil {
		stats, err := s.Parse()
		if err != nil {
			return nil, err
		}
		w, err := create(s.Path)
		if err != nil {
			return nil, err
		}
		o.add(observers.NewStats(w, stats, s.NoData))
	}
	if cfg.SQLite != "" {
		db, err := observers.OpenSQLite(withSuffix(cfg.SQLite, suffix))
		if err != nil {
			return nil, err
		}
		o.closers = append(o.closers, db)
		o.add(db)
	}
	if cfg.Dump != "" {
		w, err := create(cfg.Dump)
		if err != nil {
			return nil, err
		}
		o.add(observers.NewDump(w))
	}
	if m := cfg.MiniRasters; m != nil {
		o.add(observers.NewMiniRaster(observers.MiniRasterOptions{
			Dir:    m.Dir,
			Prefix: m.Prefix + suffixPrefix(suffix),
			Raster: m.Raster,
			Band:   m.Band,
			Fill:   m.Fill,
		}))
	}
	if cfg.CountByClass != "" {
		w, err := create(cfg.CountByClass)
		if err != nil {
			return nil, err
		}
		o.add(observers.NewCountByClass(w))
	}
	return o, nil
}

func (o *outputs) add(obs starspan.Observer) {
	o.observers = append(o.observers, obs)
}

// Close releases all resources, in reverse order of creation.
func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i].Close())
	}
	o.closers = nil
	return errors.Join(errs...)
}

func withSuffix(path, suffix string) string {
	if suffix == "" {
		return path
	}
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + suffix + ext
}

// suffixPrefix turns a file name suffix like "_17" into a mini-raster
// file prefix like "17_".
func suffixPrefix(suffix string) string {
	if suffix == "" {
		return ""
	}
	return suffix[1:] + "_"
}
