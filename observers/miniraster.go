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
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
	"golang.org/x/image/tiff"
)

// MiniRasterOptions configures a MiniRaster observer.
type MiniRasterOptions struct {
	// Dir receives the TIFF files and the index.
	Dir string

	// Prefix is prepended to every file name.
	Prefix string

	// Raster and Band select the band written, counting from 0.
	Raster, Band int

	// Fill is stored in cells of the bounding box which were not hit or
	// have no data.
	Fill uint16
}

// MiniRasterEntry describes one written mini-raster. Col and Row locate
// its upper left cell in the source raster.
type MiniRasterEntry struct {
	FID        int64
	File       string
	Col, Row   int
	Cols, Rows int
}

// MiniRaster writes, for every feature, a 16-bit grayscale TIFF of one
// band over the bounding box of the feature's cells. Values are rounded
// and clamped to [0, 65535]. End writes "<prefix>index.csv", listing the
// files in feature order.
type MiniRaster struct {
	opts MiniRasterOptions

	fid   int64
	open  bool
	cells []miniCell
	index []MiniRasterEntry
}

type miniCell struct {
	col, row int
	value    uint16
}

var _ starspan.Observer = (*MiniRaster)(nil)

// NewMiniRaster returns a MiniRaster observer.
func NewMiniRaster(opts MiniRasterOptions) *MiniRaster {
	return &MiniRaster{opts: opts}
}

// Init checks the band selection and creates the output directory.
func (m *MiniRaster) Init(info *starspan.GlobalInfo) error {
	if m.opts.Raster < 0 || m.opts.Raster >= len(info.Rasters) {
		return fmt.Errorf("miniraster: no raster %d", m.opts.Raster)
	}
	if m.opts.Band < 0 || m.opts.Band >= info.Rasters[m.opts.Raster].Bands {
		return fmt.Errorf("miniraster: raster %q has no band %d",
			info.Rasters[m.opts.Raster].Name, m.opts.Band)
	}
	return os.MkdirAll(m.opts.Dir, 0o755)
}

// IsSimple implements starspan.Observer.
func (m *MiniRaster) IsSimple() bool { return false }

// IntersectionFound writes the mini-raster of the previous feature.
func (m *MiniRaster) IntersectionFound(f *vector.Feature) error {
	if err := m.flush(); err != nil {
		return err
	}
	m.fid = f.FID
	m.open = true
	return nil
}

// AddPixel collects a cell of the selected raster.
func (m *MiniRaster) AddPixel(ev *starspan.Event) error {
	s := ev.Samples[m.opts.Raster]
	if !s.InBounds {
		return nil
	}
	v := m.opts.Fill
	if s.Valid[m.opts.Band] {
		v = toGray16(s.Values[m.opts.Band])
	}
	m.cells = append(m.cells, miniCell{s.Col, s.Row, v})
	return nil
}

// End writes the last mini-raster and the index.
func (m *MiniRaster) End() error {
	if err := m.flush(); err != nil {
		return err
	}
	return m.writeIndex()
}

// Index returns the mini-rasters written so far.
func (m *MiniRaster) Index() []MiniRasterEntry {
	return m.index
}

func (m *MiniRaster) flush() error {
	if !m.open {
		return nil
	}
	m.open = false
	cells := m.cells
	m.cells = m.cells[:0]
	if len(cells) == 0 {
		return nil
	}

	bounds := image.Rectangle{
		Min: image.Pt(cells[0].col, cells[0].row),
		Max: image.Pt(cells[0].col+1, cells[0].row+1),
	}
	for _, c := range cells[1:] {
		bounds = bounds.Union(image.Rect(c.col, c.row, c.col+1, c.row+1))
	}
	img := image.NewGray16(bounds)
	if m.opts.Fill != 0 {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				img.SetGray16(x, y, color.Gray16{Y: m.opts.Fill})
			}
		}
	}
	for _, c := range cells {
		img.SetGray16(c.col, c.row, color.Gray16{Y: c.value})
	}

	name := m.opts.Prefix + strconv.FormatInt(m.fid, 10) + ".tif"
	if err := writeTIFF(filepath.Join(m.opts.Dir, name), img); err != nil {
		return err
	}
	m.index = append(m.index, MiniRasterEntry{
		FID:  m.fid,
		File: name,
		Col:  bounds.Min.X,
		Row:  bounds.Min.Y,
		Cols: bounds.Dx(),
		Rows: bounds.Dy(),
	})
	return nil
}

func (m *MiniRaster) writeIndex() (err error) {
	fd, err := os.Create(filepath.Join(m.opts.Dir, m.opts.Prefix+"index.csv"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(fd)
	w.Write([]string{"FID", "file", "col", "row", "cols", "rows"})
	for _, e := range m.index {
		w.Write([]string{
			strconv.FormatInt(e.FID, 10), e.File,
			strconv.Itoa(e.Col), strconv.Itoa(e.Row),
			strconv.Itoa(e.Cols), strconv.Itoa(e.Rows),
		})
	}
	w.Flush()
	return w.Error()
}

// writeTIFF encodes img with deflate compression. The image origin is
// discarded.
func writeTIFF(fname string, img *image.Gray16) (err error) {
	fd, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}()
	return tiff.Encode(fd, img, &tiff.Options{Compression: tiff.Deflate})
}

func toGray16(v float64) uint16 {
	v = math.Round(v)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}
