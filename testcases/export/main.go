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

// Command export writes all traversal scenarios, together with the cells
// the current implementation finds for them, to testdata/scenarios.json.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/Ecotrust/starspan/rasterize"
	"github.com/Ecotrust/starspan/testcases"
)

func main() {
	var out struct {
		Scenarios []jsonScenario `json:"scenarios"`
	}

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, sc := range testcases.All[category] {
			js, err := toJSON(category, sc)
			if err != nil {
				panic(fmt.Errorf("%s_%s: %w", category, sc.Name, err))
			}
			out.Scenarios = append(out.Scenarios, js)
		}
	}

	if err := os.MkdirAll("testdata", 0o755); err != nil {
		panic(err)
	}
	f, err := os.Create("testdata/scenarios.json")
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		panic(err)
	}
}

type jsonScenario struct {
	Name      string          `json:"name"`
	Cols      int             `json:"cols"`
	Rows      int             `json:"rows"`
	Transform [6]float64      `json:"transform"`
	Geometry  json.RawMessage `json:"geometry"`
	Threshold float64         `json:"threshold,omitempty"`
	Interior  string          `json:"interior"`
	FillRule  string          `json:"fill_rule"`
	Buffer    float64         `json:"buffer,omitempty"`
	Cells     [][2]int        `json:"cells"`
	Expected  [][2]int        `json:"expected,omitempty"`
}

func toJSON(category string, sc testcases.Scenario) (jsonScenario, error) {
	geom, err := sc.Geometry.MarshalGeoJSON()
	if err != nil {
		return jsonScenario{}, err
	}
	cells, err := sc.Run(context.Background())
	if err != nil {
		return jsonScenario{}, err
	}

	js := jsonScenario{
		Name:      category + "_" + sc.Name,
		Cols:      sc.Cols,
		Rows:      sc.Rows,
		Transform: [6]float64(sc.GridTransform()),
		Geometry:  geom,
		Threshold: sc.Threshold,
		Interior:  sc.Interior.String(),
		FillRule:  "evenodd",
		Buffer:    sc.Buffer,
		Cells:     cellsToJSON(cells),
	}
	if sc.Rule == rasterize.NonZero {
		js.FillRule = "nonzero"
	}
	if sc.Want != nil {
		js.Expected = cellsToJSON(testcases.Sorted(sc.Want))
	}
	return js, nil
}

func cellsToJSON(cells []testcases.Cell) [][2]int {
	out := make([][2]int, len(cells))
	for i, c := range cells {
		out[i] = [2]int{c.Col, c.Row}
	}
	return out
}
