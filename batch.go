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
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ObserverFactory creates the observers for the run of one feature.
type ObserverFactory func(fid int64) ([]Observer, error)

// TraverseEach runs one traversal per FID, restricted to that feature,
// with at most parallel runs at a time (no limit if parallel <= 0). Each
// run gets fresh observers from newObservers; cfg.Observers and
// cfg.DesiredFID are ignored. The first error cancels the remaining runs.
//
// The returned summary adds up the counts of all runs which completed.
func TraverseEach(ctx context.Context, cfg Config, fids []int64, newObservers ObserverFactory, parallel int) (*Summary, error) {
	start := time.Now()

	cfg.Observers = nil
	cfg.DesiredFID = nil
	cfg.DesiredField, cfg.DesiredValue = "", ""
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	summaries := make([]*Summary, len(fids))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, fid := range fids {
		g.Go(func() error {
			obs, err := newObservers(fid)
			if err != nil {
				return &FeatureError{FID: fid, Err: err}
			}
			c := cfg
			c.Observers = obs
			c.DesiredFID = &fid
			t, err := New(c)
			if err != nil {
				return err
			}
			s, err := t.Traverse(ctx)
			summaries[i] = s
			if err != nil {
				return fmt.Errorf("run for feature %d: %w", fid, err)
			}
			return nil
		})
	}
	err := g.Wait()

	total := newSummary(uuid.New())
	for _, s := range summaries {
		if s != nil {
			total.add(s)
		}
	}
	total.Elapsed = time.Since(start)
	return total, err
}
