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
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ecotrust/starspan"
	"github.com/Ecotrust/starspan/vector"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite stores the results of traversal runs in an SQLite database. Each
// run is written inside one transaction, which End commits. The status
// column of a run is "finished", or "aborted" together with the error if
// the run failed; the cells recorded up to the failure are kept.
type SQLite struct {
	db *sql.DB

	runID    uuid.UUID
	tx       *sql.Tx
	fid      int64
	abortErr error

	insFeature, insPixel *sql.Stmt
}

var (
	_ starspan.Observer      = (*SQLite)(nil)
	_ starspan.AbortObserver = (*SQLite)(nil)
)

// OpenSQLite opens (or creates) the database at path and brings its
// schema up to date.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Migrate applies all pending schema migrations to db.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed, since that would close db
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	starspan.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// DB returns the underlying database handle.
func (s *SQLite) DB() *sql.DB { return s.db }

// RunID returns the id of the most recent run.
func (s *SQLite) RunID() uuid.UUID { return s.runID }

// Close closes the database.
func (s *SQLite) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// Init starts the transaction of a run and records the run and its
// rasters. On failure the transaction is rolled back.
func (s *SQLite) Init(info *starspan.GlobalInfo) (err error) {
	if s.tx != nil {
		return errors.New("sqlite: run already in progress")
	}
	s.runID = info.RunID
	if s.runID == uuid.Nil {
		s.runID = uuid.New()
	}
	s.abortErr = nil

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		s.tx = tx
	}()

	_, err = tx.Exec(`INSERT INTO runs (id, layer, crs, threshold, started_at) VALUES (?, ?, ?, ?, ?)`,
		s.runID.String(), info.Layer, info.CRS, info.Threshold, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	for i, r := range info.Rasters {
		_, err = tx.Exec(`INSERT INTO rasters (run_id, idx, name, cols, rows, bands) VALUES (?, ?, ?, ?, ?, ?)`,
			s.runID.String(), i, r.Name, r.Cols, r.Rows, r.Bands)
		if err != nil {
			return fmt.Errorf("failed to insert raster %q: %w", r.Name, err)
		}
	}

	s.insFeature, err = tx.Prepare(`INSERT INTO features (run_id, fid, geometry, attributes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	s.insPixel, err = tx.Prepare(`INSERT INTO pixels (run_id, fid, col, row, x, y, raster, band, value) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	return err
}

// Abort implements starspan.AbortObserver.
func (s *SQLite) Abort(err error) {
	s.abortErr = err
}

// IsSimple implements starspan.Observer.
func (s *SQLite) IsSimple() bool { return false }

// IntersectionFound records the feature.
func (s *SQLite) IntersectionFound(f *vector.Feature) error {
	s.fid = f.FID
	geom, err := f.Geometry.MarshalGeoJSON()
	if err != nil {
		return fmt.Errorf("feature %d: %w", f.FID, err)
	}
	attrs := make(map[string]any, len(f.Attributes))
	for _, a := range f.Attributes {
		attrs[a.Name] = a.Value
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("feature %d: %w", f.FID, err)
	}
	_, err = s.insFeature.Exec(s.runID.String(), f.FID, string(geom), string(data))
	return err
}

// AddPixel records one row per raster band. Values without data are
// stored as NULL.
func (s *SQLite) AddPixel(ev *starspan.Event) error {
	for r, smp := range ev.Samples {
		for b, v := range smp.Values {
			var value any
			if smp.Valid[b] {
				value = v
			}
			_, err := s.insPixel.Exec(s.runID.String(), s.fid, ev.Col, ev.Row, ev.X, ev.Y, r, b, value)
			if err != nil {
				return fmt.Errorf("failed to insert pixel %d,%d: %w", ev.Col, ev.Row, err)
			}
		}
	}
	return nil
}

// End records the outcome of the run and commits the transaction.
func (s *SQLite) End() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil

	status, msg := "finished", any(nil)
	if s.abortErr != nil {
		status, msg = "aborted", s.abortErr.Error()
		s.abortErr = nil
	}
	_, err := tx.Exec(`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), status, msg, s.runID.String())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return tx.Commit()
}
