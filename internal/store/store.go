// Package store keeps plate results in a SQLite database so screens of many
// plates can be queried after the fact.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plate-scanner/internal/analysis"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a plate id has no row.
var ErrNotFound = errors.New("plate not found")

// Plate is one analyzed image.
type Plate struct {
	ID        string `db:"id" json:"id"`
	Source    string `db:"source" json:"source"`
	Profile   string `db:"profile" json:"profile"`
	Reader    string `db:"reader" json:"reader"`
	Rows      int    `db:"n_rows" json:"rows"`
	Columns   int    `db:"n_columns" json:"columns"`
	Failed    bool   `db:"failed" json:"failed"`
	Suspect   bool   `db:"suspect" json:"suspect"`
	Colonies  int    `db:"colonies" json:"colonies"`
	StartedAt int64  `db:"started_at" json:"started_at"`
	ElapsedMS int64  `db:"elapsed_ms" json:"elapsed_ms"`
	Settings  string `db:"settings" json:"settings"`
}

// Started returns StartedAt as a time.
func (p Plate) Started() time.Time {
	return time.Unix(0, p.StartedAt).UTC()
}

// Tile is one cell measurement. Row and Column are zero-based.
type Tile struct {
	PlateID     string  `db:"plate_id" json:"plate_id"`
	Row         int     `db:"row_idx" json:"row"`
	Column      int     `db:"col_idx" json:"column"`
	Size        int     `db:"size" json:"size"`
	Circularity float64 `db:"circularity" json:"circularity"`
	Opacity     int     `db:"opacity" json:"opacity"`
	Empty       bool    `db:"empty" json:"empty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS plates (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	profile    TEXT NOT NULL,
	reader     TEXT NOT NULL,
	n_rows     INTEGER NOT NULL,
	n_columns  INTEGER NOT NULL,
	failed     BOOLEAN NOT NULL,
	suspect    BOOLEAN NOT NULL,
	colonies   INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	settings   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tiles (
	plate_id    TEXT NOT NULL REFERENCES plates(id) ON DELETE CASCADE,
	row_idx     INTEGER NOT NULL,
	col_idx     INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	circularity REAL NOT NULL,
	opacity     INTEGER NOT NULL,
	empty       BOOLEAN NOT NULL,
	PRIMARY KEY (plate_id, row_idx, col_idx)
);
CREATE INDEX IF NOT EXISTS plates_source ON plates(source);
`

const (
	queryInsertPlate = `
		INSERT INTO plates (
			id, source, profile, reader, n_rows, n_columns, failed, suspect,
			colonies, started_at, elapsed_ms, settings
		) VALUES (
			:id, :source, :profile, :reader, :n_rows, :n_columns, :failed, :suspect,
			:colonies, :started_at, :elapsed_ms, :settings
		)
	`

	queryInsertTile = `
		INSERT INTO tiles (
			plate_id, row_idx, col_idx, size, circularity, opacity, empty
		) VALUES (
			:plate_id, :row_idx, :col_idx, :size, :circularity, :opacity, :empty
		)
	`

	queryGetPlate = `
		SELECT id, source, profile, reader, n_rows, n_columns, failed, suspect,
		       colonies, started_at, elapsed_ms, settings
		FROM plates
		WHERE id = ?
	`

	queryListPlates = `
		SELECT id, source, profile, reader, n_rows, n_columns, failed, suspect,
		       colonies, started_at, elapsed_ms, settings
		FROM plates
		ORDER BY started_at, id
	`

	queryListTiles = `
		SELECT plate_id, row_idx, col_idx, size, circularity, opacity, empty
		FROM tiles
		WHERE plate_id = ?
		ORDER BY row_idx, col_idx
	`

	queryDeletePlate = `DELETE FROM plates WHERE id = ?`
	queryDeleteTiles = `DELETE FROM tiles WHERE plate_id = ?`
)

// Store is a SQLite backed result store. It is safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePlate writes res and all of its tiles in one transaction and
// returns the stored plate row.
func (s *Store) SavePlate(ctx context.Context, res *analysis.Result, profile string) (Plate, error) {
	if res == nil {
		return Plate{}, fmt.Errorf("save plate: nil result")
	}
	settingsJSON, err := jsoniter.MarshalToString(res.Settings)
	if err != nil {
		return Plate{}, fmt.Errorf("save plate: encode settings: %w", err)
	}

	p := Plate{
		ID:        res.RunID,
		Source:    res.Source,
		Profile:   profile,
		Reader:    res.Reader,
		Rows:      res.Settings.Rows,
		Columns:   res.Settings.Columns,
		Failed:    res.Segmentation == nil || res.Segmentation.ErrorOccurred(),
		Suspect:   res.Verdict.Suspect,
		StartedAt: res.StartedAt.UnixNano(),
		ElapsedMS: res.Elapsed.Milliseconds(),
		Settings:  settingsJSON,
	}

	tiles := make([]Tile, 0, res.Settings.Tiles())
	for i, row := range res.Tiles {
		for j, t := range row {
			if !t.Empty {
				p.Colonies++
			}
			tiles = append(tiles, Tile{
				PlateID:     p.ID,
				Row:         i,
				Column:      j,
				Size:        t.Size,
				Circularity: t.Circularity,
				Opacity:     t.Opacity,
				Empty:       t.Empty,
			})
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Plate{}, fmt.Errorf("save plate: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, queryInsertPlate, p); err != nil {
		return Plate{}, fmt.Errorf("save plate %s: %w", p.ID, err)
	}
	for _, t := range tiles {
		if _, err := tx.NamedExecContext(ctx, queryInsertTile, t); err != nil {
			return Plate{}, fmt.Errorf("save tile (%d,%d) of %s: %w", t.Row, t.Column, p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Plate{}, fmt.Errorf("save plate: commit: %w", err)
	}
	return p, nil
}

// GetPlate returns the plate with id.
func (s *Store) GetPlate(ctx context.Context, id string) (Plate, error) {
	var p Plate
	if err := s.db.QueryRowxContext(ctx, queryGetPlate, id).StructScan(&p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Plate{}, fmt.Errorf("get plate %s: %w", id, err)
	}
	return p, nil
}

// ListPlates returns every plate, oldest first.
func (s *Store) ListPlates(ctx context.Context) ([]Plate, error) {
	var plates []Plate
	if err := s.db.SelectContext(ctx, &plates, queryListPlates); err != nil {
		return nil, fmt.Errorf("list plates: %w", err)
	}
	return plates, nil
}

// Tiles returns the tiles of a plate in row-major order.
func (s *Store) Tiles(ctx context.Context, plateID string) ([]Tile, error) {
	var tiles []Tile
	if err := s.db.SelectContext(ctx, &tiles, queryListTiles, plateID); err != nil {
		return nil, fmt.Errorf("list tiles of %s: %w", plateID, err)
	}
	return tiles, nil
}

// DeletePlate removes a plate and its tiles.
func (s *Store) DeletePlate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete plate: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteTiles, id); err != nil {
		return fmt.Errorf("delete tiles of %s: %w", id, err)
	}
	r, err := tx.ExecContext(ctx, queryDeletePlate, id)
	if err != nil {
		return fmt.Errorf("delete plate %s: %w", id, err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
