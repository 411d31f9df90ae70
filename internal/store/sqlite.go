package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps templates in a SQLite database. Feature sequences are
// stored as JSON text columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates it to the latest schema. Use ":memory:" for a private in-memory
// database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, unavailable("configure database", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return unavailable("load migrations", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return unavailable("create sqlite driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return unavailable("create migrate instance", err)
	}
	// Not closing m: that would close the shared *sql.DB.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return unavailable("migration up", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

const templateColumns = `id, value, codepoint, number_of_strokes, number_of_points,
	serialized_strokes, direction_e1, direction_e2, direction_e3, direction_e4,
	heatmap, significant_heatmap, heatmap_granular, heatmap_coarse,
	heatmap_granular_slant, heatmap_coarse_slant`

// Store implements Store.
func (s *SQLiteStore) Store(t *Template) error {
	if t == nil {
		return ErrNilTemplate
	}
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}

	encoded, err := encodeFeatures(t)
	if err != nil {
		return unavailable("encode template", err)
	}

	args := []any{id, t.Value, t.Codepoint, t.NumberOfStrokes, t.NumberOfPoints}
	args = append(args, encoded...)
	_, err = s.db.Exec(`INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return unavailable("insert template", err)
	}
	t.ID = id
	return nil
}

// CharactersInStrokeRange implements Store.
func (s *SQLiteStore) CharactersInStrokeRange(strokes Range) ([]*Template, error) {
	return s.query(`SELECT `+templateColumns+` FROM templates
		WHERE number_of_strokes BETWEEN ? AND ?
		ORDER BY seq`, strokes.Min, strokes.Max)
}

// CharactersInRange implements Store.
func (s *SQLiteStore) CharactersInRange(points, strokes Range) ([]*Template, error) {
	return s.query(`SELECT `+templateColumns+` FROM templates
		WHERE number_of_strokes BETWEEN ? AND ?
		  AND (number_of_points = 0 OR number_of_points BETWEEN ? AND ?)
		ORDER BY seq`, strokes.Min, strokes.Max, points.Min, points.Max)
}

func (s *SQLiteStore) query(q string, args ...any) ([]*Template, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, unavailable("query templates", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, unavailable("scan template", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate templates", err)
	}
	return out, nil
}

// Len returns the number of stored templates.
func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
		return 0, unavailable("count templates", err)
	}
	return n, nil
}

// Persist checkpoints the write-ahead log into the main database file.
func (s *SQLiteStore) Persist() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return unavailable("checkpoint", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeFeatures returns the JSON text of every feature column in
// templateColumns order.
func encodeFeatures(t *Template) ([]any, error) {
	values := []any{
		t.Strokes,
		t.DirectionE1, t.DirectionE2, t.DirectionE3, t.DirectionE4,
		t.Heatmap, t.SignificantHeatmap,
		t.HeatmapGranular, t.HeatmapCoarse,
		t.HeatmapGranularSlant, t.HeatmapCoarseSlant,
	}
	out := make([]any, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if string(data) == "null" {
			data = []byte("[]")
		}
		out[i] = string(data)
	}
	return out, nil
}

func scanTemplate(rows *sql.Rows) (*Template, error) {
	var (
		t   Template
		raw [11]string
	)
	err := rows.Scan(&t.ID, &t.Value, &t.Codepoint, &t.NumberOfStrokes, &t.NumberOfPoints,
		&raw[0], &raw[1], &raw[2], &raw[3], &raw[4], &raw[5],
		&raw[6], &raw[7], &raw[8], &raw[9], &raw[10])
	if err != nil {
		return nil, err
	}

	targets := []any{
		&t.Strokes,
		&t.DirectionE1, &t.DirectionE2, &t.DirectionE3, &t.DirectionE4,
		&t.Heatmap, &t.SignificantHeatmap,
		&t.HeatmapGranular, &t.HeatmapCoarse,
		&t.HeatmapGranularSlant, &t.HeatmapCoarseSlant,
	}
	for i, target := range targets {
		if err := json.Unmarshal([]byte(raw[i]), target); err != nil {
			return nil, fmt.Errorf("decode column %d: %w", i+5, err)
		}
	}
	return &t, nil
}
