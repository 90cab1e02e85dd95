// Package history records the outcome of finished matches in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS matches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    ticks INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL,
    winner TEXT,              -- NULL when the match was capped
    per_type INTEGER NOT NULL,
    population INTEGER NOT NULL,
    conversions INTEGER NOT NULL,
    arena_w REAL NOT NULL,
    arena_h REAL NOT NULL,
    agent_size REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_winner ON matches(winner);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// Record is one finished match.
type Record struct {
	ID          int64         `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Ticks       int           `json:"ticks"`
	Elapsed     time.Duration `json:"elapsed"`
	Winner      *sim.Type     `json:"winner,omitempty"`
	PerType     int           `json:"per_type"`
	Population  int           `json:"population"`
	Conversions int           `json:"conversions"`
	Arena       sim.Arena     `json:"arena"`
}

// FromResult converts a pump result. Capped matches have no winner.
func FromResult(r pump.Result) Record {
	rec := Record{
		StartedAt:   r.StartedAt,
		Ticks:       r.Ticks,
		Elapsed:     r.Elapsed,
		Population:  r.Initial.Total(),
		Conversions: r.TotalConversions,
		Arena:       r.Arena,
	}
	for _, t := range sim.Types {
		if n := r.Initial.Get(t); n > rec.PerType {
			rec.PerType = n
		}
	}
	if r.Match.Concluded() {
		w := r.Match.Winner
		rec.Winner = &w
	}
	return rec
}

// WinnerStat aggregates matches by outcome.
type WinnerStat struct {
	Winner   string  `json:"winner"`
	Matches  int     `json:"matches"`
	AvgTicks float64 `json:"avg_ticks"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return open(path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single writer; it also keeps :memory: to one
	// database.
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return err
}

// Add stores rec and returns its id.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	var winner sql.NullString
	if rec.Winner != nil {
		winner = sql.NullString{String: rec.Winner.String(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (started_at, ticks, elapsed_ms, winner, per_type, population,
			conversions, arena_w, arena_h, agent_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.Ticks, rec.Elapsed.Milliseconds(), winner,
		rec.PerType, rec.Population, rec.Conversions, rec.Arena.Width, rec.Arena.Height, rec.Arena.Size)
	if err != nil {
		return 0, fmt.Errorf("failed to insert match: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent matches first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ticks, elapsed_ms, winner, per_type, population,
			conversions, arena_w, arena_h, agent_size
		FROM matches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			startedAt string
			elapsedMS int64
			winner    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &startedAt, &rec.Ticks, &elapsedMS, &winner, &rec.PerType,
			&rec.Population, &rec.Conversions, &rec.Arena.Width, &rec.Arena.Height, &rec.Arena.Size); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("match %d: bad started_at %q: %w", rec.ID, startedAt, err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if winner.Valid {
			w, err := sim.ParseType(winner.String)
			if err != nil {
				return nil, fmt.Errorf("match %d: %w", rec.ID, err)
			}
			rec.Winner = &w
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats groups matches by winner; capped matches are reported as "none".
func (s *Store) Stats(ctx context.Context) ([]WinnerStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(winner, 'none'), COUNT(*), AVG(ticks)
		FROM matches GROUP BY COALESCE(winner, 'none') ORDER BY COUNT(*) DESC, 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var out []WinnerStat
	for rows.Next() {
		var st WinnerStat
		if err := rows.Scan(&st.Winner, &st.Matches, &st.AvgTicks); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
