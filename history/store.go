// Package history records analysis reports in SQLite so notebook scores can be
// compared over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

// openDB is a package-level var to allow test injection
var openDB = sql.Open

// ErrNotFound is returned when no run matches a lookup
var ErrNotFound = errors.New("run not found")

// Run is one recorded analysis of a notebook
type Run struct {
	ID           int64                          `json:"id"`
	NotebookID   string                         `json:"notebook_id"`
	NotebookName string                         `json:"notebook_name"`
	NotebookPath string                         `json:"notebook_path,omitempty"`
	OverallScore *float64                       `json:"overall_score"`
	OverallLevel analyzer.Level                 `json:"overall_level,omitempty"`
	Categories   map[analyzer.Category]*float64 `json:"categories"`
	Metrics      map[analyzer.MetricID]*float64 `json:"metrics"`
	GeneratedAt  time.Time                      `json:"generated_at"`
}

// Query filters the runs returned by List
type Query struct {
	Notebook string // Matches the notebook name, path or id; empty matches all
	Limit    int    // Zero means DefaultLimit
}

// DefaultLimit bounds List when no limit is given
const DefaultLimit = 20

// timeLayout is a fixed-width UTC layout so timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists runs in a SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("history: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			notebook_id   TEXT    NOT NULL,
			notebook_name TEXT    NOT NULL,
			notebook_path TEXT    NOT NULL DEFAULT '',
			overall_score REAL,
			overall_level TEXT    NOT NULL DEFAULT '',
			generated_at  TEXT    NOT NULL,
			report        TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scores (
			run_id INTEGER NOT NULL,
			kind   TEXT    NOT NULL CHECK (kind IN ('category', 'metric')),
			name   TEXT    NOT NULL,
			score  REAL,
			status TEXT    NOT NULL,
			PRIMARY KEY (run_id, kind, name),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_runs_name      ON runs(notebook_name);
		CREATE INDEX IF NOT EXISTS idx_runs_notebook  ON runs(notebook_id);
		CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a report and returns the id of the new run
func (s *Store) Record(ctx context.Context, r *analyzer.Report) (int64, error) {
	if r == nil {
		return 0, errors.New("history: nil report")
	}

	body, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("history: encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (notebook_id, notebook_name, notebook_path, overall_score, overall_level, generated_at, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.NotebookID, r.Notebook.Name, r.Notebook.Path, nullable(r.OverallScore), string(r.OverallLevel),
		r.GeneratedAt.UTC().Format(timeLayout), string(body),
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: run id: %w", err)
	}

	insert := `INSERT INTO scores (run_id, kind, name, score, status) VALUES (?, ?, ?, ?, ?)`
	for _, c := range r.Categories {
		if _, err := tx.ExecContext(ctx, insert, id, "category", string(c.Category), nullable(c.Score), string(c.Status)); err != nil {
			return 0, fmt.Errorf("history: insert category %s: %w", c.Category, err)
		}
	}
	for _, m := range r.Metrics {
		if _, err := tx.ExecContext(ctx, insert, id, "metric", string(m.MetricID), nullable(m.Score), string(m.Status)); err != nil {
			return 0, fmt.Errorf("history: insert metric %s: %w", m.MetricID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

// List returns matching runs, newest first
func (s *Store) List(ctx context.Context, q Query) ([]Run, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, notebook_id, notebook_name, notebook_path, overall_score, overall_level, generated_at FROM runs`
	var args []any
	if q.Notebook != "" {
		query += ` WHERE notebook_name = ? OR notebook_path = ? OR notebook_id = ?`
		args = append(args, q.Notebook, q.Notebook, q.Notebook)
	}
	query += ` ORDER BY generated_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run       Run
			score     sql.NullFloat64
			level     string
			generated string
		)
		if err := rows.Scan(&run.ID, &run.NotebookID, &run.NotebookName, &run.NotebookPath, &score, &level, &generated); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		run.OverallScore = fromNullable(score)
		run.OverallLevel = analyzer.Level(level)
		if run.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("history: run %d: bad timestamp %q: %w", run.ID, generated, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if err := s.loadScores(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Report returns the full report stored with a run
func (s *Store) Report(ctx context.Context, runID int64) (*analyzer.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: run %d: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: load run %d: %w", runID, err)
	}

	var r analyzer.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("history: decode run %d: %w", runID, err)
	}
	return &r, nil
}

// loadScores fills the category and metric scores of a run
func (s *Store) loadScores(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, name, score FROM scores WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("history: load scores of run %d: %w", run.ID, err)
	}
	defer rows.Close()

	run.Categories = map[analyzer.Category]*float64{}
	run.Metrics = map[analyzer.MetricID]*float64{}
	for rows.Next() {
		var (
			kind, name string
			score      sql.NullFloat64
		)
		if err := rows.Scan(&kind, &name, &score); err != nil {
			return fmt.Errorf("history: scan score: %w", err)
		}
		if kind == "category" {
			run.Categories[analyzer.Category(name)] = fromNullable(score)
		} else {
			run.Metrics[analyzer.MetricID(name)] = fromNullable(score)
		}
	}
	return rows.Err()
}

// Delta returns the overall score change between the newest run and the one before it.
// runs must be ordered newest first, as List returns them.
func Delta(runs []Run) (float64, bool) {
	if len(runs) < 2 || runs[0].OverallScore == nil || runs[1].OverallScore == nil {
		return 0, false
	}
	return *runs[0].OverallScore - *runs[1].OverallScore, true
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
