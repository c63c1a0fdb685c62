// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists completed search runs in a local SQLite
// database so they can be listed and reopened later.
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

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litsearch/pkg/types"
)

const dbFile = "litsearch.db"

// ErrNotFound is returned by Get and Delete for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store manages the run history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Summary is one row of the run listing.
type Summary struct {
	ID              string
	Project         string
	Query           string
	CreatedAt       time.Time
	QualityScore    float64
	RefinementCount int
	TotalFound      int
	Kept            int
	SynthesisStatus types.SynthesisStatus
}

// Run is a stored run with its full final state.
type Run struct {
	Summary
	State *types.SearchState
}

// ListOptions narrows List. Zero values mean no restriction.
type ListOptions struct {
	Project string
	Limit   int
}

// NewStore opens or creates the history database at dir/litsearch.db.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			created_at TEXT NOT NULL,
			quality_score REAL,
			refinement_count INTEGER,
			total_found INTEGER,
			kept INTEGER,
			synthesis_status TEXT,
			state TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE TABLE IF NOT EXISTS run_articles (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			article_key TEXT,
			title TEXT,
			year INTEGER,
			source TEXT,
			score REAL,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores the final state of a run under project and returns the run
// ID. The state's RunID is used when set; otherwise a new one is assigned.
// Saving the same run again replaces it.
func (s *Store) Save(ctx context.Context, project string, state *types.SearchState) (string, error) {
	if state == nil {
		return "", errors.New("nil search state")
	}
	id := state.RunID
	if id == "" {
		id = uuid.NewString()
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encoding search state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_articles WHERE run_id = ?`, id); err != nil {
		return "", fmt.Errorf("clearing run articles: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, project, query, created_at, quality_score, refinement_count, total_found, kept, synthesis_status, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, project, state.UserQuery, s.now().UTC().Format(time.RFC3339Nano),
		state.QualityScore, state.RefinementCount, state.FilterStats.TotalFound,
		len(state.Filtered), string(state.SynthesisMeta.Status), string(blob),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_articles (run_id, position, article_key, title, year, source, score)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing article insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range state.FinalResults {
		var year sql.NullInt64
		if a.Year != nil {
			year = sql.NullInt64{Int64: int64(*a.Year), Valid: true}
		}
		var score sql.NullFloat64
		if a.RelevanceScore != nil {
			score = sql.NullFloat64{Float64: *a.RelevanceScore, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, a.Key(), a.Title, year, a.Source, score); err != nil {
			return "", fmt.Errorf("inserting article %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

const summaryColumns = `id, project, query, created_at, quality_score, refinement_count, total_found, kept, synthesis_status`

// List returns stored runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	q := `SELECT ` + summaryColumns + ` FROM runs`
	var args []any
	if opts.Project != "" {
		q += ` WHERE project = ?`
		args = append(args, opts.Project)
	}
	q += ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads one run with its decoded state.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var blob string
	sum, err := scanSummary(func(dest ...any) error {
		return s.db.QueryRowContext(ctx,
			`SELECT `+summaryColumns+`, state FROM runs WHERE id = ?`, id,
		).Scan(append(dest, &blob)...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var state types.SearchState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decoding state of run %s: %w", id, err)
	}
	return &Run{Summary: sum, State: &state}, nil
}

// Delete removes a run and its article rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_articles WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("deleting articles of run %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ArticleCount returns how many final-result rows are stored for a run.
func (s *Store) ArticleCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM run_articles WHERE run_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles of run %s: %w", id, err)
	}
	return n, nil
}

func scanSummary(scan func(dest ...any) error) (Summary, error) {
	var (
		sum     Summary
		created string
		quality sql.NullFloat64
		refines sql.NullInt64
		total   sql.NullInt64
		kept    sql.NullInt64
		status  sql.NullString
	)
	err := scan(&sum.ID, &sum.Project, &sum.Query, &created, &quality, &refines, &total, &kept, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, err
	}
	if err != nil {
		return Summary{}, fmt.Errorf("scanning run: %w", err)
	}
	sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sum.QualityScore = quality.Float64
	sum.RefinementCount = int(refines.Int64)
	sum.TotalFound = int(total.Int64)
	sum.Kept = int(kept.Int64)
	sum.SynthesisStatus = types.SynthesisStatus(status.String)
	return sum, nil
}
