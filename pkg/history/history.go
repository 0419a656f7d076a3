// Package history keeps the summaries of past benchmark runs in SQLite so
// repeated runs over the same corpus can be compared.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed width so stored times sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded benchmark run
type Run struct {
	ID         int64
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	FileCount  int
	TotalBytes int64
	// Summaries are in run order
	Summaries []harness.Summary
}

// Duration is the wall-clock length of the run
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is a run history database
type Store struct {
	*sql.DB
	path string
}

func openDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{DB: sqlDB, path: path}
	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the tables if they do not exist
func (s *Store) InitSchema() error {
	_, err := s.Exec(schema)
	return err
}

// Save records a run and its summaries and returns the new run id
func (s *Store) Save(ctx context.Context, run Run) (int64, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (root, started_at, finished_at, file_count, total_bytes) VALUES (?, ?, ?, ?, ?)`,
		run.Root,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.FileCount,
		run.TotalBytes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for i, sum := range run.Summaries {
		errs := sum.Errors
		if errs == nil {
			errs = []string{}
		}
		encoded, err := json.Marshal(errs)
		if err != nil {
			return 0, fmt.Errorf("failed to encode errors of %s: %w", sum.Strategy, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO summaries (run_id, position, strategy, total_pages, total_parsing_time, error_count, errors)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, sum.Strategy, sum.TotalPages, sum.TotalParsingTime.String(), sum.ErrorCount, string(encoded))
		if err != nil {
			return 0, fmt.Errorf("failed to insert summary of %s: %w", sum.Strategy, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, root, started_at, finished_at, file_count, total_bytes FROM runs ORDER BY started_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		if runs[i].Summaries, err = s.summaries(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run with its summaries
func (s *Store) Get(ctx context.Context, id int64) (Run, error) {
	row := s.QueryRowContext(ctx,
		`SELECT id, root, started_at, finished_at, file_count, total_bytes FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	if run.Summaries, err = s.summaries(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, finished string
	if err := row.Scan(&run.ID, &run.Root, &started, &finished, &run.FileCount, &run.TotalBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("invalid started_at of run %d: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("invalid finished_at of run %d: %w", run.ID, err)
	}
	return run, nil
}

func (s *Store) summaries(ctx context.Context, runID int64) ([]harness.Summary, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT strategy, total_pages, total_parsing_time, error_count, errors
		 FROM summaries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []harness.Summary
	for rows.Next() {
		var sum harness.Summary
		var seconds, encoded string
		if err := rows.Scan(&sum.Strategy, &sum.TotalPages, &seconds, &sum.ErrorCount, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if sum.TotalParsingTime, err = decimal.NewFromString(seconds); err != nil {
			return nil, fmt.Errorf("invalid parsing time %q for %s: %w", seconds, sum.Strategy, err)
		}
		if err := json.Unmarshal([]byte(encoded), &sum.Errors); err != nil {
			return nil, fmt.Errorf("invalid errors for %s: %w", sum.Strategy, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return out, nil
}
