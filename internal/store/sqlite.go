package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is fixed width so computed_at sorts correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteResultStore implements ResultStore on a SQLite database file.
type SQLiteResultStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteResultStore opens or creates the database at dbPath, creating
// its parent directory if needed.
func NewSQLiteResultStore(dbPath string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteResultStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteResultStore) Path() string {
	return s.dbPath
}

// Get retrieves a result by key. Returns nil if not found.
func (s *SQLiteResultStore) Get(ctx context.Context, key string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT key, params, solver, cooperation_index, elapsed_ms, computed_at
		FROM index_results WHERE key = ?`, key)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result %s: %w", key, err)
	}
	return r, nil
}

// Put stores a result, replacing any previous entry with the same key.
func (s *SQLiteResultStore) Put(ctx context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Key == "" {
		return fmt.Errorf("result key is required")
	}

	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	solver, err := json.Marshal(r.Solver)
	if err != nil {
		return fmt.Errorf("failed to marshal solver: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO index_results
			(key, params, solver, num_agents, levels, cooperation_index, elapsed_ms, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Key, string(params), string(solver), r.Params.NumAgents, r.Params.Levels,
		r.Index, r.ElapsedMs, r.ComputedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// List returns results newest first.
func (s *SQLiteResultStore) List(ctx context.Context, limit int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT key, params, solver, cooperation_index, elapsed_ms, computed_at
		FROM index_results ORDER BY computed_at DESC, key`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// Clear removes every result.
func (s *SQLiteResultStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM index_results`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*Result, error) {
	var (
		r                    Result
		params, solver, when string
	)
	if err := row.Scan(&r.Key, &params, &solver, &r.Index, &r.ElapsedMs, &when); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("corrupt params for %s: %w", r.Key, err)
	}
	if err := json.Unmarshal([]byte(solver), &r.Solver); err != nil {
		return nil, fmt.Errorf("corrupt solver for %s: %w", r.Key, err)
	}
	t, err := time.Parse(timeFormat, when)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp for %s: %w", r.Key, err)
	}
	r.ComputedAt = t
	return &r, nil
}
