// Package store defines the ResultStore interface for caching computed
// cooperation indices across runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/markov"
)

// Result is one cached cooperation index computation.
type Result struct {
	Key        string              `json:"key"`
	Params     game.Params         `json:"params"`
	Solver     markov.SolverConfig `json:"solver"`
	Index      float64             `json:"index"`
	ElapsedMs  int64               `json:"elapsed_ms"`
	ComputedAt time.Time           `json:"computed_at"`
}

// ResultStore caches cooperation indices keyed by the exact parameters and
// solver configuration that produced them.
type ResultStore interface {
	// Get returns the result stored under key, or nil if there is none.
	Get(ctx context.Context, key string) (*Result, error)

	// Put stores r under r.Key, replacing any previous entry.
	Put(ctx context.Context, r Result) error

	// List returns up to limit results, most recently computed first.
	// limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]Result, error)

	// Clear removes every result and reports how many were removed.
	Clear(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Key returns the cache key of a computation: the hex SHA-256 of the
// parameters and solver configuration. Any change to either yields a new key.
func Key(p game.Params, solver markov.SolverConfig) string {
	data, _ := json.Marshal(struct {
		Params game.Params         `json:"params"`
		Solver markov.SolverConfig `json:"solver"`
	}{p, solver})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// NewResult builds the entry for a freshly computed index.
func NewResult(p game.Params, solver markov.SolverConfig, index float64, elapsed time.Duration) Result {
	return Result{
		Key:        Key(p, solver),
		Params:     p,
		Solver:     solver,
		Index:      index,
		ElapsedMs:  elapsed.Milliseconds(),
		ComputedAt: time.Now().UTC(),
	}
}
