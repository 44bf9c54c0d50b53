package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/markov"
)

// storeFactories returns one constructor per ResultStore implementation.
func storeFactories(t *testing.T) map[string]func() ResultStore {
	t.Helper()
	return map[string]func() ResultStore{
		"memory": func() ResultStore { return NewInMemoryResultStore() },
		"sqlite": func() ResultStore {
			s, err := NewSQLiteResultStore(filepath.Join(t.TempDir(), "results.db"))
			if err != nil {
				t.Fatalf("NewSQLiteResultStore() error = %v", err)
			}
			return s
		},
	}
}

func paramsWith(n int, generosity float64) game.Params {
	p := game.DefaultParams()
	p.NumAgents = n
	p.Generosity = generosity
	return p
}

func TestKey(t *testing.T) {
	solver := markov.DefaultSolverConfig()
	base := Key(game.DefaultParams(), solver)

	if len(base) != 64 {
		t.Errorf("Key length = %d, want 64 hex chars", len(base))
	}
	if Key(game.DefaultParams(), solver) != base {
		t.Error("Key is not deterministic")
	}
	if Key(paramsWith(5, 0), solver) == base {
		t.Error("Key ignores num_agents")
	}
	if Key(paramsWith(4, 0.01), solver) == base {
		t.Error("Key ignores generosity")
	}

	gth := solver
	gth.Method = markov.MethodGTH
	if Key(game.DefaultParams(), gth) == base {
		t.Error("Key ignores solver method")
	}
}

func TestResultStore_PutGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()
			ctx := context.Background()

			p := paramsWith(3, 0.05)
			r := NewResult(p, markov.DefaultSolverConfig(), 0.4217, 120*time.Millisecond)
			if err := s.Put(ctx, r); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, err := s.Get(ctx, r.Key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got == nil {
				t.Fatal("Get() returned nil")
			}
			if got.Index != 0.4217 {
				t.Errorf("Index = %v, want 0.4217", got.Index)
			}
			if got.Params != p {
				t.Errorf("Params = %+v, want %+v", got.Params, p)
			}
			if got.Solver != r.Solver {
				t.Errorf("Solver = %+v, want %+v", got.Solver, r.Solver)
			}
			if got.ElapsedMs != 120 {
				t.Errorf("ElapsedMs = %d, want 120", got.ElapsedMs)
			}
			if !got.ComputedAt.Equal(r.ComputedAt) {
				t.Errorf("ComputedAt = %v, want %v", got.ComputedAt, r.ComputedAt)
			}
		})
	}
}

func TestResultStore_GetMissing(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()

			got, err := s.Get(context.Background(), "nonexistent")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != nil {
				t.Errorf("Get() = %+v, want nil", got)
			}
		})
	}
}

func TestResultStore_PutReplaces(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()
			ctx := context.Background()

			r := NewResult(paramsWith(3, 0), markov.DefaultSolverConfig(), 0.1, 0)
			if err := s.Put(ctx, r); err != nil {
				t.Fatal(err)
			}
			r.Index = 0.2
			if err := s.Put(ctx, r); err != nil {
				t.Fatal(err)
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 1 {
				t.Fatalf("List() returned %d results, want 1", len(all))
			}
			if all[0].Index != 0.2 {
				t.Errorf("Index = %v, want 0.2", all[0].Index)
			}
		})
	}
}

func TestResultStore_PutRequiresKey(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()

			if err := s.Put(context.Background(), Result{Index: 0.5}); err == nil {
				t.Error("Put() without key should fail")
			}
		})
	}
}

func TestResultStore_ListNewestFirst(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()
			ctx := context.Background()

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 3; i++ {
				r := NewResult(paramsWith(2+i, 0), markov.DefaultSolverConfig(), float64(i)/10, 0)
				r.ComputedAt = base.Add(time.Duration(i) * time.Second)
				if err := s.Put(ctx, r); err != nil {
					t.Fatal(err)
				}
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Fatalf("List() returned %d results, want 3", len(all))
			}
			for i, want := range []int{4, 3, 2} {
				if all[i].Params.NumAgents != want {
					t.Errorf("List()[%d].NumAgents = %d, want %d", i, all[i].Params.NumAgents, want)
				}
			}

			limited, err := s.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(limited) != 2 || limited[0].Params.NumAgents != 4 {
				t.Errorf("List(2) = %+v", limited)
			}
		})
	}
}

func TestResultStore_Clear(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			defer s.Close()
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				if err := s.Put(ctx, NewResult(paramsWith(2+i, 0), markov.DefaultSolverConfig(), 0.5, 0)); err != nil {
					t.Fatal(err)
				}
			}

			n, err := s.Clear(ctx)
			if err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if n != 2 {
				t.Errorf("Clear() = %d, want 2", n)
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 0 {
				t.Errorf("List() after Clear returned %d results", len(all))
			}
		})
	}
}

func TestSQLiteResultStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "results.db")
	ctx := context.Background()

	s, err := NewSQLiteResultStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteResultStore() error = %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	r := NewResult(paramsWith(3, 0), markov.DefaultSolverConfig(), 0.33, 0)
	if err := s.Put(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteResultStore(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, r.Key)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Index != 0.33 {
		t.Errorf("Get() after reopen = %+v, want index 0.33", got)
	}
}

func TestSQLiteResultStore_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	s, err := NewSQLiteResultStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := NewSQLiteResultStore(dbPath); err == nil {
		t.Error("expected error opening a database with a newer schema")
	}
}
