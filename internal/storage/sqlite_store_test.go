package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/snr"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	s := NewSqliteStore(filepath.Join(t.TempDir(), "runs.db"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func TestSqliteStore_RunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cfg := budget.DefaultConfig()
	entries, err := budget.New().Compute(100e6, []int{1, 2, 4, 8}, snr.ShannonCapacity, cfg)
	if err != nil {
		t.Fatalf("Failed to compute link budget: %v", err)
	}

	runID, err := s.CreateRun(ctx, string(snr.ShannonCapacity), 100e6, cfg)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	if err = s.StoreEntries(ctx, runID, entries); err != nil {
		t.Fatalf("Failed to store entries: %v", err)
	}

	run, err := s.Run(ctx, runID)
	if err != nil {
		t.Fatalf("Failed to read run: %v", err)
	}
	if run.Formula != "shannon" || run.DataRateBps != 100e6 {
		t.Errorf("Unexpected run %+v", run)
	}
	if run.Config == nil || !strings.Contains(*run.Config, `"operatingSnrDb":20`) {
		t.Errorf("Expected JSON config, got %v", run.Config)
	}
	if run.CreatedAt.IsZero() {
		t.Errorf("Expected creation time to be set")
	}

	stored, err := s.Entries(ctx, runID)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(stored) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(stored))
	}

	for i, got := range stored {
		want := entries[i]
		if got.Position != i || got.Order != want.Order {
			t.Errorf("Slot %d: expected order %d at position %d, got %d at %d", i, want.Order, i, got.Order, got.Position)
		}

		if want.Err != nil {
			if got.Failure != want.Err.Error() || got.Result != nil {
				t.Errorf("Slot %d: expected failure %q, got %+v", i, want.Err, got)
			}
			if got.Entry().Err == nil {
				t.Errorf("Slot %d: expected restored entry to carry an error", i)
			}
			continue
		}

		if got.Result == nil || *got.Result != *want.Result {
			t.Errorf("Slot %d: expected %+v, got %+v", i, want.Result, got.Result)
		}
	}
}

func TestSqliteStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, f := range []snr.Formula{snr.SimplifiedLog, snr.SimplifiedLinear} {
		if _, err := s.CreateRun(ctx, string(f), 1e6, nil); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].Formula != "log" || runs[1].Formula != "linear" {
		t.Errorf("Expected runs in creation order, got %s, %s", runs[0].Formula, runs[1].Formula)
	}
	if runs[0].Config != nil {
		t.Errorf("Expected no config, got %q", *runs[0].Config)
	}
}

func TestSqliteStore_RunsFiltered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, f := range []snr.Formula{snr.SimplifiedLog, snr.ShannonCapacity, snr.SimplifiedLog} {
		if _, err := s.CreateRun(ctx, string(f), 1e6, nil); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
	}

	now := time.Now()
	tests := []struct {
		name     string
		options  []func(*RunFilter)
		expected int
	}{
		{"formula", []func(*RunFilter){WithFormula("log")}, 2},
		{"time range", []func(*RunFilter){WithTimeRange(now.Add(-time.Hour), now.Add(time.Hour))}, 3},
		{"future start", []func(*RunFilter){WithStartTime(now.Add(time.Hour))}, 0},
		{"past end", []func(*RunFilter){WithEndTime(now.Add(-time.Hour))}, 0},
		{"formula and start", []func(*RunFilter){WithFormula("shannon"), WithStartTime(now.Add(-time.Hour))}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.Runs(ctx, tt.options...)
			if err != nil {
				t.Fatalf("Failed to list runs: %v", err)
			}
			if len(runs) != tt.expected {
				t.Errorf("Expected %d runs, got %d", tt.expected, len(runs))
			}
		})
	}
}

func TestRunIterator_Cancelled(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateRun(context.Background(), "log", 1e6, nil); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	iter, err := s.IterateRuns(ctx)
	if err != nil {
		t.Fatalf("Failed to iterate runs: %v", err)
	}
	defer iter.Close()

	cancel()
	if iter.Next(ctx) {
		t.Fatal("Expected iteration to stop")
	}
	if !errors.Is(iter.Error(), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", iter.Error())
	}
}

func TestRunFilter_Query(t *testing.T) {
	var f RunFilter
	WithFormula("log")(&f)
	WithEndTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))(&f)

	query, args := f.query()
	if !strings.Contains(query, "formula = ?") || !strings.Contains(query, "AND created_at <= ?") {
		t.Errorf("Unexpected query:\n%s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY id") {
		t.Errorf("Expected ordered query, got:\n%s", query)
	}
	if len(args) != 2 || args[1] != "2024-01-02 03:04:05" {
		t.Errorf("Unexpected arguments %v", args)
	}
}

func TestSqliteStore_RunNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateRun(ctx, "log", 1e6, "{}"); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	if _, err := s.Run(ctx, 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestSqliteStore_CloseTwice(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "runs.db"))
	if _, err := s.CreateRun(context.Background(), "log", 1e6, nil); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
