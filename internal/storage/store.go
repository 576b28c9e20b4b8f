package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/link-budget/internal/budget"
)

// Store archives link budget runs. A run holds the parameters of one engine
// invocation and its entries in output order, failures included.
type Store interface {
	// CreateRun records a new run and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - formula: Name of the SNR formula the run used
	//   - dataRateBps: Target data rate in bits per second
	//   - config: Optional run parameters. Can be string, []byte, or JSON-serializable object
	CreateRun(ctx context.Context, formula string, dataRateBps float64, config any) (runID int64, err error)

	// StoreEntries saves all entries of a run in a single transaction.
	// The position of an entry in the slice is preserved.
	StoreEntries(ctx context.Context, runID int64, entries budget.Entries) error

	// Run retrieves a run by its ID. ErrRunNotFound is returned for unknown IDs.
	Run(ctx context.Context, id int64) (*Run, error)

	// Runs returns the runs matching options in creation order. All runs are
	// returned without options.
	Runs(ctx context.Context, options ...func(*RunFilter)) ([]*Run, error)

	// IterateRuns is the streaming form of Runs. The caller must close the
	// iterator.
	IterateRuns(ctx context.Context, options ...func(*RunFilter)) (*RunIterator, error)

	// Entries returns the entries of a run in the order they were stored.
	Entries(ctx context.Context, runID int64) ([]StoredEntry, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
