package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/roman-kulish/link-budget/internal/budget"
)

// Run is an archived engine invocation
type Run struct {
	ID          int64
	CreatedAt   time.Time
	Formula     string
	DataRateBps float64
	Config      *string // JSON encoded run parameters
}

// StoredEntry is an archived entry, either a result or a failure reason
type StoredEntry struct {
	Position int
	Order    int
	Result   *budget.Result
	Failure  string
}

// Entry converts e back to an engine entry. The failure is restored as a
// plain error carrying the archived reason.
func (e StoredEntry) Entry() budget.Entry {
	out := budget.Entry{Order: e.Order, Result: e.Result}
	if e.Failure != "" {
		out.Err = errors.New(e.Failure)
	}
	return out
}

type entryData struct {
	RunID                  int64
	Position               int
	Order                  int
	BitsPerSymbol          sql.NullInt64
	BaudRate               sql.NullFloat64
	SNRRequiredDB          sql.NullFloat64
	BandwidthHz            sql.NullFloat64
	EffectiveThroughputBps sql.NullFloat64
	Failure                sql.NullString
}
