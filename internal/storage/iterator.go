package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

func WithFormula(formula string) func(*RunFilter) {
	return func(f *RunFilter) {
		f.formula = &formula
	}
}

func WithStartTime(startTime time.Time) func(*RunFilter) {
	return func(f *RunFilter) {
		f.startTime = &startTime
	}
}

func WithEndTime(endTime time.Time) func(*RunFilter) {
	return func(f *RunFilter) {
		f.endTime = &endTime
	}
}

func WithTimeRange(startTime, endTime time.Time) func(*RunFilter) {
	return func(f *RunFilter) {
		f.startTime = &startTime
		f.endTime = &endTime
	}
}

// RunFilter narrows down archived runs. Time bounds are inclusive.
type RunFilter struct {
	formula   *string
	startTime *time.Time
	endTime   *time.Time
}

// query returns the select statement and its arguments
func (f *RunFilter) query() (string, []any) {
	var where []string
	var args []any

	if f.formula != nil {
		where = append(where, "formula = ?")
		args = append(args, *f.formula)
	}
	// created_at holds CURRENT_TIMESTAMP text, which compares correctly as a
	// string in this layout
	if f.startTime != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.startTime.UTC().Format(time.DateTime))
	}
	if f.endTime != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.endTime.UTC().Format(time.DateTime))
	}

	query := selectRunsSQL
	if len(where) > 0 {
		query += "\nWHERE\n    " + strings.Join(where, "\n    AND ")
	}
	return query + "\nORDER BY id", args
}

// RunIterator provides iteration over archived runs in creation order
type RunIterator struct {
	rows    *sql.Rows
	current *Run
	err     error
}

// Next advances to the next run
func (ri *RunIterator) Next(ctx context.Context) bool {
	if ri.err != nil {
		return false
	}
	if ri.err = ctx.Err(); ri.err != nil {
		return false
	}
	if !ri.rows.Next() {
		ri.current = nil
		return false
	}

	var r Run
	var config sql.NullString
	if ri.err = ri.rows.Scan(&r.ID, &r.CreatedAt, &r.Formula, &r.DataRateBps, &config); ri.err != nil {
		ri.err = fmt.Errorf("scanning run: %w", ri.err)
		ri.current = nil
		return false
	}
	if config.Valid {
		r.Config = &config.String
	}

	ri.current = &r
	return true
}

// Current returns the current run
func (ri *RunIterator) Current() *Run {
	return ri.current
}

// Error returns any error that occurred during iteration
func (ri *RunIterator) Error() error {
	if ri.err != nil {
		return ri.err
	}
	return ri.rows.Err()
}

// Close releases the database resources
func (ri *RunIterator) Close() error {
	return ri.rows.Close()
}

// IterateRuns returns an iterator over the runs matching options. The caller
// must close the iterator.
func (s *SqliteStore) IterateRuns(ctx context.Context, options ...func(*RunFilter)) (*RunIterator, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var filter RunFilter
	for _, option := range options {
		option(&filter)
	}

	query, args := filter.query()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	return &RunIterator{rows: rows}, nil
}
