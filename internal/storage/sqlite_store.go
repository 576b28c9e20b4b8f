package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/roman-kulish/link-budget/internal/budget"
)

var ErrRunNotFound = errors.New("run not found")

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily and the schema is created on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, formula string, dataRateBps float64, config any) (runID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, formula, dataRateBps, configData)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

func (s *SqliteStore) StoreEntries(ctx context.Context, runID int64, entries budget.Entries) (err error) {
	if len(entries) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for i, e := range entries {
		data := toEntryData(runID, i, e)
		if _, err = stmt.ExecContext(
			ctx,
			data.RunID,
			data.Position,
			data.Order,
			data.BitsPerSymbol,
			data.BaudRate,
			data.SNRRequiredDB,
			data.BandwidthHz,
			data.EffectiveThroughputBps,
			data.Failure,
		); err != nil {
			return fmt.Errorf("inserting entry %d of run %d: %w", i, runID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) Run(ctx context.Context, id int64) (run *Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var r Run
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&r.ID, &r.CreatedAt, &r.Formula, &r.DataRateBps, &config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: %d", ErrRunNotFound, id)
			return
		}
		err = fmt.Errorf("scanning run: %w", err)
		return
	}
	if config.Valid {
		r.Config = &config.String
	}

	return &r, nil
}

func (s *SqliteStore) Runs(ctx context.Context, options ...func(*RunFilter)) (runs []*Run, err error) {
	iter, err := s.IterateRuns(ctx, options...)
	if err != nil {
		return
	}
	defer closeWithError(iter, &err)

	for iter.Next(ctx) {
		runs = append(runs, iter.Current())
	}
	if err = iter.Error(); err != nil {
		err = fmt.Errorf("iterating runs: %w", err)
	}
	return
}

func (s *SqliteStore) Entries(ctx context.Context, runID int64) (entries []StoredEntry, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEntriesSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying entries: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data entryData
		if err = rows.Scan(
			&data.Position,
			&data.Order,
			&data.BitsPerSymbol,
			&data.BaudRate,
			&data.SNRRequiredDB,
			&data.BandwidthHz,
			&data.EffectiveThroughputBps,
			&data.Failure,
		); err != nil {
			err = fmt.Errorf("scanning entry: %w", err)
			return
		}
		data.RunID = runID
		entries = append(entries, fromEntryData(&data))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating entries: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
