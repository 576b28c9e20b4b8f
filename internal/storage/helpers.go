package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/link-budget/internal/budget"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rbErr := rb.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && *err == nil {
		*err = rbErr
	}
}

// toConfigData accepts a string, []byte or any JSON serialisable value
func toConfigData(config any) (sql.NullString, error) {
	var data sql.NullString

	switch c := config.(type) {
	case nil:
		return data, nil
	case string:
		data.String = c
	case []byte:
		data.String = string(c)
	default:
		p, err := json.Marshal(c)
		if err != nil {
			return data, fmt.Errorf("marshaling config: %w", err)
		}
		data.String = string(p)
	}

	data.Valid = true
	return data, nil
}

func toEntryData(runID int64, position int, e budget.Entry) *entryData {
	data := &entryData{
		RunID:    runID,
		Position: position,
		Order:    e.Order,
	}

	if e.Err != nil {
		data.Failure = sql.NullString{String: e.Err.Error(), Valid: true}
	}

	if r := e.Result; r != nil {
		data.BitsPerSymbol = sql.NullInt64{Int64: int64(r.BitsPerSymbol), Valid: true}
		data.BaudRate = sql.NullFloat64{Float64: r.BaudRate, Valid: true}
		data.SNRRequiredDB = sql.NullFloat64{Float64: r.SNRRequiredDB, Valid: true}
		data.BandwidthHz = sql.NullFloat64{Float64: r.BandwidthHz, Valid: true}
		data.EffectiveThroughputBps = sql.NullFloat64{Float64: r.EffectiveThroughputBps, Valid: true}
	}

	return data
}

func fromEntryData(data *entryData) StoredEntry {
	e := StoredEntry{
		Position: data.Position,
		Order:    data.Order,
	}

	if data.Failure.Valid {
		e.Failure = data.Failure.String
	}

	// a result is stored in full or not at all
	if data.BaudRate.Valid {
		e.Result = &budget.Result{
			Order:                  data.Order,
			BitsPerSymbol:          int(data.BitsPerSymbol.Int64),
			BaudRate:               data.BaudRate.Float64,
			SNRRequiredDB:          data.SNRRequiredDB.Float64,
			BandwidthHz:            data.BandwidthHz.Float64,
			EffectiveThroughputBps: data.EffectiveThroughputBps.Float64,
		}
	}

	return e
}
