package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    formula    TEXT      NOT NULL,
    data_rate  REAL      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS entries (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id                   INTEGER NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    position                 INTEGER NOT NULL,
    modulation_order         INTEGER NOT NULL,
    bits_per_symbol          INTEGER,
    baud_rate                REAL,
    snr_required_db          REAL,
    bandwidth_hz             REAL,
    effective_throughput_bps REAL,
    failure                  TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_run_position ON entries (run_id, position);`

	insertRunSQL = `
INSERT INTO runs (
                  created_at,
                  formula,
                  data_rate,
                  config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectRunSQL = `
SELECT
    id,
    created_at,
    formula,
    data_rate,
    config
FROM runs
WHERE
    id = ?`

	selectRunsSQL = `
SELECT
    id,
    created_at,
    formula,
    data_rate,
    config
FROM runs`

	insertEntrySQL = `
INSERT INTO entries (run_id,
                     position,
                     modulation_order,
                     bits_per_symbol,
                     baud_rate,
                     snr_required_db,
                     bandwidth_hz,
                     effective_throughput_bps,
                     failure)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectEntriesSQL = `
SELECT
    position,
    modulation_order,
    bits_per_symbol,
    baud_rate,
    snr_required_db,
    bandwidth_hz,
    effective_throughput_bps,
    failure
FROM entries
WHERE
    run_id = ?
ORDER BY position`
)
