package storage

import (
	"errors"
	"time"

	"sheetcache/internal/csvx"
	"sheetcache/internal/schema"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshots + jsonl history)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SavedReport is one persisted snapshot.
type SavedReport struct {
	ID         string
	Label      string
	Headers    []string
	Rows       []csvx.Row
	RowCount   int
	Validation schema.Result
	LastUpdate time.Time
}

// Summary is snapshot metadata without the row payload, so listing every
// report stays cheap regardless of per-report size.
type Summary struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	RowCount   int       `json:"rowCount"`
	LastUpdate time.Time `json:"lastUpdate"`
	SchemaOK   bool      `json:"schemaOk"`
}

// HistoryEntry is one row of the append-only update history.
type HistoryEntry struct {
	ReportID string    `json:"reportId"`
	At       time.Time `json:"timestamp"`
	RowCount int       `json:"rowCount"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}
