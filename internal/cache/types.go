package cache

import (
	"errors"
	"time"

	"sheetcache/internal/csvx"
	"sheetcache/internal/schema"
)

var (
	// ErrReloadInProgress is returned when a reload is requested while one
	// is already running. Callers retry later; requests are never queued.
	ErrReloadInProgress = errors.New("reload already in progress")

	// ErrNotFound marks an unknown report or category identifier.
	ErrNotFound = errors.New("report not found")
)

// Snapshot is the current state of one report. Exactly one snapshot exists
// per report id; ingestion replaces it whole, never mutates it in place.
//
// A snapshot is either loaded (Error empty, rows present, possibly
// schema-invalid) or failed (Error set, rows empty).
type Snapshot struct {
	ID          string
	Label       string
	Category    string
	Description string

	Rows       []csvx.Row
	Headers    []string
	Validation schema.Result
	LastUpdate time.Time
	LoadTime   time.Duration

	// Error is set only for failed loads.
	Error string
}

// Failed reports whether this snapshot represents a failed ingestion.
func (s Snapshot) Failed() bool { return s.Error != "" }

// Meta is the JSON metadata view of a snapshot (no row payload).
type Meta struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	Category       string   `json:"category"`
	Description    string   `json:"description,omitempty"`
	Rows           int      `json:"rows"`
	Headers        []string `json:"headers,omitempty"`
	SchemaOK       bool     `json:"schemaOk"`
	MissingColumns []string `json:"missingColumns"`
	ExtraColumns   []string `json:"extraColumns"`
	LastUpdate     string   `json:"lastUpdate"`
	LoadTimeMS     int64    `json:"loadTimeMs,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Meta converts the snapshot into its metadata view.
func (s Snapshot) Meta() Meta {
	m := Meta{
		ID:             s.ID,
		Label:          s.Label,
		Category:       s.Category,
		Description:    s.Description,
		Rows:           len(s.Rows),
		Headers:        s.Headers,
		SchemaOK:       s.Validation.OK,
		MissingColumns: s.Validation.Missing,
		ExtraColumns:   s.Validation.Extra,
		LastUpdate:     s.LastUpdate.Format(time.RFC3339),
		LoadTimeMS:     s.LoadTime.Milliseconds(),
		Error:          s.Error,
	}
	if m.MissingColumns == nil {
		m.MissingColumns = []string{}
	}
	if m.ExtraColumns == nil {
		m.ExtraColumns = []string{}
	}
	return m
}

// Stats is the cache-level summary.
type Stats struct {
	TotalReports  int    `json:"totalReports"`
	LoadedReports int    `json:"loadedReports"`
	TotalRows     int    `json:"totalRows"`
	ValidSchemas  int    `json:"validSchemas"`
	Categories    int    `json:"categories"`
	LastUpdate    string `json:"lastUpdate,omitempty"`
}

// CycleResult summarizes one completed reload cycle.
type CycleResult struct {
	Succeeded int
	Failed    int
	TotalRows int
	Took      time.Duration
}
