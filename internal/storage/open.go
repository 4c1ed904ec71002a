package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "sheetcache/pkg/logx"
)

// Store is the persistence API used by the cache service.
type Store interface {
	// SaveReport upserts the snapshot for rep.ID and appends one success
	// entry to the update history.
	SaveReport(ctx context.Context, rep SavedReport) error

	// RecordFailure appends a failed-update history entry without touching
	// the persisted snapshot (the stale snapshot stays valid for fallback).
	RecordFailure(ctx context.Context, reportID, errMsg string) error

	// GetReport returns the persisted snapshot, or ok=false when absent.
	GetReport(ctx context.Context, reportID string) (SavedReport, bool, error)

	// ListReports returns summary metadata for every persisted report.
	ListReports(ctx context.Context) ([]Summary, error)

	// UpdateHistory returns the most recent history entries for a report,
	// newest first. An empty reportID matches all reports.
	UpdateHistory(ctx context.Context, reportID string, limit int) ([]HistoryEntry, error)

	// RecordQuery stores one user search for later analytics.
	RecordQuery(ctx context.Context, query, reportID string, resultCount int) error

	// ClearOldHistory removes history and query entries older than cutoff,
	// returning the number removed.
	ClearOldHistory(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
