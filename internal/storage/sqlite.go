package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sheetcache/internal/schema"
	logx "sheetcache/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveReport(ctx context.Context, rep SavedReport) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rep.LastUpdate.IsZero() {
		rep.LastUpdate = time.Now()
	}
	dataJSON, err := json.Marshal(rep.Rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	headersJSON, err := json.Marshal(rep.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	validationJSON, err := json.Marshal(rep.Validation)
	if err != nil {
		return fmt.Errorf("marshal validation: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO report_cache(id, label, headers, data, row_count, last_update, validation_status)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   label=excluded.label,
		   headers=excluded.headers,
		   data=excluded.data,
		   row_count=excluded.row_count,
		   last_update=excluded.last_update,
		   validation_status=excluded.validation_status`,
		rep.ID, rep.Label, string(headersJSON), string(dataJSON), len(rep.Rows),
		rep.LastUpdate.Format(time.RFC3339Nano), string(validationJSON),
	)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO update_history(report_id, at, row_count, success, err) VALUES(?,?,?,1,NULL)`,
		rep.ID, rep.LastUpdate.Format(time.RFC3339Nano), len(rep.Rows),
	)
	return err
}

func (s *sqliteStore) RecordFailure(ctx context.Context, reportID, errMsg string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_history(report_id, at, row_count, success, err) VALUES(?,?,0,0,?)`,
		reportID, time.Now().Format(time.RFC3339Nano), nullStr(errMsg),
	)
	return err
}

func (s *sqliteStore) GetReport(ctx context.Context, reportID string) (SavedReport, bool, error) {
	if s == nil || s.db == nil {
		return SavedReport{}, false, ErrDisabled
	}
	var (
		rep            SavedReport
		headersJSON    sql.NullString
		dataJSON       string
		lastUpdate     string
		validationJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, headers, data, row_count, last_update, validation_status
		 FROM report_cache WHERE id = ?`, reportID,
	).Scan(&rep.ID, &rep.Label, &headersJSON, &dataJSON, &rep.RowCount, &lastUpdate, &validationJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedReport{}, false, nil
	}
	if err != nil {
		return SavedReport{}, false, err
	}

	if err := json.Unmarshal([]byte(dataJSON), &rep.Rows); err != nil {
		return SavedReport{}, false, fmt.Errorf("unmarshal rows for %s: %w", reportID, err)
	}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &rep.Headers); err != nil {
			return SavedReport{}, false, fmt.Errorf("unmarshal headers for %s: %w", reportID, err)
		}
	}
	if validationJSON.Valid && validationJSON.String != "" {
		if err := json.Unmarshal([]byte(validationJSON.String), &rep.Validation); err != nil {
			return SavedReport{}, false, fmt.Errorf("unmarshal validation for %s: %w", reportID, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, lastUpdate); err == nil {
		rep.LastUpdate = t
	}
	return rep, true, nil
}

func (s *sqliteStore) ListReports(ctx context.Context) ([]Summary, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, row_count, last_update, validation_status
		 FROM report_cache ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sm             Summary
			lastUpdate     string
			validationJSON sql.NullString
		)
		if err := rows.Scan(&sm.ID, &sm.Label, &sm.RowCount, &lastUpdate, &validationJSON); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, lastUpdate); err == nil {
			sm.LastUpdate = t
		}
		if validationJSON.Valid && validationJSON.String != "" {
			var v schema.Result
			if err := json.Unmarshal([]byte(validationJSON.String), &v); err == nil {
				sm.SchemaOK = v.OK
			}
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpdateHistory(ctx context.Context, reportID string, limit int) ([]HistoryEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT report_id, at, row_count, success, err FROM update_history`
	args := []any{}
	if reportID != "" {
		q += ` WHERE report_id = ?`
		args = append(args, reportID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			h       HistoryEntry
			at      string
			success int
			errMsg  sql.NullString
		)
		if err := rows.Scan(&h.ReportID, &at, &h.RowCount, &success, &errMsg); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			h.At = t
		}
		h.Success = success != 0
		h.Error = errMsg.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *sqliteStore) RecordQuery(ctx context.Context, query, reportID string, resultCount int) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_queries(query, report_id, at, result_count) VALUES(?,?,?,?)`,
		query, nullStr(reportID), time.Now().Format(time.RFC3339Nano), resultCount,
	)
	return err
}

func (s *sqliteStore) ClearOldHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	cut := cutoff.Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM update_history WHERE at < ?`, cut)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	res, err = s.db.ExecContext(ctx, `DELETE FROM user_queries WHERE at < ?`, cut)
	if err != nil {
		return n, err
	}
	m, _ := res.RowsAffected()
	return n + m, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
