package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "sheetcache/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <dir>/reports/<id>.json  (one snapshot per report, replaced atomically)
//   - <dir>/history.jsonl      (append-only update history)
//   - <dir>/queries.jsonl      (append-only user queries)
//
// It trades the sqlite driver's cheap metadata listing for zero native
// dependencies; snapshots are small enough here that listing stays fine.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	dir         string
	reportsDir  string
	historyPath string
	queriesPath string

	historyFile *os.File
	queriesFile *os.File
}

type queryRecord struct {
	Query       string    `json:"query"`
	ReportID    string    `json:"reportId,omitempty"`
	At          time.Time `json:"timestamp"`
	ResultCount int       `json:"resultCount"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	reportsDir := filepath.Join(dir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return nil, err
	}

	historyPath := filepath.Join(dir, "history.jsonl")
	queriesPath := filepath.Join(dir, "queries.jsonl")

	hf, err := os.OpenFile(historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	qf, err := os.OpenFile(queriesPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = hf.Close()
		return nil, err
	}

	return &fileStore{
		log:         log,
		dir:         dir,
		reportsDir:  reportsDir,
		historyPath: historyPath,
		queriesPath: queriesPath,
		historyFile: hf,
		queriesFile: qf,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.historyFile != nil {
		err1 = s.historyFile.Close()
		s.historyFile = nil
	}
	if s.queriesFile != nil {
		err2 = s.queriesFile.Close()
		s.queriesFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

type fileSnapshot struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Headers    []string        `json:"headers,omitempty"`
	Rows       json.RawMessage `json:"rows"`
	RowCount   int             `json:"rowCount"`
	Validation json.RawMessage `json:"validation,omitempty"`
	LastUpdate time.Time       `json:"lastUpdate"`
	SchemaOK   bool            `json:"schemaOk"`
}

func (s *fileStore) snapshotPath(id string) string {
	// ids come from config and are plain tokens; Base guards path traversal anyway.
	return filepath.Join(s.reportsDir, filepath.Base(id)+".json")
}

func (s *fileStore) SaveReport(ctx context.Context, rep SavedReport) error {
	_ = ctx
	if rep.LastUpdate.IsZero() {
		rep.LastUpdate = time.Now()
	}

	rowsJSON, err := json.Marshal(rep.Rows)
	if err != nil {
		return err
	}
	validationJSON, err := json.Marshal(rep.Validation)
	if err != nil {
		return err
	}
	snap := fileSnapshot{
		ID:         rep.ID,
		Label:      rep.Label,
		Headers:    rep.Headers,
		Rows:       rowsJSON,
		RowCount:   len(rep.Rows),
		Validation: validationJSON,
		LastUpdate: rep.LastUpdate,
		SchemaOK:   rep.Validation.OK,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace snapshot atomically so readers never see a torn file.
	path := s.snapshotPath(rep.ID)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	return s.appendHistoryLocked(HistoryEntry{
		ReportID: rep.ID,
		At:       rep.LastUpdate,
		RowCount: len(rep.Rows),
		Success:  true,
	})
}

func (s *fileStore) RecordFailure(ctx context.Context, reportID, errMsg string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendHistoryLocked(HistoryEntry{
		ReportID: reportID,
		At:       time.Now(),
		Success:  false,
		Error:    errMsg,
	})
}

func (s *fileStore) appendHistoryLocked(h HistoryEntry) error {
	if s.historyFile == nil {
		return errors.New("history file closed")
	}
	return json.NewEncoder(s.historyFile).Encode(h)
}

func (s *fileStore) GetReport(ctx context.Context, reportID string) (SavedReport, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := readSnapshot(s.snapshotPath(reportID))
	if errors.Is(err, os.ErrNotExist) {
		return SavedReport{}, false, nil
	}
	if err != nil {
		return SavedReport{}, false, err
	}

	rep := SavedReport{
		ID:         snap.ID,
		Label:      snap.Label,
		Headers:    snap.Headers,
		RowCount:   snap.RowCount,
		LastUpdate: snap.LastUpdate,
	}
	if len(snap.Rows) > 0 {
		if err := json.Unmarshal(snap.Rows, &rep.Rows); err != nil {
			return SavedReport{}, false, err
		}
	}
	if len(snap.Validation) > 0 {
		if err := json.Unmarshal(snap.Validation, &rep.Validation); err != nil {
			return SavedReport{}, false, err
		}
	}
	return rep, true, nil
}

func (s *fileStore) ListReports(ctx context.Context) ([]Summary, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.reportsDir)
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		snap, err := readSnapshot(filepath.Join(s.reportsDir, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable snapshot", logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		out = append(out, Summary{
			ID:         snap.ID,
			Label:      snap.Label,
			RowCount:   snap.RowCount,
			LastUpdate: snap.LastUpdate,
			SchemaOK:   snap.SchemaOK,
		})
	}
	return out, nil
}

func readSnapshot(path string) (fileSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileSnapshot{}, err
	}
	defer f.Close()
	var snap fileSnapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return fileSnapshot{}, err
	}
	return snap, nil
}

func (s *fileStore) UpdateHistory(ctx context.Context, reportID string, limit int) ([]HistoryEntry, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := readHistory(s.historyPath)
	if err != nil {
		return nil, err
	}

	var out []HistoryEntry
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if reportID != "" && all[i].ReportID != reportID {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

func readHistory(path string) ([]HistoryEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []HistoryEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var h HistoryEntry
		if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
			continue
		}
		out = append(out, h)
	}
	return out, sc.Err()
}

func (s *fileStore) RecordQuery(ctx context.Context, query, reportID string, resultCount int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queriesFile == nil {
		return errors.New("queries file closed")
	}
	return json.NewEncoder(s.queriesFile).Encode(queryRecord{
		Query:       query,
		ReportID:    reportID,
		At:          time.Now(),
		ResultCount: resultCount,
	})
}

func (s *fileStore) ClearOldHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := readHistory(s.historyPath)
	if err != nil {
		return 0, err
	}
	kept := all[:0]
	for _, h := range all {
		if h.At.After(cutoff) {
			kept = append(kept, h)
		}
	}
	removed := int64(len(all) - len(kept))
	if removed == 0 {
		return 0, nil
	}

	// Rewrite via tmp+rename, then reopen the append handle.
	tmp := s.historyPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(f)
	for _, h := range kept {
		if err := enc.Encode(h); err != nil {
			_ = f.Close()
			return 0, err
		}
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if s.historyFile != nil {
		_ = s.historyFile.Close()
	}
	if err := os.Rename(tmp, s.historyPath); err != nil {
		return 0, err
	}
	s.historyFile, err = os.OpenFile(s.historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return removed, err
	}
	return removed, nil
}
