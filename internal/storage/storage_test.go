package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sheetcache/internal/csvx"
	"sheetcache/internal/schema"
	logx "sheetcache/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	if driver == "file" {
		path = filepath.Join(dir, "cache")
	}
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open %s store: %v", driver, err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleReport(rows int) SavedReport {
	rs := make([]csvx.Row, 0, rows)
	for i := 0; i < rows; i++ {
		rs = append(rs, csvx.Row{"NOME": "DANONE", "CIDADE": "SAO PAULO"})
	}
	return SavedReport{
		ID:      "clientes",
		Label:   "Clientes",
		Headers: []string{"NOME", "CIDADE"},
		Rows:    rs,
		Validation: schema.Result{
			OK:       true,
			Missing:  []string{},
			Extra:    []string{},
			Expected: []string{"NOME", "CIDADE"},
			Actual:   []string{"NOME", "CIDADE"},
		},
		LastUpdate: time.Now().UTC().Truncate(time.Second),
	}
}

func testStore(t *testing.T, driver string) {
	ctx := context.Background()
	st := openTestStore(t, driver)

	rep := sampleReport(3)
	if err := st.SaveReport(ctx, rep); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := st.GetReport(ctx, "clientes")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.ID != "clientes" || got.Label != "Clientes" {
		t.Fatalf("identity mangled: %+v", got)
	}
	if len(got.Rows) != 3 || got.Rows[0]["NOME"] != "DANONE" {
		t.Fatalf("rows mangled: %v", got.Rows)
	}
	if !got.Validation.OK {
		t.Fatalf("validation not persisted: %+v", got.Validation)
	}

	// Saving again must replace, not duplicate.
	rep2 := sampleReport(5)
	rep2.LastUpdate = rep.LastUpdate.Add(time.Minute)
	if err := st.SaveReport(ctx, rep2); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err = st.GetReport(ctx, "clientes")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if len(got.Rows) != 5 {
		t.Fatalf("upsert should replace the snapshot, got %d rows", len(got.Rows))
	}

	sums, err := st.ListReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sums) != 1 || sums[0].RowCount != 5 || !sums[0].SchemaOK {
		t.Fatalf("expected one summary with 5 rows, got %+v", sums)
	}

	// History: two successes plus one failure, newest first.
	if err := st.RecordFailure(ctx, "clientes", "fetch timeout"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	hist, err := st.UpdateHistory(ctx, "clientes", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(hist))
	}
	if hist[0].Success || hist[0].Error != "fetch timeout" {
		t.Fatalf("newest entry should be the failure: %+v", hist[0])
	}
	if !hist[1].Success || hist[1].RowCount != 5 {
		t.Fatalf("expected success entry with 5 rows: %+v", hist[1])
	}

	// A failure must not clobber the persisted snapshot.
	got, found, err = st.GetReport(ctx, "clientes")
	if err != nil || !found || len(got.Rows) != 5 {
		t.Fatalf("failure clobbered snapshot: found=%v rows=%d err=%v", found, len(got.Rows), err)
	}

	if err := st.RecordQuery(ctx, "danone", "clientes", 3); err != nil {
		t.Fatalf("record query: %v", err)
	}

	removed, err := st.ClearOldHistory(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("clear history: %v", err)
	}
	if removed < 3 {
		t.Fatalf("expected at least 3 removed entries, got %d", removed)
	}
	hist, err = st.UpdateHistory(ctx, "clientes", 10)
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("history should be empty after sweep, got %d", len(hist))
	}
}

func TestSQLiteStore(t *testing.T) { testStore(t, "sqlite") }
func TestFileStore(t *testing.T)   { testStore(t, "file") }

func TestGetReportMissing(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{"sqlite", "file"} {
		st := openTestStore(t, driver)
		_, found, err := st.GetReport(ctx, "nope")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", driver, err)
		}
		if found {
			t.Fatalf("%s: found a report that was never saved", driver)
		}
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q should disable storage", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "cache")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.SaveReport(ctx, sampleReport(2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	st.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, found, err := st2.GetReport(ctx, "clientes")
	if err != nil || !found || len(got.Rows) != 2 {
		t.Fatalf("snapshot lost across reopen: found=%v rows=%d err=%v", found, len(got.Rows), err)
	}
}
