package cache

import (
	"context"

	"sheetcache/internal/csvx"
	"sheetcache/internal/schema"
	"sheetcache/internal/storage"
	logx "sheetcache/pkg/logx"
)

// Reload runs one full ingestion cycle synchronously.
//
// At most one cycle runs at a time: a call while another is active returns
// ErrReloadInProgress immediately (non-blocking, non-queuing). Reports are
// fetched sequentially; one report's failure never aborts the cycle for the
// others.
func (s *Service) Reload(ctx context.Context) (CycleResult, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return CycleResult{}, ErrReloadInProgress
	}
	defer s.loading.Store(false)

	n := s.loadCount.Add(1)
	start := s.now()
	s.log.Info("reload cycle started", logx.Uint64("cycle", n), logx.Int("reports", s.reg.Len()))

	var res CycleResult
	for _, def := range s.reg.All() {
		if ctx.Err() != nil {
			s.log.Warn("reload cycle canceled", logx.Uint64("cycle", n), logx.Err(ctx.Err()))
			break
		}
		if s.ingestOne(ctx, def.ID, &res) {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	res.Took = s.now().Sub(start)
	s.mu.Lock()
	s.lastLoad = s.now()
	s.mu.Unlock()

	s.log.Info("reload cycle finished",
		logx.Uint64("cycle", n),
		logx.Int("succeeded", res.Succeeded),
		logx.Int("failed", res.Failed),
		logx.Int("total_rows", res.TotalRows),
		logx.Duration("took", res.Took),
	)
	return res, nil
}

// StartReload begins a cycle in the background. The single-flight check
// happens synchronously so callers get a reliable conflict signal.
func (s *Service) StartReload(ctx context.Context) error {
	if s.loading.Load() {
		return ErrReloadInProgress
	}
	go func() {
		if _, err := s.Reload(ctx); err != nil && err != ErrReloadInProgress {
			s.log.Error("background reload failed", logx.Err(err))
		}
	}()
	return nil
}

// ingestOne fetches, parses, validates, and stores a single report.
// Both outcomes replace the in-memory snapshot whole; a failure leaves the
// durable snapshot untouched so it stays usable as a stale fallback.
func (s *Service) ingestOne(ctx context.Context, id string, res *CycleResult) bool {
	def, _ := s.reg.Get(id)
	start := s.now()

	raw, err := s.fetcher.Fetch(ctx, def.URL)
	if err != nil {
		s.log.Error("report fetch failed", logx.String("report", id), logx.Err(err))
		s.audit.LogFailure(id, err.Error(), map[string]string{"url": def.URL})
		if s.store != nil {
			if serr := s.store.RecordFailure(ctx, id, err.Error()); serr != nil && serr != storage.ErrDisabled {
				s.log.Warn("failure history append failed", logx.String("report", id), logx.Err(serr))
			}
		}
		s.setSnapshot(Snapshot{
			ID:          id,
			Label:       def.Label,
			Category:    def.Category,
			Description: def.Description,
			Validation:  schema.Result{OK: false, Missing: []string{}, Extra: []string{}},
			LastUpdate:  s.now(),
			Error:       err.Error(),
		})
		return false
	}

	headers, rows := csvx.Parse(raw)
	expected, hasSchema := s.reg.Schema(id)
	check := schema.Validate(expected, headers, hasSchema)

	snap := Snapshot{
		ID:          id,
		Label:       def.Label,
		Category:    def.Category,
		Description: def.Description,
		Rows:        rows,
		Headers:     headers,
		Validation:  check,
		LastUpdate:  s.now(),
		LoadTime:    s.now().Sub(start),
	}
	s.setSnapshot(snap)
	res.TotalRows += len(rows)

	if !check.OK {
		reason := "schema mismatch"
		if check.NoSchema {
			reason = "no schema registered"
		}
		s.log.Warn("schema check failed",
			logx.String("report", id),
			logx.String("reason", reason),
			logx.Any("missing", check.Missing),
		)
	}

	if s.store != nil {
		err := s.store.SaveReport(ctx, storage.SavedReport{
			ID:         id,
			Label:      def.Label,
			Headers:    headers,
			Rows:       rows,
			Validation: check,
			LastUpdate: snap.LastUpdate,
		})
		if err != nil && err != storage.ErrDisabled {
			s.log.Warn("durable save failed", logx.String("report", id), logx.Err(err))
		}
	}

	s.log.Info("report ingested",
		logx.String("report", id),
		logx.Int("rows", len(rows)),
		logx.Bool("schema_ok", check.OK),
		logx.Duration("took", snap.LoadTime),
	)
	return true
}
