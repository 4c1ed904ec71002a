package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sheetcache/internal/auditlog"
	"sheetcache/internal/csvx"
	"sheetcache/internal/registry"
	"sheetcache/internal/storage"
	logx "sheetcache/pkg/logx"
)

// Fetcher retrieves raw CSV text for a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Service is the report cache: registry + in-memory snapshots + durable
// fallback + ingestion bookkeeping.
type Service struct {
	reg     *registry.Registry
	fetcher Fetcher
	store   storage.Store // may be nil (memory-only)
	audit   *auditlog.Log
	log     logx.Logger

	mu       sync.RWMutex
	snaps    map[string]Snapshot
	lastLoad time.Time

	loading   atomic.Bool
	loadCount atomic.Uint64

	now func() time.Time
}

func New(reg *registry.Registry, fetcher Fetcher, store storage.Store, audit *auditlog.Log, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		reg:     reg,
		fetcher: fetcher,
		store:   store,
		audit:   audit,
		log:     log,
		snaps:   make(map[string]Snapshot),
		now:     time.Now,
	}
}

// Registry exposes the immutable report definitions.
func (s *Service) Registry() *registry.Registry { return s.reg }

// AuditLog exposes the failure/access log store.
func (s *Service) AuditLog() *auditlog.Log { return s.audit }

// Store exposes the durable cache (nil when disabled).
func (s *Service) Store() storage.Store { return s.store }

// IsLoading reports whether a reload cycle is in progress.
func (s *Service) IsLoading() bool { return s.loading.Load() }

// LoadCount returns how many reload cycles have started this process lifetime.
func (s *Service) LoadCount() uint64 { return s.loadCount.Load() }

// LastLoadTime returns when the last reload cycle finished (zero if never).
func (s *Service) LastLoadTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad
}

// Get returns the current snapshot for id.
//
// The read prefers the in-memory tier; when the report has never been
// ingested this process lifetime it falls back to the durable store. Every
// successful read appends one access log entry with its source and latency.
func (s *Service) Get(ctx context.Context, id string) (Snapshot, bool) {
	if _, known := s.reg.Get(id); !known {
		return Snapshot{}, false
	}

	start := s.now()

	s.mu.RLock()
	snap, ok := s.snaps[id]
	s.mu.RUnlock()
	if ok {
		snap.Rows = csvx.Clone(snap.Rows)
		s.audit.LogAccess(id, "memory", s.now().Sub(start))
		return snap, true
	}

	if s.store == nil {
		return Snapshot{}, false
	}
	saved, found, err := s.store.GetReport(ctx, id)
	if err != nil {
		s.log.Warn("durable cache read failed", logx.String("report", id), logx.Err(err))
		return Snapshot{}, false
	}
	if !found {
		return Snapshot{}, false
	}

	def, _ := s.reg.Get(id)
	snap = Snapshot{
		ID:          saved.ID,
		Label:       saved.Label,
		Category:    def.Category,
		Description: def.Description,
		Rows:        saved.Rows,
		Headers:     saved.Headers,
		Validation:  saved.Validation,
		LastUpdate:  saved.LastUpdate,
	}
	s.audit.LogAccess(id, "store", s.now().Sub(start))
	return snap, true
}

// Peek returns the in-memory snapshot without touching the durable tier or
// the access log. Used by health/stat rollups.
func (s *Service) Peek(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	return snap, ok
}

// Snapshots returns the current in-memory snapshots keyed by id.
func (s *Service) Snapshots() map[string]Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Snapshot, len(s.snaps))
	for id, snap := range s.snaps {
		out[id] = snap
	}
	return out
}

// Evict drops the in-memory snapshot for id. It does not touch the durable
// tier. Returns false when no snapshot was present.
func (s *Service) Evict(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id]; !ok {
		return false
	}
	delete(s.snaps, id)
	s.log.Info("snapshot evicted", logx.String("report", id))
	return true
}

// Stats computes the cache-level summary counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalReports: s.reg.Len(),
		Categories:   len(s.reg.Categories()),
	}
	var last time.Time
	for _, snap := range s.snaps {
		if len(snap.Rows) > 0 {
			st.LoadedReports++
		}
		st.TotalRows += len(snap.Rows)
		if snap.Validation.OK {
			st.ValidSchemas++
		}
		if snap.LastUpdate.After(last) {
			last = snap.LastUpdate
		}
	}
	if !last.IsZero() {
		st.LastUpdate = last.Format(time.RFC3339)
	}
	return st
}

func (s *Service) setSnapshot(snap Snapshot) {
	s.mu.Lock()
	s.snaps[snap.ID] = snap
	s.mu.Unlock()
}
