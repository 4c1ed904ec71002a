// Package auditlog keeps bounded in-memory logs of ingestion failures and
// read accesses, plus aggregate statistics over them.
//
// Both stores are ring buffers: appends past the cap silently drop the
// oldest entry. Entries are never mutated after append; they leave only via
// cap eviction or an explicit retention sweep (ClearOld).
package auditlog

import (
	"sync"
	"time"

	logx "sheetcache/pkg/logx"
)

const (
	FailureCap = 1000
	AccessCap  = 5000
)

// FailureEntry records one ingestion failure.
type FailureEntry struct {
	ReportID string            `json:"reportId"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
	At       time.Time         `json:"timestamp"`
}

// AccessEntry records one successful read.
type AccessEntry struct {
	ReportID string        `json:"reportId"`
	Source   string        `json:"source"` // "memory" or "store"
	Latency  time.Duration `json:"latency"`
	At       time.Time     `json:"timestamp"`
}

// ring is a fixed-capacity buffer that overwrites oldest-first.
type ring[T any] struct {
	buf   []T
	next  int
	count int
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// items returns the contents oldest-first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

func (r *ring[T]) replace(items []T) {
	r.next = 0
	r.count = 0
	for _, v := range items {
		r.push(v)
	}
}

// Log owns the failure and access stores. Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	failures ring[FailureEntry]
	accesses ring[AccessEntry]

	log logx.Logger
	now func() time.Time
}

func New(log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{
		failures: newRing[FailureEntry](FailureCap),
		accesses: newRing[AccessEntry](AccessCap),
		log:      log,
		now:      time.Now,
	}
}

// LogFailure appends one failure entry.
func (l *Log) LogFailure(reportID, reason string, metadata map[string]string) {
	e := FailureEntry{ReportID: reportID, Reason: reason, Metadata: metadata, At: l.now()}
	l.mu.Lock()
	l.failures.push(e)
	l.mu.Unlock()
	l.log.Debug("failure recorded", logx.String("report", reportID), logx.String("reason", reason))
}

// LogAccess appends one access entry.
func (l *Log) LogAccess(reportID, source string, latency time.Duration) {
	e := AccessEntry{ReportID: reportID, Source: source, Latency: latency, At: l.now()}
	l.mu.Lock()
	l.accesses.push(e)
	l.mu.Unlock()
}

// Failures returns the most recent entries, newest first.
// An empty reportID matches every report. limit<=0 means no limit.
func (l *Log) Failures(reportID string, limit int) []FailureEntry {
	l.mu.Lock()
	all := l.failures.items()
	l.mu.Unlock()

	out := make([]FailureEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if reportID != "" && all[i].ReportID != reportID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Accesses returns the most recent entries, newest first.
func (l *Log) Accesses(reportID string, limit int) []AccessEntry {
	l.mu.Lock()
	all := l.accesses.items()
	l.mu.Unlock()

	out := make([]AccessEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if reportID != "" && all[i].ReportID != reportID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ClearOld drops entries older than daysOld days from both stores and
// returns the removed counts. This is an explicit retention operation, not
// something that runs automatically.
func (l *Log) ClearOld(daysOld int) (removedFailures, removedAccesses int) {
	cutoff := l.now().AddDate(0, 0, -daysOld)

	l.mu.Lock()
	defer l.mu.Unlock()

	fs := l.failures.items()
	kept := fs[:0]
	for _, f := range fs {
		if f.At.After(cutoff) {
			kept = append(kept, f)
		}
	}
	removedFailures = len(fs) - len(kept)
	l.failures.replace(kept)

	as := l.accesses.items()
	keptA := as[:0]
	for _, a := range as {
		if a.At.After(cutoff) {
			keptA = append(keptA, a)
		}
	}
	removedAccesses = len(as) - len(keptA)
	l.accesses.replace(keptA)

	l.log.Info("old log entries cleared",
		logx.Int("failures_removed", removedFailures),
		logx.Int("accesses_removed", removedAccesses),
		logx.Int("days", daysOld),
	)
	return removedFailures, removedAccesses
}
