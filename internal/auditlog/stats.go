package auditlog

import "time"

// FailureStats aggregates the failure store.
type FailureStats struct {
	Total       int            `json:"total"`
	ByReport    map[string]int `json:"byReport"`
	ByReason    map[string]int `json:"byReason"`
	Last24h     int            `json:"last24h"`
	LastFailure *FailureEntry  `json:"lastFailure,omitempty"`
}

// AccessStats aggregates the access store.
type AccessStats struct {
	Total        int            `json:"total"`
	ByReport     map[string]int `json:"byReport"`
	BySource     map[string]int `json:"bySource"`
	AvgLatencyMS float64        `json:"avgLatencyMs"`
	Last24h      int            `json:"last24h"`
}

func (l *Log) FailureStats() FailureStats {
	l.mu.Lock()
	all := l.failures.items()
	l.mu.Unlock()

	st := FailureStats{
		Total:    len(all),
		ByReport: map[string]int{},
		ByReason: map[string]int{},
	}
	if len(all) == 0 {
		return st
	}

	dayAgo := l.now().Add(-24 * time.Hour)
	for _, f := range all {
		st.ByReport[f.ReportID]++
		st.ByReason[f.Reason]++
		if f.At.After(dayAgo) {
			st.Last24h++
		}
	}
	last := all[len(all)-1]
	st.LastFailure = &last
	return st
}

func (l *Log) AccessStats() AccessStats {
	l.mu.Lock()
	all := l.accesses.items()
	l.mu.Unlock()

	st := AccessStats{
		Total:    len(all),
		ByReport: map[string]int{},
		BySource: map[string]int{},
	}
	if len(all) == 0 {
		return st
	}

	dayAgo := l.now().Add(-24 * time.Hour)
	var totalLatency time.Duration
	for _, a := range all {
		st.ByReport[a.ReportID]++
		st.BySource[a.Source]++
		totalLatency += a.Latency
		if a.At.After(dayAgo) {
			st.Last24h++
		}
	}
	st.AvgLatencyMS = float64(totalLatency.Milliseconds()) / float64(len(all))
	return st
}
