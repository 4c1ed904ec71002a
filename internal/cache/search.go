package cache

import (
	"context"
	"strings"

	"sheetcache/internal/csvx"
	"sheetcache/internal/storage"
	logx "sheetcache/pkg/logx"
)

// GlobalSearchCap bounds how many sample rows each report contributes to a
// cross-report search result group.
const GlobalSearchCap = 5

// SearchResult is the outcome of a single-report search.
type SearchResult struct {
	TotalMatches int
	Results      []csvx.Row
}

// GroupResult is one report's contribution to a cross-report search.
type GroupResult struct {
	ReportID    string     `json:"reportId"`
	ReportLabel string     `json:"reportLabel"`
	Matches     int        `json:"matches"`
	Sample      []csvx.Row `json:"sample"`
}

// Search scans one report for rows containing q (case-insensitive substring
// match). An empty field matches any column; otherwise only the named column
// is inspected. At most limit rows are returned; TotalMatches is uncapped.
func (s *Service) Search(ctx context.Context, id, q, field string, limit int) (SearchResult, error) {
	snap, ok := s.Get(ctx, id)
	if !ok {
		return SearchResult{}, ErrNotFound
	}

	needle := strings.ToLower(q)
	var res SearchResult
	for _, row := range snap.Rows {
		if !rowMatches(row, needle, field) {
			continue
		}
		res.TotalMatches++
		if limit <= 0 || len(res.Results) < limit {
			res.Results = append(res.Results, row)
		}
	}
	if res.Results == nil {
		res.Results = []csvx.Row{}
	}

	s.recordQuery(ctx, q, id, res.TotalMatches)
	return res, nil
}

// SearchAll scans every cached report for q. Each matching report yields one
// group with its true match count and a sample capped at GlobalSearchCap.
func (s *Service) SearchAll(ctx context.Context, q string) []GroupResult {
	needle := strings.ToLower(q)
	var total int

	groups := []GroupResult{}
	for _, def := range s.reg.All() {
		snap, ok := s.Peek(def.ID)
		if !ok {
			continue
		}
		g := GroupResult{ReportID: def.ID, ReportLabel: def.Label, Sample: []csvx.Row{}}
		for _, row := range snap.Rows {
			if !rowMatches(row, needle, "") {
				continue
			}
			g.Matches++
			if len(g.Sample) < GlobalSearchCap {
				g.Sample = append(g.Sample, row)
			}
		}
		if g.Matches > 0 {
			groups = append(groups, g)
			total += g.Matches
		}
	}

	s.recordQuery(ctx, q, "", total)
	return groups
}

func rowMatches(row csvx.Row, needle, field string) bool {
	if field != "" {
		v, ok := row[field]
		return ok && v != "" && strings.Contains(strings.ToLower(v), needle)
	}
	for _, v := range row {
		if v != "" && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func (s *Service) recordQuery(ctx context.Context, q, reportID string, resultCount int) {
	if s.store == nil {
		return
	}
	if err := s.store.RecordQuery(ctx, q, reportID, resultCount); err != nil && err != storage.ErrDisabled {
		s.log.Debug("query audit failed", logx.String("query", q), logx.Err(err))
	}
}
