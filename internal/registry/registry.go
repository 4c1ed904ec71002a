// Package registry holds the static report definitions: which CSV feeds
// exist, where they live, and which columns they are expected to carry.
//
// The registry is built once at startup from configuration and is read-only
// afterwards; every other subsystem borrows from it.
package registry

import (
	"sheetcache/internal/config"
)

// Report is one named CSV feed.
type Report struct {
	ID          string
	Label       string
	Category    string
	Description string
	URL         string

	// Schema lists the required column names. Nil means no schema is
	// registered for this report (distinct from an empty requirement).
	Schema []string
}

// Registry is an immutable lookup over the configured reports.
type Registry struct {
	reports    []Report
	byID       map[string]int
	categories []string // first-seen config order
}

func New(defs []config.ReportConfig, schemas map[string][]string) *Registry {
	r := &Registry{
		reports: make([]Report, 0, len(defs)),
		byID:    make(map[string]int, len(defs)),
	}
	seenCat := make(map[string]struct{}, 8)
	for _, d := range defs {
		rep := Report{
			ID:          d.ID,
			Label:       d.Label,
			Category:    d.Category,
			Description: d.Description,
			URL:         d.URL,
		}
		if cols, ok := schemas[d.ID]; ok {
			rep.Schema = append([]string(nil), cols...)
		}
		r.byID[d.ID] = len(r.reports)
		r.reports = append(r.reports, rep)
		if _, ok := seenCat[d.Category]; !ok {
			seenCat[d.Category] = struct{}{}
			r.categories = append(r.categories, d.Category)
		}
	}
	return r
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Report, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Report{}, false
	}
	return r.reports[i], true
}

// All returns every report in config order.
func (r *Registry) All() []Report {
	return append([]Report(nil), r.reports...)
}

// ByCategory returns the reports in the given category, config order.
func (r *Registry) ByCategory(category string) []Report {
	var out []Report
	for _, rep := range r.reports {
		if rep.Category == category {
			out = append(out, rep)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.categories...)
}

// IDs returns every report id in config order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep.ID)
	}
	return out
}

// Schema returns the required columns for id.
// ok is false when the report has no registered schema.
func (r *Registry) Schema(id string) ([]string, bool) {
	rep, found := r.Get(id)
	if !found || rep.Schema == nil {
		return nil, false
	}
	return append([]string(nil), rep.Schema...), true
}

// Len reports the number of configured reports.
func (r *Registry) Len() int { return len(r.reports) }
