package httpapi

import (
	"sheetcache/internal/auditlog"
	"sheetcache/internal/cache"
	"sheetcache/internal/csvx"
	"sheetcache/internal/storage"
)

// ReportSummary is one row of the GET /reports listing.
type ReportSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Category   string `json:"category"`
	Rows       int    `json:"rows"`
	SchemaOK   bool   `json:"schemaOk"`
	LastUpdate string `json:"lastUpdate,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ListReportsResponse is the response for GET /reports.
type ListReportsResponse struct {
	Total    int             `json:"total"`
	Category string          `json:"category"`
	Reports  []ReportSummary `json:"reports"`
}

// ReportResponse is the response for GET /reports/:id.
type ReportResponse struct {
	ID    string     `json:"id"`
	Meta  cache.Meta `json:"meta"`
	Count int        `json:"count"`
	Data  []csvx.Row `json:"data"`
}

// SearchResponse is the response for GET /reports/:id/search.
type SearchResponse struct {
	Query        string     `json:"query"`
	Field        string     `json:"field"`
	TotalMatches int        `json:"totalMatches"`
	Returned     int        `json:"returned"`
	Limit        int        `json:"limit"`
	Results      []csvx.Row `json:"results"`
}

// GlobalSearchResponse is the response for GET /search.
type GlobalSearchResponse struct {
	Query        string              `json:"query"`
	TotalReports int                 `json:"totalReports"`
	TotalMatches int                 `json:"totalMatches"`
	Results      []cache.GroupResult `json:"results"`
}

// CategorySummary is one entry of the GET /categories rollup.
type CategorySummary struct {
	Name        string              `json:"name"`
	ReportCount int                 `json:"reportCount"`
	TotalRows   int                 `json:"totalRows"`
	Reports     []CategoryReportRef `json:"reports"`
}

type CategoryReportRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Rows  int    `json:"rows"`
}

// CategoriesResponse is the response for GET /categories.
type CategoriesResponse struct {
	Total      int               `json:"total"`
	Categories []CategorySummary `json:"categories"`
}

// CategoryDetail is one report in GET /categories/:category.
type CategoryDetail struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
	SchemaOK    bool   `json:"schemaOk"`
	LastUpdate  string `json:"lastUpdate,omitempty"`
}

// CategoryResponse is the response for GET /categories/:category.
type CategoryResponse struct {
	Category    string           `json:"category"`
	ReportCount int              `json:"reportCount"`
	Reports     []CategoryDetail `json:"reports"`
}

// HealthStats are the rollup counters inside GET /health.
type HealthStats struct {
	TotalReports int `json:"totalReports"`
	ValidSchemas int `json:"validSchemas"`
	Errors       int `json:"errors"`
	TotalRows    int `json:"totalRows"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	OK           bool                  `json:"ok"`
	Status       string                `json:"status"`
	Timestamp    string                `json:"timestamp"`
	LastLoadTime string                `json:"lastLoadTime,omitempty"`
	LoadCount    uint64                `json:"loadCount"`
	IsLoading    bool                  `json:"isLoading"`
	Stats        HealthStats           `json:"stats"`
	Reports      map[string]cache.Meta `json:"reports"`
}

// StatusResponse is the response for GET /status.
type StatusResponse struct {
	OK           bool   `json:"ok"`
	Loading      bool   `json:"loading"`
	LastLoadTime string `json:"lastLoadTime,omitempty"`
	LoadCount    uint64 `json:"loadCount"`
	TotalReports int    `json:"totalReports"`
}

// LogStatsResponse is the response for GET /logs/stats.
type LogStatsResponse struct {
	Failures auditlog.FailureStats `json:"failures"`
	Accesses auditlog.AccessStats  `json:"accesses"`
}

// HistoryResponse is the response for GET /reports/:id/history.
type HistoryResponse struct {
	ReportID string                 `json:"reportId"`
	Entries  []storage.HistoryEntry `json:"entries"`
}
