package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sheetcache/internal/cache"
	logx "sheetcache/pkg/logx"
)

const (
	defaultReportSearchLimit = 100
	defaultGlobalSearchLimit = 50
)

// Handlers serves the read-mostly query surface over the cache service.
type Handlers struct {
	svc *cache.Service
	log logx.Logger
}

func NewHandlers(svc *cache.Service, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{svc: svc, log: log}
}

// RegisterRoutes attaches every endpoint to the router.
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/", h.HandleIndex)
	r.GET("/health", h.HandleHealth)
	r.GET("/status", h.HandleStatus)
	r.GET("/stats", h.HandleStats)

	r.GET("/reports", h.HandleListReports)
	r.GET("/reports/:id", h.HandleReport)
	r.GET("/reports/:id/data", h.HandleReportData)
	r.GET("/reports/:id/meta", h.HandleReportMeta)
	r.GET("/reports/:id/search", h.HandleReportSearch)
	r.GET("/reports/:id/history", h.HandleReportHistory)
	r.DELETE("/reports/:id/cache", h.HandleEvict)

	r.GET("/categories", h.HandleCategories)
	r.GET("/categories/:category", h.HandleCategory)

	r.GET("/search", h.HandleGlobalSearch)
	r.POST("/reload", h.HandleReload)

	r.GET("/logs/failures", h.HandleFailures)
	r.GET("/logs/accesses", h.HandleAccesses)
	r.GET("/logs/stats", h.HandleLogStats)
	r.DELETE("/logs", h.HandleClearLogs)
}

// HandleIndex describes the service and its endpoints.
func (h *Handlers) HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "sheetcache",
		"description": "CSV report cache and query API",
		"endpoints": gin.H{
			"health":          "GET /health - full health report",
			"status":          "GET /status - compact load status",
			"stats":           "GET /stats - cache counters",
			"reports":         "GET /reports?category= - list reports",
			"reportData":      "GET /reports/:id - snapshot data + meta",
			"reportMeta":      "GET /reports/:id/meta - metadata only",
			"reportSearch":    "GET /reports/:id/search?q= - search one report",
			"reportHistory":   "GET /reports/:id/history - update history",
			"categories":      "GET /categories - category rollup",
			"categoryReports": "GET /categories/:category - one category",
			"globalSearch":    "GET /search?q= - search all reports",
			"reload":          "POST /reload - trigger ingestion cycle",
			"evict":           "DELETE /reports/:id/cache - drop memory snapshot",
			"logFailures":     "GET /logs/failures - recent ingestion failures",
			"logAccesses":     "GET /logs/accesses - recent reads",
			"logStats":        "GET /logs/stats - aggregated log statistics",
			"clearLogs":       "DELETE /logs?days= - retention sweep",
		},
		"stats": h.svc.Stats(),
	})
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	snaps := h.svc.Snapshots()

	resp := HealthResponse{
		OK:        true,
		LoadCount: h.svc.LoadCount(),
		IsLoading: h.svc.IsLoading(),
		Timestamp: time.Now().Format(time.RFC3339),
		Reports:   make(map[string]cache.Meta, len(snaps)),
	}
	if t := h.svc.LastLoadTime(); !t.IsZero() {
		resp.LastLoadTime = t.Format(time.RFC3339)
	}

	for id, snap := range snaps {
		resp.Reports[id] = snap.Meta()
		if snap.Failed() {
			resp.OK = false
			resp.Stats.Errors++
		}
		if snap.Validation.OK {
			resp.Stats.ValidSchemas++
		} else {
			resp.OK = false
		}
		resp.Stats.TotalRows += len(snap.Rows)
	}
	resp.Stats.TotalReports = len(snaps)

	resp.Status = "healthy"
	if !resp.OK {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) HandleStatus(c *gin.Context) {
	resp := StatusResponse{
		OK:           !h.svc.IsLoading(),
		Loading:      h.svc.IsLoading(),
		LoadCount:    h.svc.LoadCount(),
		TotalReports: len(h.svc.Snapshots()),
	}
	if t := h.svc.LastLoadTime(); !t.IsZero() {
		resp.LastLoadTime = t.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *Handlers) HandleListReports(c *gin.Context) {
	category := c.Query("category")

	reg := h.svc.Registry()
	defs := reg.All()
	if category != "" {
		defs = reg.ByCategory(category)
	}

	summaries := make([]ReportSummary, 0, len(defs))
	for _, def := range defs {
		sum := ReportSummary{ID: def.ID, Label: def.Label, Category: def.Category}
		if snap, ok := h.svc.Peek(def.ID); ok {
			sum.Rows = len(snap.Rows)
			sum.SchemaOK = snap.Validation.OK
			sum.LastUpdate = snap.LastUpdate.Format(time.RFC3339)
			sum.Error = snap.Error
		}
		summaries = append(summaries, sum)
	}

	cat := category
	if cat == "" {
		cat = "all"
	}
	c.JSON(http.StatusOK, ListReportsResponse{
		Total:    len(summaries),
		Category: cat,
		Reports:  summaries,
	})
}

func (h *Handlers) HandleReport(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.svc.Get(c.Request.Context(), id)
	if !ok {
		h.reportNotFound(c)
		return
	}
	c.JSON(http.StatusOK, ReportResponse{
		ID:    id,
		Meta:  snap.Meta(),
		Count: len(snap.Rows),
		Data:  snap.Rows,
	})
}

func (h *Handlers) HandleReportData(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.svc.Get(c.Request.Context(), id)
	if !ok {
		h.reportNotFound(c)
		return
	}
	c.JSON(http.StatusOK, snap.Rows)
}

func (h *Handlers) HandleReportMeta(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.svc.Get(c.Request.Context(), id)
	if !ok {
		h.reportNotFound(c)
		return
	}
	c.JSON(http.StatusOK, snap.Meta())
}

func (h *Handlers) HandleReportSearch(c *gin.Context) {
	id := c.Param("id")
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `query parameter "q" is required`})
		return
	}
	field := c.Query("field")
	limit := queryInt(c, "limit", defaultReportSearchLimit)

	res, err := h.svc.Search(c.Request.Context(), id, q, field, limit)
	if err != nil {
		h.reportNotFound(c)
		return
	}

	fieldName := field
	if fieldName == "" {
		fieldName = "all"
	}
	c.JSON(http.StatusOK, SearchResponse{
		Query:        q,
		Field:        fieldName,
		TotalMatches: res.TotalMatches,
		Returned:     len(res.Results),
		Limit:        limit,
		Results:      res.Results,
	})
}

func (h *Handlers) HandleReportHistory(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.svc.Registry().Get(id); !ok {
		h.reportNotFound(c)
		return
	}
	store := h.svc.Store()
	if store == nil {
		c.JSON(http.StatusOK, HistoryResponse{ReportID: id})
		return
	}
	limit := queryInt(c, "limit", 50)
	entries, err := store.UpdateHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.log.Error("history query failed", logx.String("report", id), logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{ReportID: id, Entries: entries})
}

func (h *Handlers) HandleEvict(c *gin.Context) {
	id := c.Param("id")
	if !h.svc.Evict(id) {
		h.reportNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared for " + id})
}

func (h *Handlers) HandleCategories(c *gin.Context) {
	reg := h.svc.Registry()
	cats := reg.Categories()

	out := make([]CategorySummary, 0, len(cats))
	for _, cat := range cats {
		sum := CategorySummary{Name: cat, Reports: []CategoryReportRef{}}
		for _, def := range reg.ByCategory(cat) {
			ref := CategoryReportRef{ID: def.ID, Label: def.Label}
			if snap, ok := h.svc.Peek(def.ID); ok {
				ref.Rows = len(snap.Rows)
			}
			sum.TotalRows += ref.Rows
			sum.ReportCount++
			sum.Reports = append(sum.Reports, ref)
		}
		out = append(out, sum)
	}
	c.JSON(http.StatusOK, CategoriesResponse{Total: len(out), Categories: out})
}

func (h *Handlers) HandleCategory(c *gin.Context) {
	cat := c.Param("category")
	reg := h.svc.Registry()
	defs := reg.ByCategory(cat)
	if len(defs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":               "category not found",
			"availableCategories": reg.Categories(),
		})
		return
	}

	reports := make([]CategoryDetail, 0, len(defs))
	for _, def := range defs {
		d := CategoryDetail{ID: def.ID, Label: def.Label, Description: def.Description}
		if snap, ok := h.svc.Peek(def.ID); ok {
			d.Rows = len(snap.Rows)
			d.SchemaOK = snap.Validation.OK
			d.LastUpdate = snap.LastUpdate.Format(time.RFC3339)
		}
		reports = append(reports, d)
	}
	c.JSON(http.StatusOK, CategoryResponse{
		Category:    cat,
		ReportCount: len(reports),
		Reports:     reports,
	})
}

func (h *Handlers) HandleGlobalSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": `query parameter "q" is required`})
		return
	}
	limit := queryInt(c, "limit", defaultGlobalSearchLimit)

	groups := h.svc.SearchAll(c.Request.Context(), q)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	total := 0
	for _, g := range groups {
		total += g.Matches
	}
	c.JSON(http.StatusOK, GlobalSearchResponse{
		Query:        q,
		TotalReports: len(groups),
		TotalMatches: total,
		Results:      groups,
	})
}

func (h *Handlers) HandleReload(c *gin.Context) {
	// Detach from the request context: the cycle outlives this request.
	if err := h.svc.StartReload(context.WithoutCancel(c.Request.Context())); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "reload already in progress",
			"isLoading": true,
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message":   "reload started",
		"loadCount": h.svc.LoadCount() + 1,
	})
}

func (h *Handlers) HandleFailures(c *gin.Context) {
	report := c.Query("report")
	limit := queryInt(c, "limit", 50)
	c.JSON(http.StatusOK, gin.H{
		"failures": h.svc.AuditLog().Failures(report, limit),
	})
}

func (h *Handlers) HandleAccesses(c *gin.Context) {
	report := c.Query("report")
	limit := queryInt(c, "limit", 100)
	c.JSON(http.StatusOK, gin.H{
		"accesses": h.svc.AuditLog().Accesses(report, limit),
	})
}

func (h *Handlers) HandleLogStats(c *gin.Context) {
	c.JSON(http.StatusOK, LogStatsResponse{
		Failures: h.svc.AuditLog().FailureStats(),
		Accesses: h.svc.AuditLog().AccessStats(),
	})
}

func (h *Handlers) HandleClearLogs(c *gin.Context) {
	days := queryInt(c, "days", 30)
	removedFailures, removedAccesses := h.svc.AuditLog().ClearOld(days)

	var removedHistory int64
	if store := h.svc.Store(); store != nil {
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.ClearOldHistory(c.Request.Context(), cutoff)
		if err != nil {
			h.log.Warn("history retention sweep failed", logx.Err(err))
		}
		removedHistory = n
	}

	c.JSON(http.StatusOK, gin.H{
		"removedFailures": removedFailures,
		"removedAccesses": removedAccesses,
		"removedHistory":  removedHistory,
		"days":            days,
	})
}

func (h *Handlers) reportNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":            "report not found",
		"availableReports": h.svc.Registry().IDs(),
	})
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
