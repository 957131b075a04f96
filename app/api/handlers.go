package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandeep/marker-comb/app/database"
	"github.com/leandeep/marker-comb/app/marker"
	"github.com/leandeep/marker-comb/app/report"
	"github.com/leandeep/marker-comb/app/store"
	"github.com/leandeep/marker-comb/app/tasks"
)

func NewHandler(markerRepo database.MarkerRepository, resultRepo database.ResultRepository,
	accepted *store.AcceptedStore, quarantine *store.QuarantineStore, qualifier *marker.Qualifier,
	reportWriter *report.Writer, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		markerRepo:   markerRepo,
		resultRepo:   resultRepo,
		accepted:     accepted,
		quarantine:   quarantine,
		qualifier:    qualifier,
		reportWriter: reportWriter,
		scheduler:    scheduler,
	}
}

// GetMarker serves an accepted marker document as canonical YAML.
func (h *Handler) GetMarker(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	m, err := h.markerRepo.GetMarker(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_marker", "marker", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if m == nil {
		c.Status(http.StatusNotFound)
		return
	}
	if m.Status == database.MarkerStatusQuarantined {
		c.Status(http.StatusGone)
		return
	}

	data, err := h.accepted.ReadRaw(m.File)
	if err != nil {
		slog.Error("Marker file missing from accepted set", "marker", id, "file", m.File, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.Header("X-Marker-File", m.File)
	c.Header("X-Last-Updated", m.UpdatedAt.Format(time.RFC3339))
	if m.QualityScore != nil {
		c.Header("X-Quality-Score", strconv.FormatFloat(*m.QualityScore, 'f', 1, 64))
		c.Header("X-Quality-Rating", m.QualityRating)
	}

	c.String(http.StatusOK, string(data))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if markerCount, err := h.markerRepo.GetMarkerCount(); err == nil {
		health["markers"] = markerCount
	}
	if resultCount, err := h.resultRepo.GetResultCount(); err == nil {
		health["results"] = resultCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if total, err := h.markerRepo.GetMarkerCount(); err == nil {
		stats["markers"] = total
	}
	if counts, err := h.markerRepo.GetStatusCounts(); err == nil {
		stats["by_status"] = counts
	}
	if accepted, err := h.accepted.List(); err == nil {
		stats["accepted_files"] = len(accepted)
	}
	if resultCount, err := h.resultRepo.GetResultCount(); err == nil {
		stats["results"] = resultCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListMarkers(c *gin.Context) {
	dbMarkers, err := h.markerRepo.ListMarkers()
	if err != nil {
		slog.Error("Database error", "operation", "list_markers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	markers := make([]map[string]interface{}, 0, len(dbMarkers))
	for _, m := range dbMarkers {
		info := map[string]interface{}{
			"id":            m.MarkerID,
			"file":          m.File,
			"category":      m.Category,
			"status":        m.Status,
			"example_count": m.ExampleCount,
			"repaired":      m.Repaired,
			"updated_at":    m.UpdatedAt,
		}
		if m.QualityScore != nil {
			info["quality_score"] = *m.QualityScore
			info["quality_rating"] = m.QualityRating
		}
		markers = append(markers, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"markers": markers,
		"total":   len(markers),
	})
}

func (h *Handler) APIGetMarkerDetails(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing marker id parameter"})
		return
	}

	m, err := h.markerRepo.GetMarker(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_marker", "marker", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Marker not found"})
		return
	}

	details := map[string]interface{}{
		"id":            m.MarkerID,
		"file":          m.File,
		"category":      m.Category,
		"status":        m.Status,
		"example_count": m.ExampleCount,
		"repaired":      m.Repaired,
		"created_at":    m.CreatedAt,
		"updated_at":    m.UpdatedAt,
	}
	if m.QualityScore != nil {
		details["quality_score"] = *m.QualityScore
		details["quality_rating"] = m.QualityRating
	}

	// A fresh validation pass shows the current warnings without touching
	// the stored qualification.
	if doc, err := h.accepted.Load(m.File); err == nil {
		record := h.qualifier.Run(doc)
		details["validation"] = map[string]interface{}{
			"status":   record.Status,
			"errors":   record.Errors,
			"warnings": record.Warnings,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIRequalifyMarker(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing marker id parameter"})
		return
	}

	m, err := h.markerRepo.GetMarker(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_marker", "marker", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Marker not found"})
		return
	}
	if m.Status == database.MarkerStatusQuarantined {
		c.JSON(http.StatusConflict, gin.H{"error": "Marker is quarantined; fix the source document instead"})
		return
	}

	qualifyTask := tasks.NewQualifyMarkerTask(m.File, h.qualifier, h.accepted, h.quarantine,
		h.markerRepo, h.resultRepo)
	if err := h.scheduler.EnqueueTask(qualifyTask); err != nil {
		slog.Error("Error enqueueing qualify task", "marker", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue qualify task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Qualification task enqueued successfully",
		"marker": gin.H{
			"id":   m.MarkerID,
			"file": m.File,
		},
		"task": gin.H{
			"id":   qualifyTask.ID,
			"type": qualifyTask.Type,
		},
	})
}

func (h *Handler) APIGetReport(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	results, err := h.resultRepo.List(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_results", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows := make([]map[string]interface{}, 0, len(results))
	for _, result := range results {
		rows = append(rows, map[string]interface{}{
			"file":       result.File,
			"status":     result.Status,
			"stage":      result.Stage,
			"error":      result.Error,
			"details":    result.Details,
			"created_at": result.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"results": rows,
		"total":   len(rows),
	})
}

func (h *Handler) APIExportReport(c *gin.Context) {
	exportTask := tasks.NewExportReportTask(h.resultRepo, h.reportWriter)
	if err := h.scheduler.EnqueueTask(exportTask); err != nil {
		slog.Error("Error enqueueing export task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue export task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Report export task enqueued successfully",
		"task": gin.H{
			"id":   exportTask.ID,
			"type": exportTask.Type,
		},
	})
}
