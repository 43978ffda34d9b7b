package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/dto"
	"github.com/noah-isme/tc-insight-api/internal/middleware"
	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/response"
)

type insightService interface {
	ComputeInsights(ctx context.Context, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) (*models.InsightSet, bool, error)
	StudentScore(ctx context.Context, studentID string, window models.Window, today time.Time, t models.Thresholds) (*models.StudentScore, error)
	Timeline(ctx context.Context, entity models.EntityRef, window models.Window) ([]models.TimelineEntry, error)
	CalendarDensity(ctx context.Context, entity models.EntityRef, window models.Window, clampHours float64) ([]models.CalendarDay, error)
}

// InsightHandler wires the detection pipeline to HTTP endpoints.
type InsightHandler struct {
	service  insightService
	defaults models.Thresholds
}

// NewInsightHandler constructs the handler. The defaults come from config and
// are overlaid with per-request overrides.
func NewInsightHandler(service insightService, defaults models.Thresholds) *InsightHandler {
	return &InsightHandler{service: service, defaults: defaults}
}

// Insights runs every detector over the requested window.
func (h *InsightHandler) Insights(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.InsightQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	window, today, err := parseWindow(query.From, query.To, query.Today)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := models.Scope{CenterID: query.CenterID, StudentID: query.StudentID, FacultyID: query.FacultyID}

	start := time.Now()
	set, cacheHit, err := h.service.ComputeInsights(c.Request.Context(), window, scope, today, query.Apply(h.defaults))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, set, nil, meta)
}

// StudentScore computes the composite performance score for one student.
func (h *InsightHandler) StudentScore(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.ScoreQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	window, today, err := parseWindow(query.From, query.To, query.Today)
	if err != nil {
		response.Error(c, err)
		return
	}

	score, err := h.service.StudentScore(c.Request.Context(), c.Param("id"), window, today, query.Apply(h.defaults))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Timeline returns the Gantt-style session view for an entity.
func (h *InsightHandler) Timeline(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	entity, query, err := parseEntityWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	window, _, err := parseWindow(query.From, query.To, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.service.Timeline(c.Request.Context(), entity, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Calendar returns the per-day attended-hours density grid for an entity.
func (h *InsightHandler) Calendar(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	entity, query, err := parseEntityWindow(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	window, _, err := parseWindow(query.From, query.To, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	clamp := h.defaults.DensityClampHours
	if query.ClampHours != nil {
		clamp = *query.ClampHours
	}

	days, err := h.service.CalendarDensity(c.Request.Context(), entity, window, clamp)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

func parseEntityWindow(c *gin.Context) (models.EntityRef, dto.WindowQuery, error) {
	var query dto.WindowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return models.EntityRef{}, query, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	kind := models.EntityKind(c.Param("kind"))
	if !kind.Valid() {
		return models.EntityRef{}, query, appErrors.Clone(appErrors.ErrValidation, "entity kind must be center, student or faculty")
	}
	return models.EntityRef{Kind: kind, ID: c.Param("id")}, query, nil
}

// parseWindow converts the date strings into a window plus an optional
// explicit reference date. An empty today string yields the zero time, which
// the service replaces with the current date.
func parseWindow(fromStr, toStr, todayStr string) (models.Window, time.Time, error) {
	from, err := dto.ParseDate(fromStr)
	if err != nil {
		return models.Window{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := dto.ParseDate(toStr)
	if err != nil {
		return models.Window{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
	}
	var today time.Time
	if todayStr != "" {
		today, err = dto.ParseDate(todayStr)
		if err != nil {
			return models.Window{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid today date, expected YYYY-MM-DD")
		}
	}
	return models.Window{From: from, To: to}, today, nil
}
