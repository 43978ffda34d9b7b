package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/service"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/response"
)

// MetricsHandler exposes aggregated system metrics.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(service *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// System returns the aggregated metrics snapshot.
func (h *MetricsHandler) System(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Snapshot(), nil)
}

// Prometheus serves the Prometheus exposition endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.service == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.service.Handler().ServeHTTP(c.Writer, c.Request)
}
