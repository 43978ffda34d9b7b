package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/dto"
	"github.com/noah-isme/tc-insight-api/internal/models"
	"github.com/noah-isme/tc-insight-api/internal/service"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/response"
)

type exportService interface {
	Enabled() bool
	ExportInsights(ctx context.Context, format service.ExportFormat, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) ([]byte, string, error)
}

// ExportHandler streams insight reports as CSV or PDF downloads.
type ExportHandler struct {
	service  exportService
	defaults models.Thresholds
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService, defaults models.Thresholds) *ExportHandler {
	return &ExportHandler{service: service, defaults: defaults}
}

// Export runs the detection pipeline and returns the rendered report.
func (h *ExportHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.ExportQuery
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

	payload, filename, err := h.service.ExportInsights(c.Request.Context(), service.ExportFormat(query.Format),
		window, scope, today, query.Apply(h.defaults))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if service.ExportFormat(query.Format) == service.ExportPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
