package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/dto"
	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/response"
)

type bridgeService interface {
	RunBridge(ctx context.Context, window models.Window, scope models.Scope, today time.Time, t models.Thresholds) (*models.BridgeRunResult, error)
}

// BridgeHandler triggers insight-to-action bridging over HTTP.
type BridgeHandler struct {
	service  bridgeService
	defaults models.Thresholds
}

// NewBridgeHandler constructs the handler.
func NewBridgeHandler(service bridgeService, defaults models.Thresholds) *BridgeHandler {
	return &BridgeHandler{service: service, defaults: defaults}
}

// Run executes one bridging pass and reports what was created.
func (h *BridgeHandler) Run(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.BridgeRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	window, today, err := parseWindow(req.From, req.To, req.Today)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := models.Scope{CenterID: req.CenterID, StudentID: req.StudentID, FacultyID: req.FacultyID}

	result, err := h.service.RunBridge(c.Request.Context(), window, scope, today, req.Apply(h.defaults))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
