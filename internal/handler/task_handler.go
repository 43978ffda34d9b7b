package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/dto"
	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
	"github.com/noah-isme/tc-insight-api/pkg/response"
)

type taskService interface {
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, next models.TaskStatus) (*models.Task, error)
}

// TaskHandler exposes the follow-up task workflow over HTTP.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler constructs the handler.
func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List retrieves tasks matching the query filters.
func (h *TaskHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	filter := models.TaskFilter{
		AssigneeID: query.AssigneeID,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if query.Status != "" {
		status := models.TaskStatus(query.Status)
		filter.Status = &status
	}
	if query.TriggerKind != "" {
		trigger := models.TriggerKind(query.TriggerKind)
		filter.TriggerKind = &trigger
	}

	tasks, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, pagination)
}

// Get retrieves a single task.
func (h *TaskHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// UpdateStatus transitions a task's lifecycle status.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.TaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	task, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}
