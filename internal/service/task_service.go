package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// TaskStore is the persistence surface the task workflow needs.
type TaskStore interface {
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, from, to models.TaskStatus) error
}

// TaskService exposes the follow-up task workflow.
type TaskService struct {
	repo   TaskStore
	logger *zap.Logger
}

// NewTaskService constructs the service.
func NewTaskService(repo TaskStore, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{repo: repo, logger: logger}
}

// Get retrieves a task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, *models.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus transitions a task through open -> in_progress -> done. Done is
// terminal; invalid transitions are rejected before touching the database.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, next models.TaskStatus) (*models.Task, error) {
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown task status %q", next))
	}
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == next {
		return task, nil
	}
	if !task.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move task from %s to %s", task.Status, next))
	}
	if err := s.repo.UpdateStatus(ctx, id, task.Status, next); err != nil {
		return nil, err
	}
	s.logger.Info("task status updated",
		zap.String("task_id", id),
		zap.String("from", string(task.Status)),
		zap.String("to", string(next)))
	task.Status = next
	return task, nil
}
