package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

type fakeTaskStore struct {
	tasks       map[string]*models.Task
	updateCalls int
}

func (f *fakeTaskStore) Get(_ context.Context, id string) (*models.Task, error) {
	if task, ok := f.tasks[id]; ok {
		copied := *task
		return &copied, nil
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeTaskStore) List(_ context.Context, _ models.TaskFilter) ([]models.Task, *models.Pagination, error) {
	var result []models.Task
	for _, task := range f.tasks {
		result = append(result, *task)
	}
	return result, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(result)}, nil
}

func (f *fakeTaskStore) UpdateStatus(_ context.Context, id string, from, to models.TaskStatus) error {
	f.updateCalls++
	task, ok := f.tasks[id]
	if !ok || task.Status != from {
		return appErrors.ErrConflict
	}
	task.Status = to
	return nil
}

func TestTaskServiceUpdateStatusValidTransition(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*models.Task{
		"t1": {ID: "t1", Status: models.TaskStatusOpen},
	}}
	svc := NewTaskService(store, nil)

	task, err := svc.UpdateStatus(context.Background(), "t1", models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)

	task, err = svc.UpdateStatus(context.Background(), "t1", models.TaskStatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, task.Status)
}

func TestTaskServiceUpdateStatusDoneIsTerminal(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*models.Task{
		"t1": {ID: "t1", Status: models.TaskStatusDone},
	}}
	svc := NewTaskService(store, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", models.TaskStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", appErrors.FromError(err).Code)
	assert.Zero(t, store.updateCalls)
}

func TestTaskServiceUpdateStatusNoOp(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*models.Task{
		"t1": {ID: "t1", Status: models.TaskStatusInProgress},
	}}
	svc := NewTaskService(store, nil)

	task, err := svc.UpdateStatus(context.Background(), "t1", models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Zero(t, store.updateCalls)
}

func TestTaskServiceUpdateStatusUnknownValue(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "t1", models.TaskStatus("archived"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestTaskServiceUpdateStatusMissingTask(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "missing", models.TaskStatusDone)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}
