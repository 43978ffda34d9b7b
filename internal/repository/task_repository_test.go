package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func taskRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "assignee_id", "title", "description", "priority", "status", "due_date",
		"trigger_kind", "entity_kind", "entity_id", "created_at", "updated_at"})
}

func TestTaskRepositoryCreateIfAbsentInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	task, created, err := repo.CreateIfAbsent(context.Background(), models.Task{
		Title:       "Follow up on irregular attendance",
		Priority:    models.TaskPriorityHigh,
		TriggerKind: models.TriggerIrregularStudent,
		EntityKind:  models.EntityStudent,
		EntityID:    "s1",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusOpen, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateIfAbsentAbsorbedByIndex(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(models.TriggerIrregularStudent, models.EntityStudent, "s1").
		WillReturnRows(taskRows().AddRow("existing", "head-1", "Follow up", "", "high", "open",
			time.Now(), "irregular_student", "student", "s1", time.Now(), time.Now()))

	task, created, err := repo.CreateIfAbsent(context.Background(), models.Task{
		TriggerKind: models.TriggerIrregularStudent,
		EntityKind:  models.EntityStudent,
		EntityID:    "s1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing", task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateStatusConcurrentChange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "t1", models.TaskStatusOpen, models.TaskStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	status := models.TaskStatusOpen
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM tasks").
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(status, 10, 10).
		WillReturnRows(taskRows().AddRow("t1", "head-1", "Title", "", "medium", "open",
			time.Now(), "delayed_student", "student", "s1", time.Now(), time.Now()))

	tasks, pagination, err := repo.List(context.Background(), models.TaskFilter{Status: &status, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 42, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}
