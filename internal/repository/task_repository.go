package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// TaskRepository persists follow-up tasks. A partial unique index on
// (trigger_kind, entity_kind, entity_id) WHERE status <> 'done' makes the
// existence check and insert a single atomic unit: concurrent runs cannot
// both insert an open task for the same condition.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, assignee_id, title, description, priority, status, due_date,
        trigger_kind, entity_kind, entity_id, created_at, updated_at`

// CreateIfAbsent inserts the task unless an open or in-progress task already
// exists for the same (trigger kind, entity) pair. Returns the stored task
// and true when a row was inserted; the existing open task and false when the
// uniqueness constraint absorbed the insert.
func (r *TaskRepository) CreateIfAbsent(ctx context.Context, task models.Task) (*models.Task, bool, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Status = models.TaskStatusOpen

	const insert = `INSERT INTO tasks (` + taskColumns + `)
        VALUES (:id, :assignee_id, :title, :description, :priority, :status, :due_date,
                :trigger_kind, :entity_kind, :entity_id, :created_at, :updated_at)
        ON CONFLICT (trigger_kind, entity_kind, entity_id) WHERE status <> 'done' DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, insert, task)
	if err != nil {
		return nil, false, fmt.Errorf("insert task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("task insert result: %w", err)
	}
	if affected > 0 {
		return &task, true, nil
	}

	existing, err := r.FindOpen(ctx, task.TriggerKind, task.EntityKind, task.EntityID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindOpen retrieves the open or in-progress task for a condition, or
// ErrNotFound when none exists.
func (r *TaskRepository) FindOpen(ctx context.Context, trigger models.TriggerKind, entityKind models.EntityKind, entityID string) (*models.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks
        WHERE trigger_kind = $1 AND entity_kind = $2 AND entity_id = $3 AND status <> 'done'`

	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, trigger, entityKind, entityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query open task: %w", err)
	}
	return &task, nil
}

// Get retrieves a task by ID.
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query task %s: %w", id, err)
	}
	return &task, nil
}

// List retrieves tasks matching the filter with pagination metadata.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, *models.Pagination, error) {
	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	var args []interface{}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		where.WriteString(fmt.Sprintf(" AND assignee_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	if filter.TriggerKind != nil {
		args = append(args, *filter.TriggerKind)
		where.WriteString(fmt.Sprintf(" AND trigger_kind = $%d", len(args)))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tasks"+where.String(), args...); err != nil {
		return nil, nil, fmt.Errorf("count tasks: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := "SELECT " + taskColumns + " FROM tasks" + where.String() +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus transitions a task's status. The caller validates the
// transition; the WHERE clause re-checks the current status so a concurrent
// update cannot skip a step.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, from, to models.TaskStatus) error {
	const query = `UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("task update result: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrConflict
	}
	return nil
}
