package models

import "time"

// TaskPriority ranks follow-up urgency, derived from detection severity.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskStatus tracks the follow-up lifecycle. Done is terminal; the bridge
// never reopens a done task, it creates a fresh one if the condition recurs.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid returns true when the status is a supported value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces open -> in_progress -> done ordering.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusOpen:
		return next == TaskStatusInProgress || next == TaskStatusDone
	case TaskStatusInProgress:
		return next == TaskStatusDone
	default:
		return false
	}
}

// Task is a follow-up action item created by the insight-to-action bridge.
// At most one non-done task exists per (trigger_kind, entity) pair.
type Task struct {
	ID          string       `db:"id" json:"id"`
	AssigneeID  string       `db:"assignee_id" json:"assignee_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	Status      TaskStatus   `db:"status" json:"status"`
	DueDate     time.Time    `db:"due_date" json:"due_date"`
	TriggerKind TriggerKind  `db:"trigger_kind" json:"trigger_kind"`
	EntityKind  EntityKind   `db:"entity_kind" json:"entity_kind"`
	EntityID    string       `db:"entity_id" json:"entity_id"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// TaskFilter scopes task listing queries.
type TaskFilter struct {
	AssigneeID  string
	Status      *TaskStatus
	TriggerKind *TriggerKind
	Page        int
	PageSize    int
}
