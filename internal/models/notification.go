package models

import "time"

// NotificationKind styles the notification in the consuming UI.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
	NotificationSuccess NotificationKind = "success"
)

// Valid returns true when the kind is a supported value.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationInfo, NotificationWarning, NotificationError, NotificationSuccess:
		return true
	default:
		return false
	}
}

// Notification is a UI alert produced by the bridge or other workflows.
// Mutated only via mark-read; never deleted by the engine.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Read        bool             `db:"read" json:"read"`
	ActionURL   *string          `db:"action_url" json:"action_url,omitempty"`
	TriggerKind *TriggerKind     `db:"trigger_kind" json:"trigger_kind,omitempty"`
	EntityKind  *EntityKind      `db:"entity_kind" json:"entity_kind,omitempty"`
	EntityID    *string          `db:"entity_id" json:"entity_id,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter scopes notification listing queries.
type NotificationFilter struct {
	RecipientID string
	Unread      *bool
	Page        int
	PageSize    int
}
