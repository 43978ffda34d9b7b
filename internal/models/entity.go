package models

import "time"

// EntityKind identifies the type of entity an insight or action item refers to.
type EntityKind string

const (
	EntityCenter  EntityKind = "center"
	EntityStudent EntityKind = "student"
	EntityFaculty EntityKind = "faculty"
)

// Valid returns true when the kind is a supported value.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityCenter, EntityStudent, EntityFaculty:
		return true
	default:
		return false
	}
}

// EntityRef points at a single center, student or faculty member.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Center represents a training center. The cost basis is maintained by the
// administration workflow and may be absent for newly opened centers.
type Center struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	City        string     `db:"city" json:"city"`
	HeadUserID  *string    `db:"head_user_id" json:"head_user_id,omitempty"`
	MonthlyCost *float64   `db:"monthly_cost" json:"monthly_cost,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// Student represents a learner registered at a center.
type Student struct {
	ID         string     `db:"id" json:"id"`
	CenterID   string     `db:"center_id" json:"center_id"`
	FullName   string     `db:"full_name" json:"full_name"`
	Phone      string     `db:"phone" json:"phone"`
	EnrolledAt time.Time  `db:"enrolled_at" json:"enrolled_at"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`
}

// Faculty represents a teaching staff member attached to a center.
type Faculty struct {
	ID        string     `db:"id" json:"id"`
	CenterID  string     `db:"center_id" json:"center_id"`
	UserID    *string    `db:"user_id" json:"user_id,omitempty"`
	FullName  string     `db:"full_name" json:"full_name"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Subject represents a course of study with a fixed topic syllabus. The
// topics-per-hour baseline calibrates the efficiency sub-score.
type Subject struct {
	ID                string  `db:"id" json:"id"`
	Name              string  `db:"name" json:"name"`
	TopicCount        int     `db:"topic_count" json:"topic_count"`
	PlannedWeeks      int     `db:"planned_weeks" json:"planned_weeks"`
	TopicsPerHourBase float64 `db:"topics_per_hour_base" json:"topics_per_hour_base"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
