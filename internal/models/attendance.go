package models

import (
	"time"

	"github.com/lib/pq"
)

// AttendanceStatus represents the recorded outcome of a scheduled session.
type AttendanceStatus string

const (
	AttendanceStatusPresent   AttendanceStatus = "present"
	AttendanceStatusAbsent    AttendanceStatus = "absent"
	AttendanceStatusCancelled AttendanceStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusCancelled:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single session recorded by the attendance-marking
// workflow. The engine never mutates these rows; one record exists per
// (assignment, date). A missing end time is a data gap handled during
// aggregation, not an error.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SubjectID    string           `db:"subject_id" json:"subject_id"`
	FacultyID    string           `db:"faculty_id" json:"faculty_id"`
	CenterID     string           `db:"center_id" json:"center_id"`
	Date         time.Time        `db:"date" json:"date"`
	StartTime    time.Time        `db:"start_time" json:"start_time"`
	EndTime      *time.Time       `db:"end_time" json:"end_time,omitempty"`
	Topics       pq.StringArray   `db:"topics" json:"topics"`
	Status       AttendanceStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// DurationHours returns the session length in hours, clamped to non-negative.
// Records without an end time contribute zero hours.
func (r AttendanceRecord) DurationHours() float64 {
	if r.EndTime == nil {
		return 0
	}
	hours := r.EndTime.Sub(r.StartTime).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// AttendanceFilter scopes attendance queries. Soft-deleted records are always
// excluded at the repository layer.
type AttendanceFilter struct {
	CenterID  string
	StudentID string
	FacultyID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
