package models

import "time"

// Assignment binds one student to one subject taught by one faculty member.
// Attendance is always recorded against an assignment.
type Assignment struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	SubjectID string     `db:"subject_id" json:"subject_id"`
	FacultyID string     `db:"faculty_id" json:"faculty_id"`
	CenterID  string     `db:"center_id" json:"center_id"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// AssignmentDetail joins the assignment with the subject syllabus and the
// student's enrollment date, which together define the expected pace.
type AssignmentDetail struct {
	Assignment
	SubjectName       string    `db:"subject_name" json:"subject_name"`
	TopicCount        int       `db:"topic_count" json:"topic_count"`
	PlannedWeeks      int       `db:"planned_weeks" json:"planned_weeks"`
	TopicsPerHourBase float64   `db:"topics_per_hour_base" json:"topics_per_hour_base"`
	EnrolledAt        time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// ExpectedTopicsPerWeek derives the pace implied by the subject syllabus.
func (a AssignmentDetail) ExpectedTopicsPerWeek() float64 {
	if a.PlannedWeeks <= 0 || a.TopicCount <= 0 {
		return 0
	}
	return float64(a.TopicCount) / float64(a.PlannedWeeks)
}

// AssignmentFilter scopes assignment listing queries.
type AssignmentFilter struct {
	CenterID  string
	StudentID string
	FacultyID string
	Active    *bool
}
