package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// AttendanceRepository exposes read-only access to attendance records. The
// engine never writes this table; soft-deleted rows are always excluded.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListRecords retrieves attendance records matching the filter, ordered by
// date then start time so downstream aggregation is deterministic.
func (r *AttendanceRepository) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT ar.id, ar.assignment_id, ar.student_id, ar.subject_id, ar.faculty_id, ar.center_id,
        ar.date, ar.start_time, ar.end_time, ar.topics, ar.status, ar.created_at
        FROM attendance_records ar
        WHERE ar.deleted_at IS NULL`)
	var args []interface{}
	if filter.CenterID != "" {
		args = append(args, filter.CenterID)
		builder.WriteString(fmt.Sprintf(" AND ar.center_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND ar.student_id = $%d", len(args)))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		builder.WriteString(fmt.Sprintf(" AND ar.faculty_id = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		builder.WriteString(fmt.Sprintf(" AND ar.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		builder.WriteString(fmt.Sprintf(" AND ar.date <= $%d", len(args)))
	}
	builder.WriteString(" ORDER BY ar.date, ar.start_time, ar.id")

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	return records, nil
}
