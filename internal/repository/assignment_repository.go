package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// AssignmentRepository reads assignment rows joined with the subject syllabus
// and the student's enrollment date.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentDetailColumns = `a.id, a.student_id, a.subject_id, a.faculty_id, a.center_id,
        a.start_date, a.active, a.created_at, a.updated_at,
        s.name AS subject_name, s.topic_count, s.planned_weeks, s.topics_per_hour_base,
        st.enrolled_at`

// ListDetails retrieves assignment details matching the filter.
func (r *AssignmentRepository) ListDetails(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	var builder strings.Builder
	builder.WriteString("SELECT " + assignmentDetailColumns + `
        FROM assignments a
        JOIN subjects s ON s.id = a.subject_id
        JOIN students st ON st.id = a.student_id
        WHERE a.deleted_at IS NULL AND st.deleted_at IS NULL`)
	var args []interface{}
	if filter.CenterID != "" {
		args = append(args, filter.CenterID)
		builder.WriteString(fmt.Sprintf(" AND a.center_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND a.student_id = $%d", len(args)))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		builder.WriteString(fmt.Sprintf(" AND a.faculty_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		builder.WriteString(fmt.Sprintf(" AND a.active = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY a.start_date, a.id")

	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query assignment details: %w", err)
	}
	return details, nil
}

// GetDetail retrieves a single assignment by ID.
func (r *AssignmentRepository) GetDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := "SELECT " + assignmentDetailColumns + `
        FROM assignments a
        JOIN subjects s ON s.id = a.subject_id
        JOIN students st ON st.id = a.student_id
        WHERE a.id = $1 AND a.deleted_at IS NULL AND st.deleted_at IS NULL`

	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query assignment %s: %w", id, err)
	}
	return &detail, nil
}
