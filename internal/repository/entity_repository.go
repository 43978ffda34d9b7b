package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// EntityRepository resolves centers, students and faculty for grouping and
// for bridge-time reference checks. All lookups exclude soft-deleted rows.
type EntityRepository struct {
	db *sqlx.DB
}

// NewEntityRepository instantiates the repository.
func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// GetCenter retrieves a center by ID.
func (r *EntityRepository) GetCenter(ctx context.Context, id string) (*models.Center, error) {
	const query = `SELECT id, name, city, head_user_id, monthly_cost, active, created_at, updated_at, deleted_at
        FROM centers WHERE id = $1 AND deleted_at IS NULL`

	var center models.Center
	if err := r.db.GetContext(ctx, &center, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query center %s: %w", id, err)
	}
	return &center, nil
}

// ListCenters retrieves all active, non-deleted centers.
func (r *EntityRepository) ListCenters(ctx context.Context) ([]models.Center, error) {
	const query = `SELECT id, name, city, head_user_id, monthly_cost, active, created_at, updated_at, deleted_at
        FROM centers WHERE deleted_at IS NULL AND active = TRUE ORDER BY name`

	var centers []models.Center
	if err := r.db.SelectContext(ctx, &centers, query); err != nil {
		return nil, fmt.Errorf("query centers: %w", err)
	}
	return centers, nil
}

// GetStudent retrieves a student by ID.
func (r *EntityRepository) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, center_id, full_name, phone, enrolled_at, active, created_at, updated_at, deleted_at
        FROM students WHERE id = $1 AND deleted_at IS NULL`

	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query student %s: %w", id, err)
	}
	return &student, nil
}

// GetFaculty retrieves a faculty member by ID.
func (r *EntityRepository) GetFaculty(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, center_id, user_id, full_name, active, created_at, updated_at, deleted_at
        FROM faculty WHERE id = $1 AND deleted_at IS NULL`

	var member models.Faculty
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("query faculty %s: %w", id, err)
	}
	return &member, nil
}

// CountActiveStudents counts active students per center for the
// profitability estimate.
func (r *EntityRepository) CountActiveStudents(ctx context.Context, centerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE center_id = $1 AND active = TRUE AND deleted_at IS NULL`

	var count int
	if err := r.db.GetContext(ctx, &count, query, centerID); err != nil {
		return 0, fmt.Errorf("count active students for %s: %w", centerID, err)
	}
	return count, nil
}
