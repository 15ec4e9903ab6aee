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

	"github.com/noah-isme/tuitron-api/internal/models"
)

const tutorColumns = `id, email, uid, name, qualifications, experience, subjects, class_levels, location, expected_salary, image, status, created_at, updated_at`

// TutorRepository provides database access for tutor profiles.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository creates a new TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// Create inserts a tutor profile. A second profile for the same email yields ErrDuplicate.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now

	const query = `INSERT INTO tutors (id, email, uid, name, qualifications, experience, subjects, class_levels, location, expected_salary, image, status, created_at, updated_at)
VALUES (:id, :email, :uid, :name, :qualifications, :experience, :subjects, :class_levels, :location, :expected_salary, :image, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create tutor: %w", err)
	}
	return nil
}

// FindByID returns a tutor profile by id.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByEmail returns the tutor profile owned by email.
func (r *TutorRepository) FindByEmail(ctx context.Context, email string) (*models.Tutor, error) {
	return r.findOne(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *TutorRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Tutor, error) {
	query := `SELECT ` + tutorColumns + ` FROM tutors WHERE ` + where + ` LIMIT 1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor: %w", err)
	}
	return &tutor, nil
}

// List returns tutor profiles matching filter with the total count.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	baseQuery := `FROM tutors WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		conditions = append(conditions, fmt.Sprintf("$%d ILIKE ANY(subjects)", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+escapeLike(filter.Location)+"%")
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", tutorColumns, baseQuery, pageSize, (page-1)*pageSize)

	tutors := make([]models.Tutor, 0)
	if err := r.db.SelectContext(ctx, &tutors, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}
	return tutors, total, nil
}

// Latest returns the newest approved tutor profiles.
func (r *TutorRepository) Latest(ctx context.Context, limit int) ([]models.Tutor, error) {
	query := `SELECT ` + tutorColumns + ` FROM tutors WHERE status = 'approved' ORDER BY created_at DESC LIMIT $1`
	tutors := make([]models.Tutor, 0)
	if err := r.db.SelectContext(ctx, &tutors, query, limit); err != nil {
		return nil, fmt.Errorf("latest tutors: %w", err)
	}
	return tutors, nil
}

// Update persists the editable fields of a profile.
func (r *TutorRepository) Update(ctx context.Context, tutor *models.Tutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutors SET name = :name, qualifications = :qualifications, experience = :experience, subjects = :subjects,
class_levels = :class_levels, location = :location, expected_salary = :expected_salary, image = :image, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}
	return nil
}

// SetStatus updates the approval status of a profile.
func (r *TutorRepository) SetStatus(ctx context.Context, id string, status models.TutorStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tutors SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set tutor status: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a profile and its applications.
func (r *TutorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tutors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tutor: %w", err)
	}
	return expectAffected(res)
}
