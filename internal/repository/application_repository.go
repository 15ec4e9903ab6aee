package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuitron-api/internal/models"
)

const applicationSelect = `SELECT a.id, a.tuition_id, a.tutor_id, a.tutor_email, a.message, a.qualifications, a.expected_salary, a.status, a.applied_at, a.updated_at,
t.subject AS tuition_subject, t.location AS tuition_location, p.name AS tutor_name
FROM applications a
LEFT JOIN tuitions t ON t.id = a.tuition_id
LEFT JOIN tutors p ON p.id = a.tutor_id`

// ApplicationRepository provides database access for tutor applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application. A second application for the same tuition and tutor yields ErrDuplicate.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.AppliedAt.IsZero() {
		app.AppliedAt = now
	}
	app.UpdatedAt = now

	const query = `INSERT INTO applications (id, tuition_id, tutor_id, tutor_email, message, qualifications, expected_salary, status, applied_at, updated_at)
VALUES (:id, :tuition_id, :tutor_id, :tutor_email, :message, :qualifications, :expected_salary, :status, :applied_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Exists reports whether the tutor already applied to the tuition.
func (r *ApplicationRepository) Exists(ctx context.Context, tuitionID, tutorID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE tuition_id = $1 AND tutor_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, tuitionID, tutorID); err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return exists, nil
}

// FindByID returns an application by id.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := r.db.GetContext(ctx, &app, applicationSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// ListByTutorEmail returns the applications submitted by email.
func (r *ApplicationRepository) ListByTutorEmail(ctx context.Context, email string) ([]models.Application, error) {
	return r.list(ctx, applicationSelect+` WHERE LOWER(a.tutor_email) = LOWER($1) ORDER BY a.applied_at DESC`, email)
}

// ListByTuition returns the applications received by a listing.
func (r *ApplicationRepository) ListByTuition(ctx context.Context, tuitionID string) ([]models.Application, error) {
	return r.list(ctx, applicationSelect+` WHERE a.tuition_id = $1 ORDER BY a.applied_at DESC`, tuitionID)
}

// List returns every application.
func (r *ApplicationRepository) List(ctx context.Context) ([]models.Application, error) {
	return r.list(ctx, applicationSelect+` ORDER BY a.applied_at DESC`)
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Application, error) {
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// UpdateStatus sets the decision status of an application.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return expectAffected(res)
}
