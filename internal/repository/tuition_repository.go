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

const tuitionColumns = `id, posted_by_email, posted_by_uid, subject, class_level, category, method, gender, location, budget, schedule, details, status, payment_status, created_at, updated_at`

// TuitionRepository provides database access for tuition listings.
type TuitionRepository struct {
	db *sqlx.DB
}

// NewTuitionRepository creates a new TuitionRepository.
func NewTuitionRepository(db *sqlx.DB) *TuitionRepository {
	return &TuitionRepository{db: db}
}

// Create inserts a listing.
func (r *TuitionRepository) Create(ctx context.Context, tuition *models.Tuition) error {
	if tuition.ID == "" {
		tuition.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tuition.CreatedAt.IsZero() {
		tuition.CreatedAt = now
	}
	tuition.UpdatedAt = now

	const query = `INSERT INTO tuitions (id, posted_by_email, posted_by_uid, subject, class_level, category, method, gender, location, budget, schedule, details, status, payment_status, created_at, updated_at)
VALUES (:id, :posted_by_email, :posted_by_uid, :subject, :class_level, :category, :method, :gender, :location, :budget, :schedule, :details, :status, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tuition); err != nil {
		return fmt.Errorf("create tuition: %w", err)
	}
	return nil
}

// FindByID returns a listing by id.
func (r *TuitionRepository) FindByID(ctx context.Context, id string) (*models.Tuition, error) {
	query := `SELECT ` + tuitionColumns + ` FROM tuitions WHERE id = $1`
	var tuition models.Tuition
	if err := r.db.GetContext(ctx, &tuition, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tuition: %w", err)
	}
	return &tuition, nil
}

// List returns listings matching filter, newest first.
func (r *TuitionRepository) List(ctx context.Context, filter models.TuitionFilter) ([]models.Tuition, error) {
	var conditions []string
	var args []interface{}
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if filter.Email != "" {
		add("LOWER(posted_by_email) = LOWER($%d)", filter.Email)
	}
	if filter.ClassLevel != "" {
		add("class_level = $%d", filter.ClassLevel)
	}
	if filter.Subject != "" {
		add("subject = $%d", filter.Subject)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Method != "" {
		add("method = $%d", filter.Method)
	}
	if filter.Gender != "" {
		add("gender = $%d", filter.Gender)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.SalaryMin != nil {
		add("budget >= $%d", *filter.SalaryMin)
	}
	if filter.SalaryMax != nil {
		add("budget <= $%d", *filter.SalaryMax)
	}
	if filter.Location != "" {
		add("location ILIKE $%d", "%"+escapeLike(filter.Location)+"%")
	}

	query := `SELECT ` + tuitionColumns + ` FROM tuitions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	tuitions := make([]models.Tuition, 0)
	if err := r.db.SelectContext(ctx, &tuitions, query, args...); err != nil {
		return nil, fmt.Errorf("list tuitions: %w", err)
	}
	return tuitions, nil
}

// Update persists the editable fields of a listing.
func (r *TuitionRepository) Update(ctx context.Context, tuition *models.Tuition) error {
	tuition.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tuitions SET subject = :subject, class_level = :class_level, category = :category, method = :method, gender = :gender,
location = :location, budget = :budget, schedule = :schedule, details = :details, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tuition); err != nil {
		return fmt.Errorf("update tuition: %w", err)
	}
	return nil
}

// SetStatus updates the moderation status of a listing.
func (r *TuitionRepository) SetStatus(ctx context.Context, id string, status models.TuitionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tuitions SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set tuition status: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a listing and, through the foreign key, its applications.
func (r *TuitionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tuitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tuition: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
