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

const accountColumns = `id, uid, email, name, phone, role, image, created_at, updated_at`

// AccountRepository provides database access for marketplace accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail returns an account by email address, ignoring letter case.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// FindByID returns an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// Create inserts the account unless one with the same email exists.
// It reports whether a row was inserted; on false the stored account is loaded into account.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (bool, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	const query = `INSERT INTO accounts (id, uid, email, name, phone, role, image, created_at, updated_at)
VALUES (:id, :uid, :email, :name, :phone, :role, :image, :created_at, :updated_at)
ON CONFLICT ((LOWER(email))) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create account rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	existing, err := r.FindByEmail(ctx, account.Email)
	if err != nil {
		return false, fmt.Errorf("load existing account: %w", err)
	}
	*account = *existing
	return false, nil
}

// UpdateProfile updates the self-service fields of an account.
func (r *AccountRepository) UpdateProfile(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accounts SET name = :name, phone = :phone, image = :image, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("update account profile: %w", err)
	}
	return nil
}

// SetRole updates the role of the account with the given email, leaving admins untouched.
// It reports whether a row changed.
func (r *AccountRepository) SetRole(ctx context.Context, email string, role models.Role) (bool, error) {
	const query = `UPDATE accounts SET role = $2, updated_at = $3 WHERE LOWER(email) = LOWER($1) AND role <> 'admin'`
	res, err := r.db.ExecContext(ctx, query, email, role, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set account role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set account role rows: %w", err)
	}
	return affected > 0, nil
}

// List returns accounts based on filters with total count.
func (r *AccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	baseQuery := `FROM accounts WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", accountColumns, baseQuery, pageSize, offset)
	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	return accounts, total, nil
}

// lockAdmins locks every admin row for the rest of tx and returns their ids.
func lockAdmins(ctx context.Context, tx *sqlx.Tx) ([]string, error) {
	var ids []string
	if err := tx.SelectContext(ctx, &ids, `SELECT id FROM accounts WHERE role = 'admin' FOR UPDATE`); err != nil {
		return nil, fmt.Errorf("lock admin accounts: %w", err)
	}
	return ids, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// UpdateRoleGuarded changes the role of id. Demoting the only remaining admin fails with ErrLastAdmin.
// The admin count and the update share one transaction holding locks on every admin row.
func (r *AccountRepository) UpdateRoleGuarded(ctx context.Context, id string, role models.Role) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	admins, err := lockAdmins(ctx, tx)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin && containsID(admins, id) && len(admins) <= 1 {
		return ErrLastAdmin
	}

	res, err := tx.ExecContext(ctx, `UPDATE accounts SET role = $2, updated_at = $3 WHERE id = $1`, id, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update account role: %w", err)
	}
	if affected, rowsErr := res.RowsAffected(); rowsErr == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit role transaction: %w", err)
	}
	return nil
}

// DeleteGuarded removes the account. Deleting the only remaining admin fails with ErrLastAdmin.
func (r *AccountRepository) DeleteGuarded(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	admins, err := lockAdmins(ctx, tx)
	if err != nil {
		return err
	}
	if containsID(admins, id) && len(admins) <= 1 {
		return ErrLastAdmin
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected, rowsErr := res.RowsAffected(); rowsErr == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}
	return nil
}

// PromoteApprovedTutors sets role tutor on every student or user account whose tutor profile is approved.
// It returns the promoted emails.
func (r *AccountRepository) PromoteApprovedTutors(ctx context.Context) ([]string, error) {
	const query = `UPDATE accounts a SET role = 'tutor', updated_at = NOW()
FROM tutors t
WHERE LOWER(t.email) = LOWER(a.email) AND t.status = 'approved' AND a.role IN ('student', 'user')
RETURNING a.email`
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("promote approved tutors: %w", err)
	}
	return emails, nil
}

// CreateAuditLog stores an audit log entry.
func (r *AccountRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
