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

const paymentColumns = `id, transaction_id, session_id, amount, currency, customer_email, tuition_id, subject, payment_status, paid_at`

// PaymentRepository provides database access for settled payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByTransactionID returns the payment recorded for a provider transaction.
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.findOne(ctx, `transaction_id = $1`, transactionID)
}

// FindByID returns a payment by id.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *PaymentRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE `+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// RecordPaid inserts the payment and marks its tuition paid in one transaction.
// When the transaction id is already recorded nothing changes and created is false.
func (r *PaymentRepository) RecordPaid(ctx context.Context, payment *models.Payment) (created bool, err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO payments (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (transaction_id) DO NOTHING
RETURNING id`
	var id string
	err = tx.GetContext(ctx, &id, insertQuery,
		payment.ID, payment.TransactionID, payment.SessionID, payment.Amount, payment.Currency,
		payment.CustomerEmail, payment.TuitionID, payment.Subject, payment.PaymentStatus, payment.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}

	const markQuery = `UPDATE tuitions SET payment_status = 'paid', updated_at = $2 WHERE id::text = $1`
	if _, err = tx.ExecContext(ctx, markQuery, payment.TuitionID, payment.PaidAt); err != nil {
		return false, fmt.Errorf("mark tuition paid: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit payment transaction: %w", err)
	}
	return true, nil
}

// List returns every payment, newest first.
func (r *PaymentRepository) List(ctx context.Context) ([]models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY paid_at DESC`)
}

// ListByEmail returns the payments made by email.
func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE LOWER(customer_email) = LOWER($1) ORDER BY paid_at DESC`, email)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Payment, error) {
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
