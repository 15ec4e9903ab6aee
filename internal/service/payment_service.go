package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/export"
	"github.com/noah-isme/tuitron-api/pkg/stripe"
)

const (
	sessionPaid        = "paid"
	sessionPlaceholder = "{CHECKOUT_SESSION_ID}"
)

type checkoutProvider interface {
	CreateSession(ctx context.Context, params stripe.SessionParams) (*stripe.Session, error)
	RetrieveSession(ctx context.Context, id string) (*stripe.Session, error)
}

type paymentRepository interface {
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	RecordPaid(ctx context.Context, payment *models.Payment) (bool, error)
	List(ctx context.Context) ([]models.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]models.Payment, error)
}

// PaymentConfig holds checkout settings.
type PaymentConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// PaymentService opens checkout sessions and reconciles them into payment records.
type PaymentService struct {
	repo      paymentRepository
	tuitions  tuitionFinder
	accounts  accountAuditor
	provider  checkoutProvider
	publisher events.Publisher
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	cfg       PaymentConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(repo paymentRepository, tuitions tuitionFinder, accounts accountAuditor, provider checkoutProvider, publisher events.Publisher, metrics *MetricsService, cfg PaymentConfig, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PaymentService{
		repo:      repo,
		tuitions:  tuitions,
		accounts:  accounts,
		provider:  provider,
		publisher: publisher,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// ToMinorUnits converts a major-unit amount into the provider's integer minor units.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateCheckoutSession opens a hosted checkout for a listing the caller owns.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, identity models.Identity, req dto.CheckoutRequest) (*models.CheckoutSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "tuitionId, subject and a positive amount are required")
	}
	tuition, err := s.tuitions.FindByID(ctx, req.TuitionID)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	if err := authorizeOwner(ctx, s.accounts, identity.Email, tuition); err != nil {
		return nil, err
	}
	if tuition.PaymentStatus == models.PaymentPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tuition is already paid")
	}

	amount := strconv.FormatFloat(req.Amount, 'f', -1, 64)
	session, err := s.provider.CreateSession(ctx, stripe.SessionParams{
		LineItem: stripe.LineItem{
			Name:       req.Subject,
			Currency:   s.cfg.Currency,
			UnitAmount: ToMinorUnits(req.Amount),
		},
		CustomerEmail: identity.Email,
		Metadata: map[string]string{
			"tuitionId": tuition.ID,
			"subject":   req.Subject,
			"amount":    amount,
		},
		SuccessURL: successURL(s.cfg.SuccessURL),
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		return nil, providerErr(err, "checkout request rejected by payment provider")
	}
	return &models.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// providerErr keeps ExternalServiceError for provider outages; rejected requests are the caller's.
func providerErr(err error, rejected string) error {
	switch {
	case errors.Is(err, stripe.ErrNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "checkout session not found")
	case errors.Is(err, stripe.ErrInvalidRequest):
		return validationErr(err, rejected)
	default:
		return appErrors.External(err, "payment provider unavailable")
	}
}

func successURL(base string) string {
	if base == "" || strings.Contains(base, sessionPlaceholder) {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id=" + sessionPlaceholder
}

// Reconcile converts a checkout session into a payment record. It is safe to call any
// number of times for the same session: only the first paid call records a payment.
func (s *PaymentService) Reconcile(ctx context.Context, sessionID string) (*models.ReconcileResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, providerErr(err, "invalid checkout session id")
	}

	transactionID := session.PaymentIntent
	if transactionID == "" {
		transactionID = session.ID
	}

	existing, err := s.repo.FindByTransactionID(ctx, transactionID)
	switch {
	case err == nil:
		return s.outcome(models.ReconcileAlreadyExists, session, existing), nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load payment")
	}

	if session.PaymentStatus != sessionPaid {
		return s.outcome(models.ReconcileNotPaid, session, nil), nil
	}

	tuitionID := session.Metadata["tuitionId"]
	if tuitionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "checkout session does not reference a tuition")
	}

	payment := &models.Payment{
		TransactionID: transactionID,
		SessionID:     session.ID,
		Amount:        float64(session.AmountTotal) / 100,
		Currency:      session.Currency,
		CustomerEmail: session.Email(),
		TuitionID:     tuitionID,
		PaymentStatus: session.PaymentStatus,
		PaidAt:        time.Now().UTC(),
	}
	if subject := session.Metadata["subject"]; subject != "" {
		payment.Subject = &subject
	}

	created, err := s.repo.RecordPaid(ctx, payment)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record payment")
	}
	if !created {
		stored, err := s.repo.FindByTransactionID(ctx, transactionID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load payment")
		}
		return s.outcome(models.ReconcileAlreadyExists, session, stored), nil
	}

	recordAudit(ctx, s.accounts, s.logger, models.Identity{Email: payment.CustomerEmail}, "", auditEntry{
		action:     models.AuditActionPaymentRecorded,
		resource:   "payments",
		resourceID: payment.ID,
		newValues:  map[string]interface{}{"transactionId": payment.TransactionID, "tuitionId": payment.TuitionID, "amount": payment.Amount},
	})
	publish(ctx, s.publisher, s.logger, events.TypePaymentCompleted, map[string]interface{}{
		"paymentId":     payment.ID,
		"transactionId": payment.TransactionID,
		"tuitionId":     payment.TuitionID,
		"amount":        payment.Amount,
		"currency":      payment.Currency,
		"email":         payment.CustomerEmail,
	})
	return s.outcome(models.ReconcileCreated, session, payment), nil
}

func (s *PaymentService) outcome(outcome models.ReconcileOutcome, session *stripe.Session, payment *models.Payment) *models.ReconcileResult {
	s.metrics.RecordReconcile(string(outcome))
	result := &models.ReconcileResult{Outcome: outcome, PaymentStatus: session.PaymentStatus, Payment: payment}
	switch outcome {
	case models.ReconcileCreated:
		result.Message = "payment recorded"
	case models.ReconcileAlreadyExists:
		result.Message = "payment already exists"
	default:
		result.Message = "payment not completed"
	}
	return result
}

// List returns every payment to an admin and the caller's own payments otherwise.
func (s *PaymentService) List(ctx context.Context, actor models.Identity) ([]models.Payment, error) {
	admin, err := isAdmin(ctx, s.accounts, actor.Email)
	if err != nil {
		return nil, err
	}
	var payments []models.Payment
	if admin {
		payments, err = s.repo.List(ctx)
	} else {
		payments, err = s.repo.ListByEmail(ctx, actor.Email)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payments")
	}
	return payments, nil
}

// Receipt renders a PDF receipt for a payment made by the caller, or any payment for an admin.
func (s *PaymentService) Receipt(ctx context.Context, actor models.Identity, id string) ([]byte, string, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", loadErr(err, "payment")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, payment); err != nil {
		return nil, "", err
	}

	subject := "-"
	if payment.Subject != nil {
		subject = *payment.Subject
	}
	doc, err := s.pdf.RenderReceipt(export.Receipt{
		Title:  "Payment Receipt",
		Issuer: "Tuitron",
		Fields: []export.Field{
			{Label: "Receipt", Value: payment.ID},
			{Label: "Transaction", Value: payment.TransactionID},
			{Label: "Tuition", Value: payment.TuitionID},
			{Label: "Subject", Value: subject},
			{Label: "Paid by", Value: payment.CustomerEmail},
			{Label: "Amount", Value: fmt.Sprintf("%.2f %s", payment.Amount, strings.ToUpper(payment.Currency))},
			{Label: "Paid at", Value: payment.PaidAt.UTC().Format(time.RFC1123)},
		},
		Footer: "Thank you for using Tuitron.",
	})
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render receipt")
	}
	return doc, fmt.Sprintf("receipt-%s.pdf", payment.TransactionID), nil
}

// Export renders every payment as CSV for an admin.
func (s *PaymentService) Export(ctx context.Context, actor models.Identity) ([]byte, error) {
	if _, err := requireAdmin(ctx, s.accounts, actor.Email); err != nil {
		return nil, err
	}
	payments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payments")
	}

	data := export.Dataset{Headers: []string{"id", "transaction_id", "tuition_id", "subject", "customer_email", "amount", "currency", "payment_status", "paid_at"}}
	for _, p := range payments {
		subject := ""
		if p.Subject != nil {
			subject = *p.Subject
		}
		data.Add(map[string]string{
			"id":             p.ID,
			"transaction_id": p.TransactionID,
			"tuition_id":     p.TuitionID,
			"subject":        subject,
			"customer_email": p.CustomerEmail,
			"amount":         strconv.FormatFloat(p.Amount, 'f', 2, 64),
			"currency":       p.Currency,
			"payment_status": p.PaymentStatus,
			"paid_at":        p.PaidAt.UTC().Format(time.RFC3339),
		})
	}
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return out, nil
}
