package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type tuitionRepository interface {
	Create(ctx context.Context, tuition *models.Tuition) error
	FindByID(ctx context.Context, id string) (*models.Tuition, error)
	List(ctx context.Context, filter models.TuitionFilter) ([]models.Tuition, error)
	Update(ctx context.Context, tuition *models.Tuition) error
	SetStatus(ctx context.Context, id string, status models.TuitionStatus) error
	Delete(ctx context.Context, id string) error
}

// TuitionService manages tuition listings.
type TuitionService struct {
	repo      tuitionRepository
	accounts  accountAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTuitionService creates a TuitionService.
func NewTuitionService(repo tuitionRepository, accounts accountAuditor, validate *validator.Validate, logger *zap.Logger) *TuitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TuitionService{repo: repo, accounts: accounts, validator: validate, logger: logger}
}

// Create posts a new listing owned by the caller. Listings start pending and unpaid.
func (s *TuitionService) Create(ctx context.Context, identity models.Identity, req dto.CreateTuitionRequest) (*models.Tuition, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "subject, class, location, budget and schedule are required")
	}

	tuition := &models.Tuition{
		PostedBy:      models.PostedBy{Email: strings.ToLower(identity.Email)},
		Subject:       strings.TrimSpace(req.Subject),
		ClassLevel:    strings.TrimSpace(req.ClassLevel),
		Category:      req.Category,
		Method:        req.Method,
		Gender:        req.Gender,
		Location:      strings.TrimSpace(req.Location),
		Budget:        req.Budget,
		Schedule:      req.Schedule,
		Details:       req.Details,
		Status:        models.TuitionPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	if identity.UID != "" {
		tuition.PostedBy.UID = &identity.UID
	}

	if err := s.repo.Create(ctx, tuition); err != nil {
		return nil, appErrors.Internal(err, "failed to create tuition")
	}
	return tuition, nil
}

// Query returns listings matching filter, newest first.
func (s *TuitionService) Query(ctx context.Context, filter models.TuitionFilter) ([]models.Tuition, error) {
	if filter.SalaryMin != nil && filter.SalaryMax != nil && *filter.SalaryMin > *filter.SalaryMax {
		return nil, appErrors.Clone(appErrors.ErrValidation, "salaryMin must not exceed salaryMax")
	}
	tuitions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tuitions")
	}
	return tuitions, nil
}

// Latest returns the newest listings.
func (s *TuitionService) Latest(ctx context.Context) ([]models.Tuition, error) {
	return s.Query(ctx, models.TuitionFilter{Limit: latestLimit})
}

// Get returns a listing.
func (s *TuitionService) Get(ctx context.Context, id string) (*models.Tuition, error) {
	tuition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	return tuition, nil
}

// Update patches a listing. The listing is fetched first so a missing listing
// reports NotFound and a foreign one reports Forbidden.
func (s *TuitionService) Update(ctx context.Context, actor models.Identity, id string, req dto.UpdateTuitionRequest) (*models.Tuition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid tuition payload")
	}
	tuition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tuition); err != nil {
		return nil, err
	}

	if req.Subject != nil {
		tuition.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.ClassLevel != nil {
		tuition.ClassLevel = strings.TrimSpace(*req.ClassLevel)
	}
	if req.Category != nil {
		tuition.Category = req.Category
	}
	if req.Method != nil {
		tuition.Method = req.Method
	}
	if req.Gender != nil {
		tuition.Gender = req.Gender
	}
	if req.Location != nil {
		tuition.Location = strings.TrimSpace(*req.Location)
	}
	if req.Budget != nil {
		tuition.Budget = *req.Budget
	}
	if req.Schedule != nil {
		tuition.Schedule = *req.Schedule
	}
	if req.Details != nil {
		tuition.Details = req.Details
	}

	if err := s.repo.Update(ctx, tuition); err != nil {
		return nil, appErrors.Internal(err, "failed to update tuition")
	}
	return tuition, nil
}

// Delete removes a listing owned by the caller, or any listing for an admin.
func (s *TuitionService) Delete(ctx context.Context, actor models.Identity, id string) error {
	tuition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadErr(err, "tuition")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tuition); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tuition.ID); err != nil {
		return loadErr(err, "tuition")
	}
	return nil
}

// SetStatus moderates a listing.
func (s *TuitionService) SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Tuition, error) {
	admin, err := requireAdmin(ctx, s.accounts, actor.Email)
	if err != nil {
		return nil, err
	}
	status, ok := models.ParseTuitionStatus(rawStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Pending, Approved or Rejected")
	}
	tuition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	if err := s.repo.SetStatus(ctx, tuition.ID, status); err != nil {
		return nil, loadErr(err, "tuition")
	}
	previous := tuition.Status
	tuition.Status = status

	recordAudit(ctx, s.accounts, s.logger, actor, admin.ID, auditEntry{
		action:     models.AuditActionTuitionStatus,
		resource:   "tuitions",
		resourceID: tuition.ID,
		oldValues:  map[string]interface{}{"status": previous},
		newValues:  map[string]interface{}{"status": status},
	})
	return tuition, nil
}
