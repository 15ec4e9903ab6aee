package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/internal/repository"
	"github.com/noah-isme/tuitron-api/pkg/config"
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	Exists(ctx context.Context, tuitionID, tutorID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByTutorEmail(ctx context.Context, email string) ([]models.Application, error)
	ListByTuition(ctx context.Context, tuitionID string) ([]models.Application, error)
	List(ctx context.Context) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
}

type tutorFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Tutor, error)
}

type tuitionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Tuition, error)
}

// ApplicationService manages tutor applications to listings.
type ApplicationService struct {
	repo      applicationRepository
	tutors    tutorFinder
	tuitions  tuitionFinder
	accounts  accountAuditor
	publisher events.Publisher
	policy    string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService creates an ApplicationService. policy selects who may decide
// applications: config.ApplicationPolicyAdmin or config.ApplicationPolicyOwner.
func NewApplicationService(repo applicationRepository, tutors tutorFinder, tuitions tuitionFinder, accounts accountAuditor, publisher events.Publisher, policy string, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy != config.ApplicationPolicyOwner {
		policy = config.ApplicationPolicyAdmin
	}
	return &ApplicationService{
		repo:      repo,
		tutors:    tutors,
		tuitions:  tuitions,
		accounts:  accounts,
		publisher: publisher,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// Apply submits the caller's application to a listing. A tutor may apply to a listing only once.
func (s *ApplicationService) Apply(ctx context.Context, identity models.Identity, req dto.ApplyRequest) (*models.Application, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "tuitionId and message are required")
	}

	tutor, err := s.tutors.FindByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, appErrors.Internal(err, "failed to load tutor profile")
	}
	tuition, err := s.tuitions.FindByID(ctx, req.TuitionID)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}

	exists, err := s.repo.Exists(ctx, tuition.ID, tutor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check application")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already applied to this tuition")
	}

	app := &models.Application{
		TuitionID:      tuition.ID,
		TutorID:        tutor.ID,
		TutorEmail:     tutor.Email,
		Message:        req.Message,
		Qualifications: req.Qualifications,
		ExpectedSalary: req.ExpectedSalary,
		Status:         models.ApplicationPending,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already applied to this tuition")
		}
		return nil, appErrors.Internal(err, "failed to create application")
	}
	return app, nil
}

// ListMine returns the caller's applications.
func (s *ApplicationService) ListMine(ctx context.Context, identity models.Identity) ([]models.Application, error) {
	apps, err := s.repo.ListByTutorEmail(ctx, identity.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	return apps, nil
}

// ListForTuition returns the applications received by a listing, for its owner or an admin.
func (s *ApplicationService) ListForTuition(ctx context.Context, actor models.Identity, tuitionID string) ([]models.Application, error) {
	tuition, err := s.tuitions.FindByID(ctx, tuitionID)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tuition); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListByTuition(ctx, tuition.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	return apps, nil
}

// List returns every application to an admin.
func (s *ApplicationService) List(ctx context.Context, actor models.Identity) ([]models.Application, error) {
	if _, err := requireAdmin(ctx, s.accounts, actor.Email); err != nil {
		return nil, err
	}
	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	return apps, nil
}

// SetStatus records a decision on an application. The accepted spellings cover both the
// pending/accepted/rejected and the Approved/approve/reject vocabularies.
func (s *ApplicationService) SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Application, error) {
	status, ok := models.ParseApplicationStatus(rawStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, accepted or rejected")
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "application")
	}

	actorAccount, err := s.authorizeDecision(ctx, actor, app)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, app.ID, status); err != nil {
		return nil, loadErr(err, "application")
	}
	previous := app.Status
	app.Status = status

	var actorID string
	if actorAccount != nil {
		actorID = actorAccount.ID
	}
	recordAudit(ctx, s.accounts, s.logger, actor, actorID, auditEntry{
		action:     models.AuditActionApplicationStatus,
		resource:   "applications",
		resourceID: app.ID,
		oldValues:  map[string]interface{}{"status": previous},
		newValues:  map[string]interface{}{"status": status},
	})
	publish(ctx, s.publisher, s.logger, events.TypeApplicationStatusChanged, map[string]interface{}{
		"applicationId": app.ID,
		"tuitionId":     app.TuitionID,
		"tutorEmail":    app.TutorEmail,
		"status":        status,
	})
	return app, nil
}

func (s *ApplicationService) authorizeDecision(ctx context.Context, actor models.Identity, app *models.Application) (*models.Account, error) {
	if s.policy == config.ApplicationPolicyAdmin {
		return requireAdmin(ctx, s.accounts, actor.Email)
	}

	tuition, err := s.tuitions.FindByID(ctx, app.TuitionID)
	if err != nil {
		return nil, loadErr(err, "tuition")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tuition); err != nil {
		return nil, err
	}
	return callerAccount(ctx, s.accounts, actor.Email)
}
