package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/internal/repository"
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

const latestLimit = 5

type tutorRepository interface {
	Create(ctx context.Context, tutor *models.Tutor) error
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	FindByEmail(ctx context.Context, email string) (*models.Tutor, error)
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	Latest(ctx context.Context, limit int) ([]models.Tutor, error)
	Update(ctx context.Context, tutor *models.Tutor) error
	SetStatus(ctx context.Context, id string, status models.TutorStatus) error
	Delete(ctx context.Context, id string) error
}

type tutorAccountStore interface {
	accountAuditor
	SetRole(ctx context.Context, email string, role models.Role) (bool, error)
}

// TutorService manages tutor profiles and their approval.
type TutorService struct {
	repo      tutorRepository
	accounts  tutorAccountStore
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorService creates a TutorService.
func NewTutorService(repo tutorRepository, accounts tutorAccountStore, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TutorService{repo: repo, accounts: accounts, publisher: publisher, validator: validate, logger: logger}
}

// Register creates the caller's tutor profile in pending status.
func (s *TutorService) Register(ctx context.Context, identity models.Identity, req dto.CreateTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "name, qualifications, subjects and location are required")
	}

	tutor := &models.Tutor{
		Email:          strings.ToLower(identity.Email),
		Name:           strings.TrimSpace(req.Name),
		Qualifications: req.Qualifications,
		Experience:     req.Experience,
		Subjects:       pq.StringArray(req.Subjects),
		ClassLevels:    pq.StringArray(req.ClassLevels),
		Location:       req.Location,
		ExpectedSalary: req.ExpectedSalary,
		Image:          req.Image,
		Status:         models.TutorPending,
	}
	if tutor.ClassLevels == nil {
		tutor.ClassLevels = pq.StringArray{}
	}
	if identity.UID != "" {
		tutor.UID = &identity.UID
	}
	if tutor.Image == nil && identity.Picture != "" {
		tutor.Image = &identity.Picture
	}

	if err := s.repo.Create(ctx, tutor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "tutor profile already exists")
		}
		return nil, appErrors.Internal(err, "failed to create tutor profile")
	}
	return tutor, nil
}

// Get returns a tutor profile.
func (s *TutorService) Get(ctx context.Context, id string) (*models.Tutor, error) {
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tutor")
	}
	return tutor, nil
}

// List returns tutor profiles with pagination.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	tutors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list tutors")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return tutors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Latest returns the newest approved tutors.
func (s *TutorService) Latest(ctx context.Context) ([]models.Tutor, error) {
	tutors, err := s.repo.Latest(ctx, latestLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tutors")
	}
	return tutors, nil
}

// Update patches a profile owned by the caller, or any profile for an admin.
func (s *TutorService) Update(ctx context.Context, actor models.Identity, id string, req dto.UpdateTutorRequest) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid tutor payload")
	}
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tutor")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tutor); err != nil {
		return nil, err
	}

	if req.Name != nil {
		tutor.Name = strings.TrimSpace(*req.Name)
	}
	if req.Qualifications != nil {
		tutor.Qualifications = *req.Qualifications
	}
	if req.Experience != nil {
		tutor.Experience = req.Experience
	}
	if req.Subjects != nil {
		tutor.Subjects = pq.StringArray(req.Subjects)
	}
	if req.ClassLevels != nil {
		tutor.ClassLevels = pq.StringArray(req.ClassLevels)
	}
	if req.Location != nil {
		tutor.Location = *req.Location
	}
	if req.ExpectedSalary != nil {
		tutor.ExpectedSalary = *req.ExpectedSalary
	}
	if req.Image != nil {
		tutor.Image = req.Image
	}

	if err := s.repo.Update(ctx, tutor); err != nil {
		return nil, appErrors.Internal(err, "failed to update tutor profile")
	}
	return tutor, nil
}

// Delete removes a profile owned by the caller, or any profile for an admin.
func (s *TutorService) Delete(ctx context.Context, actor models.Identity, id string) error {
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadErr(err, "tutor")
	}
	if err := authorizeOwner(ctx, s.accounts, actor.Email, tutor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tutor.ID); err != nil {
		return loadErr(err, "tutor")
	}
	return nil
}

// SetStatus moderates a tutor profile. Approval also promotes the owner's account to tutor;
// that promotion is best-effort and the role sweep retries any promotion missed here.
func (s *TutorService) SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Tutor, error) {
	admin, err := requireAdmin(ctx, s.accounts, actor.Email)
	if err != nil {
		return nil, err
	}
	status, ok := models.ParseTutorStatus(rawStatus)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "tutor")
	}

	if err := s.repo.SetStatus(ctx, tutor.ID, status); err != nil {
		return nil, loadErr(err, "tutor")
	}
	previous := tutor.Status
	tutor.Status = status

	if status == models.TutorApproved {
		s.promote(ctx, tutor.Email)
	}

	recordAudit(ctx, s.accounts, s.logger, actor, admin.ID, auditEntry{
		action:     models.AuditActionTutorStatus,
		resource:   "tutors",
		resourceID: tutor.ID,
		oldValues:  map[string]interface{}{"status": previous},
		newValues:  map[string]interface{}{"status": status},
	})
	publish(ctx, s.publisher, s.logger, events.TypeTutorStatusChanged, map[string]interface{}{
		"tutorId": tutor.ID,
		"email":   tutor.Email,
		"status":  status,
	})
	return tutor, nil
}

func (s *TutorService) promote(ctx context.Context, email string) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("approved tutor has no account", zap.String("email", email))
			return
		}
		s.logger.Warn("failed to load account for tutor promotion", zap.String("email", email), zap.Error(err))
		return
	}
	if account.IsAdmin() || account.Role == models.RoleTutor {
		return
	}
	if _, err := s.accounts.SetRole(ctx, email, models.RoleTutor); err != nil {
		s.logger.Warn("failed to promote approved tutor", zap.String("email", email), zap.Error(err))
	}
}
