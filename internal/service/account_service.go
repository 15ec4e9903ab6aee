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
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type accountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (bool, error)
	UpdateProfile(ctx context.Context, account *models.Account) error
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error)
	UpdateRoleGuarded(ctx context.Context, id string, role models.Role) error
	DeleteGuarded(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AccountService manages account registration and the role lifecycle.
type AccountService struct {
	repo      accountRepository
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(repo accountRepository, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{repo: repo, publisher: publisher, validator: validate, logger: logger}
}

// RegisterOrFetch returns the caller's account, creating it on first sight.
// created is false when an account already existed, in which case it is returned unchanged.
func (s *AccountService) RegisterOrFetch(ctx context.Context, identity models.Identity, req dto.RegisterAccountRequest) (account *models.Account, created bool, err error) {
	existing, err := s.repo.FindByEmail(ctx, identity.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to load account")
	}

	req.Email = identity.Email
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationErr(err, "name, email and phone are required")
	}

	role := models.RoleStudent
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok || (parsed != models.RoleStudent && parsed != models.RoleUser) {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "role must be student or user")
		}
		role = parsed
	}

	account = &models.Account{
		Email: strings.ToLower(identity.Email),
		Name:  req.Name,
		Phone: req.Phone,
		Role:  role,
	}
	if identity.UID != "" {
		account.UID = &identity.UID
	}
	if identity.Picture != "" {
		account.Image = &identity.Picture
	}

	created, err = s.repo.Create(ctx, account)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to create account")
	}
	if created {
		recordAudit(ctx, s.repo, s.logger, identity, account.ID, auditEntry{
			action:     models.AuditActionAccountCreate,
			resource:   "accounts",
			resourceID: account.ID,
			newValues:  map[string]interface{}{"email": account.Email, "role": account.Role},
		})
	}
	return account, created, nil
}

// GetRole returns the role held by email, or the default role when no account exists.
func (s *AccountService) GetRole(ctx context.Context, email string) (models.Role, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultRole, nil
		}
		return "", appErrors.Internal(err, "failed to load account")
	}
	return account.Role, nil
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, identity models.Identity) (*models.Account, error) {
	account, err := s.repo.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, loadErr(err, "account")
	}
	return account, nil
}

// UpdateProfile patches the caller's own name, phone or image.
func (s *AccountService) UpdateProfile(ctx context.Context, identity models.Identity, req dto.UpdateProfileRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid profile payload")
	}
	account, err := s.repo.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, loadErr(err, "account")
	}
	if req.Name != nil {
		account.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		account.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Image != nil {
		account.Image = req.Image
	}
	if err := s.repo.UpdateProfile(ctx, account); err != nil {
		return nil, appErrors.Internal(err, "failed to update account")
	}
	return account, nil
}

// List returns accounts for an admin caller.
func (s *AccountService) List(ctx context.Context, actor models.Identity, filter models.AccountFilter) ([]models.Account, *models.Pagination, error) {
	if _, err := requireAdmin(ctx, s.repo, actor.Email); err != nil {
		return nil, nil, err
	}
	accounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list accounts")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return accounts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ChangeRole assigns newRole to the target account. Only admins may change roles,
// an admin may never demote themselves, and the last admin can never be demoted.
func (s *AccountService) ChangeRole(ctx context.Context, actor models.Identity, targetID, newRole string) (*models.Account, error) {
	admin, err := requireAdmin(ctx, s.repo, actor.Email)
	if err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(newRole)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, loadErr(err, "account")
	}
	if target.ID == admin.ID && role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrInvariantViolation, "admins cannot change their own role")
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.repo.UpdateRoleGuarded(ctx, target.ID, role); err != nil {
		return nil, s.guardErr(err)
	}

	previous := target.Role
	target.Role = role
	recordAudit(ctx, s.repo, s.logger, actor, admin.ID, auditEntry{
		action:     models.AuditActionRoleChange,
		resource:   "accounts",
		resourceID: target.ID,
		oldValues:  map[string]interface{}{"role": previous},
		newValues:  map[string]interface{}{"role": role},
	})
	publish(ctx, s.publisher, s.logger, events.TypeAccountRoleChanged, map[string]interface{}{
		"accountId": target.ID,
		"email":     target.Email,
		"from":      previous,
		"to":        role,
	})
	return target, nil
}

// DeleteAccount removes the target account under the same admin rules as ChangeRole.
func (s *AccountService) DeleteAccount(ctx context.Context, actor models.Identity, targetID string) error {
	admin, err := requireAdmin(ctx, s.repo, actor.Email)
	if err != nil {
		return err
	}
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return loadErr(err, "account")
	}
	if target.ID == admin.ID {
		return appErrors.Clone(appErrors.ErrInvariantViolation, "admins cannot delete their own account")
	}

	if err := s.repo.DeleteGuarded(ctx, target.ID); err != nil {
		return s.guardErr(err)
	}

	recordAudit(ctx, s.repo, s.logger, actor, admin.ID, auditEntry{
		action:     models.AuditActionAccountDelete,
		resource:   "accounts",
		resourceID: target.ID,
		oldValues:  map[string]interface{}{"email": target.Email, "role": target.Role},
	})
	publish(ctx, s.publisher, s.logger, events.TypeAccountDeleted, map[string]interface{}{
		"accountId": target.ID,
		"email":     target.Email,
	})
	return nil
}

func (s *AccountService) guardErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrLastAdmin):
		return appErrors.Clone(appErrors.ErrInvariantViolation, "at least one admin must remain")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "account not found")
	default:
		return appErrors.Internal(err, "failed to update account")
	}
}
