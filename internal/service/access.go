package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type accountReader interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type accountAuditor interface {
	accountReader
	auditWriter
}

// callerAccount loads the caller's account, returning nil when none exists.
func callerAccount(ctx context.Context, accounts accountReader, email string) (*models.Account, error) {
	account, err := accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load caller account")
	}
	return account, nil
}

func isAdmin(ctx context.Context, accounts accountReader, email string) (bool, error) {
	account, err := callerAccount(ctx, accounts, email)
	if err != nil {
		return false, err
	}
	return account.IsAdmin(), nil
}

func requireAdmin(ctx context.Context, accounts accountReader, email string) (*models.Account, error) {
	account, err := callerAccount(ctx, accounts, email)
	if err != nil {
		return nil, err
	}
	if !account.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return account, nil
}

// ownedResource is implemented by every record that belongs to one account email.
type ownedResource interface {
	OwnedBy(email string) bool
}

// authorizeOwner allows the owner of a resource and any admin.
func authorizeOwner(ctx context.Context, accounts accountReader, actorEmail string, resource ownedResource) error {
	if resource.OwnedBy(actorEmail) {
		return nil
	}
	admin, err := isAdmin(ctx, accounts, actorEmail)
	if err != nil {
		return err
	}
	if !admin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner or an admin may do this")
	}
	return nil
}

// loadErr maps a repository lookup failure to NotFound or an internal error.
func loadErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to load "+what)
}

func validationErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

type auditEntry struct {
	action     string
	resource   string
	resourceID string
	oldValues  map[string]interface{}
	newValues  map[string]interface{}
}

func recordAudit(ctx context.Context, writer auditWriter, logger *zap.Logger, actor models.Identity, actorID string, entry auditEntry) {
	if writer == nil {
		return
	}
	log := &models.AuditLog{
		Action:     entry.action,
		Resource:   entry.resource,
		ResourceID: &entry.resourceID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if entry.oldValues != nil {
		log.OldValues, _ = json.Marshal(entry.oldValues)
	}
	if entry.newValues != nil {
		log.NewValues, _ = json.Marshal(entry.newValues)
	}
	if err := writer.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.action), zap.String("resource_id", entry.resourceID), zap.Error(err))
	}
}

func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, eventType string, payload map[string]interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.New(eventType, payload)); err != nil {
		logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
