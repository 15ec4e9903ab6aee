package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/firebase"
)

type tokenVerifier interface {
	Verify(ctx context.Context, raw string) (*firebase.Token, error)
}

// IdentityService turns bearer credentials into verified identities.
type IdentityService struct {
	verifier tokenVerifier
	logger   *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(verifier tokenVerifier, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{verifier: verifier, logger: logger}
}

// Authenticate verifies the Authorization header value. Every call re-verifies the token.
func (s *IdentityService) Authenticate(ctx context.Context, header string) (*models.Identity, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token")
	}

	token, err := s.verifier.Verify(ctx, strings.TrimSpace(raw))
	if err != nil {
		switch {
		case errors.Is(err, firebase.ErrInvalidToken):
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
		case errors.Is(err, firebase.ErrKeysUnavailable), errors.Is(err, context.DeadlineExceeded):
			s.logger.Warn("identity verification unavailable", zap.Error(err))
			return nil, appErrors.External(err, "identity provider unavailable")
		default:
			return nil, appErrors.Internal(err, "failed to verify token")
		}
	}

	return &models.Identity{
		Email:   strings.ToLower(token.Email),
		UID:     token.Subject,
		Picture: token.Picture,
	}, nil
}
