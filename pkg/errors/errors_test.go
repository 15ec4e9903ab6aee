package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", Clone(ErrConflict, "email already exists"))
	appErr := FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "email already exists", appErr.Message)
}

func TestFromErrorMapsDeadlineToExternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrExternalService.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestFromErrorHidesUnknownCause(t *testing.T) {
	appErr := FromError(fmt.Errorf("pq: relation does not exist"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestClonedErrorsMatchSentinel(t *testing.T) {
	err := Clone(ErrInvariantViolation, "at least one admin must remain")
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.NotErrorIs(t, err, ErrForbidden)
}
