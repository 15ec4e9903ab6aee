package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/firebase"
)

type stubVerifier struct {
	token *firebase.Token
	err   error
	calls int
	raw   string
}

func (v *stubVerifier) Verify(ctx context.Context, raw string) (*firebase.Token, error) {
	v.calls++
	v.raw = raw
	return v.token, v.err
}

func TestAuthenticateReturnsLowercasedIdentity(t *testing.T) {
	verifier := &stubVerifier{token: &firebase.Token{Subject: "uid-1", Email: "Student@Example.com", Picture: "https://img/p.png"}}
	svc := NewIdentityService(verifier, nil)

	identity, err := svc.Authenticate(context.Background(), "Bearer  abc.def.ghi ")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", verifier.raw)
	assert.Equal(t, "student@example.com", identity.Email)
	assert.Equal(t, "uid-1", identity.UID)
	assert.Equal(t, "https://img/p.png", identity.Picture)

	_, err = svc.Authenticate(context.Background(), "bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, 2, verifier.calls)
}

func TestAuthenticateRejectsMissingCredentials(t *testing.T) {
	verifier := &stubVerifier{}
	svc := NewIdentityService(verifier, nil)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "token"} {
		_, err := svc.Authenticate(context.Background(), header)
		assert.ErrorIs(t, err, appErrors.ErrUnauthorized, header)
	}
	assert.Zero(t, verifier.calls)
}

func TestAuthenticateMapsVerifierFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *appErrors.Error
	}{
		{"invalid", fmt.Errorf("%w: token is expired", firebase.ErrInvalidToken), appErrors.ErrUnauthorized},
		{"keys unavailable", fmt.Errorf("%w: 503", firebase.ErrKeysUnavailable), appErrors.ErrExternalService},
		{"deadline", context.DeadlineExceeded, appErrors.ErrExternalService},
		{"unexpected", errors.New("boom"), appErrors.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewIdentityService(&stubVerifier{err: tc.err}, nil)
			_, err := svc.Authenticate(context.Background(), "Bearer token")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
