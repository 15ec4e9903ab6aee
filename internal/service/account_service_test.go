package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/pkg/events"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

func seededAccounts() *fakeAccounts {
	return newFakeAccounts(
		models.Account{ID: "admin-1", Email: "root@example.com", Name: "Root", Role: models.RoleAdmin},
		models.Account{ID: "student-1", Email: "a@example.com", Name: "A", Role: models.RoleStudent},
	)
}

func TestRegisterOrFetchIsIdempotent(t *testing.T) {
	repo := newFakeAccounts()
	svc := NewAccountService(repo, nil, nil, nil)
	identity := models.Identity{Email: "new@example.com", UID: "uid-9", Picture: "https://img/p.png"}

	first, created, err := svc.RegisterOrFetch(context.Background(), identity, dto.RegisterAccountRequest{Name: "New", Phone: "0100"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleStudent, first.Role)
	require.NotNil(t, first.UID)
	assert.Equal(t, "uid-9", *first.UID)

	second, created, err := svc.RegisterOrFetch(context.Background(), identity, dto.RegisterAccountRequest{Name: "Other", Phone: "0200"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "New", second.Name)
	assert.Equal(t, 1, repo.count())
}

func TestRegisterOrFetchValidates(t *testing.T) {
	svc := NewAccountService(newFakeAccounts(), nil, nil, nil)
	identity := identityFor("x@example.com")

	_, _, err := svc.RegisterOrFetch(context.Background(), identity, dto.RegisterAccountRequest{Name: "X"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.RegisterOrFetch(context.Background(), identity, dto.RegisterAccountRequest{Name: "X", Phone: "1", Role: "admin"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	account, _, err := svc.RegisterOrFetch(context.Background(), identity, dto.RegisterAccountRequest{Name: "X", Phone: "1", Role: "User"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, account.Role)
}

func TestGetRoleDefaultsForUnknownEmail(t *testing.T) {
	svc := NewAccountService(seededAccounts(), nil, nil, nil)

	role, err := svc.GetRole(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	role, err = svc.GetRole(context.Background(), "ROOT@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	svc := NewAccountService(seededAccounts(), nil, nil, nil)

	_, err := svc.ChangeRole(context.Background(), identityFor("a@example.com"), "admin-1", "student")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ChangeRole(context.Background(), identityFor("stranger@example.com"), "student-1", "tutor")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestChangeRoleValidatesAndFindsTarget(t *testing.T) {
	svc := NewAccountService(seededAccounts(), nil, nil, nil)
	admin := identityFor("root@example.com")

	_, err := svc.ChangeRole(context.Background(), admin, "student-1", "superuser")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.ChangeRole(context.Background(), admin, "ghost", "tutor")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAdminCannotDemoteSelfEvenWithOtherAdmins(t *testing.T) {
	repo := seededAccounts()
	repo.accounts["admin-2"] = &models.Account{ID: "admin-2", Email: "second@example.com", Role: models.RoleAdmin}
	svc := NewAccountService(repo, nil, nil, nil)

	_, err := svc.ChangeRole(context.Background(), identityFor("root@example.com"), "admin-1", "user")
	assert.ErrorIs(t, err, appErrors.ErrInvariantViolation)
	assert.Equal(t, models.RoleAdmin, repo.role("admin-1"))

	err = svc.DeleteAccount(context.Background(), identityFor("root@example.com"), "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrInvariantViolation)
}

func TestChangeRoleDemotesAnotherAdmin(t *testing.T) {
	repo := seededAccounts()
	repo.accounts["admin-2"] = &models.Account{ID: "admin-2", Email: "second@example.com", Role: models.RoleAdmin}
	publisher := &recordingPublisher{}
	svc := NewAccountService(repo, publisher, nil, nil)

	updated, err := svc.ChangeRole(context.Background(), identityFor("root@example.com"), "admin-2", "Tutor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTutor, updated.Role)
	assert.Equal(t, 1, repo.adminCount())
	assert.Equal(t, []string{events.TypeAccountRoleChanged}, publisher.types())
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRoleChange, repo.auditLogs[0].Action)
}

type racingAccounts struct {
	*fakeAccounts
	before func()
}

func (r *racingAccounts) UpdateRoleGuarded(ctx context.Context, id string, role models.Role) error {
	if r.before != nil {
		hook := r.before
		r.before = nil
		hook()
	}
	return r.fakeAccounts.UpdateRoleGuarded(ctx, id, role)
}

func TestConcurrentMutualDemotionKeepsOneAdmin(t *testing.T) {
	base := seededAccounts()
	base.accounts["admin-2"] = &models.Account{ID: "admin-2", Email: "second@example.com", Role: models.RoleAdmin}
	repo := &racingAccounts{fakeAccounts: base}
	// admin-2 demotes admin-1 after admin-1 passed its own admin check.
	repo.before = func() {
		require.NoError(t, base.UpdateRoleGuarded(context.Background(), "admin-1", models.RoleUser))
	}
	svc := NewAccountService(repo, nil, nil, nil)

	_, err := svc.ChangeRole(context.Background(), identityFor("root@example.com"), "admin-2", "user")
	assert.ErrorIs(t, err, appErrors.ErrInvariantViolation)
	assert.Equal(t, 1, base.adminCount())
	assert.Equal(t, models.RoleAdmin, base.role("admin-2"))
}

func TestDeleteAccount(t *testing.T) {
	repo := seededAccounts()
	publisher := &recordingPublisher{}
	svc := NewAccountService(repo, publisher, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteAccount(ctx, identityFor("a@example.com"), "admin-1"), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, identityFor("root@example.com"), "ghost"), appErrors.ErrNotFound)

	require.NoError(t, svc.DeleteAccount(ctx, identityFor("root@example.com"), "student-1"))
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1, repo.adminCount())
	assert.Equal(t, []string{events.TypeAccountDeleted}, publisher.types())
}

func TestUpdateProfile(t *testing.T) {
	repo := seededAccounts()
	svc := NewAccountService(repo, nil, nil, nil)
	name := "  Alice  "

	account, err := svc.UpdateProfile(context.Background(), identityFor("a@example.com"), dto.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice", account.Name)

	_, err = svc.UpdateProfile(context.Background(), identityFor("ghost@example.com"), dto.UpdateProfileRequest{Name: &name})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListAccountsRequiresAdmin(t *testing.T) {
	svc := NewAccountService(seededAccounts(), nil, nil, nil)

	_, _, err := svc.List(context.Background(), identityFor("a@example.com"), models.AccountFilter{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	accounts, pagination, err := svc.List(context.Background(), identityFor("root@example.com"), models.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)
}
