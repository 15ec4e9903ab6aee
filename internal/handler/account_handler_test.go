package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type accountServiceMock struct {
	created    bool
	lastReq    dto.RegisterAccountRequest
	lastFilter models.AccountFilter
	role       models.Role
	roleEmail  string
	changeErr  error
	deleteErr  error
}

func (m *accountServiceMock) RegisterOrFetch(ctx context.Context, identity models.Identity, req dto.RegisterAccountRequest) (*models.Account, bool, error) {
	m.lastReq = req
	return &models.Account{ID: "acc-1", Email: identity.Email, Name: req.Name, Role: models.RoleStudent}, m.created, nil
}

func (m *accountServiceMock) GetRole(ctx context.Context, email string) (models.Role, error) {
	m.roleEmail = email
	return m.role, nil
}

func (m *accountServiceMock) Me(ctx context.Context, identity models.Identity) (*models.Account, error) {
	return &models.Account{ID: "acc-1", Email: identity.Email}, nil
}

func (m *accountServiceMock) UpdateProfile(ctx context.Context, identity models.Identity, req dto.UpdateProfileRequest) (*models.Account, error) {
	return &models.Account{ID: "acc-1", Email: identity.Email}, nil
}

func (m *accountServiceMock) List(ctx context.Context, actor models.Identity, filter models.AccountFilter) ([]models.Account, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Account{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *accountServiceMock) ChangeRole(ctx context.Context, actor models.Identity, targetID, newRole string) (*models.Account, error) {
	if m.changeErr != nil {
		return nil, m.changeErr
	}
	return &models.Account{ID: targetID, Role: models.Role(newRole)}, nil
}

func (m *accountServiceMock) DeleteAccount(ctx context.Context, actor models.Identity, targetID string) error {
	return m.deleteErr
}

func TestAccountRegisterStatusReflectsCreation(t *testing.T) {
	for created, status := range map[bool]int{true: http.StatusCreated, false: http.StatusOK} {
		svc := &accountServiceMock{created: created}
		h := NewAccountHandler(svc)
		c, w := newTestContext(http.MethodPost, "/users", []byte(`{"name":"A","phone":"0100","email":"spoof@example.com"}`))
		withIdentity(c, "a@example.com")

		h.Register(c)
		assert.Equal(t, status, w.Code)
		assert.Equal(t, "a@example.com", svc.lastReq.Email)
	}
}

func TestAccountRegisterRequiresIdentity(t *testing.T) {
	h := NewAccountHandler(&accountServiceMock{})
	c, w := newTestContext(http.MethodPost, "/users", []byte(`{}`))

	h.Register(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountRoleLowercasesEmail(t *testing.T) {
	svc := &accountServiceMock{role: models.RoleUser}
	h := NewAccountHandler(svc)
	c, w := newTestContext(http.MethodGet, "/users/A@Example.com/role", nil)
	c.Params = append(c.Params, ginParam("email", "A@Example.com"))
	withIdentity(c, "a@example.com")

	h.Role(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.com", svc.roleEmail)
	assert.Contains(t, w.Body.String(), `"role":"user"`)
}

func TestAccountListParsesFilters(t *testing.T) {
	svc := &accountServiceMock{}
	h := NewAccountHandler(svc)
	c, w := newTestContext(http.MethodGet, "/users?page=2&page_size=5&role=Tutor&search=bin", nil)
	withIdentity(c, "root@example.com")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	require.NotNil(t, svc.lastFilter.Role)
	assert.Equal(t, models.RoleTutor, *svc.lastFilter.Role)
	assert.Equal(t, "bin", svc.lastFilter.Search)
	assert.Contains(t, w.Body.String(), `"pagination"`)

	c, w = newTestContext(http.MethodGet, "/users?role=owner", nil)
	withIdentity(c, "root@example.com")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountChangeRoleRendersGuard(t *testing.T) {
	h := NewAccountHandler(&accountServiceMock{changeErr: appErrors.Clone(appErrors.ErrInvariantViolation, "at least one admin must remain")})
	c, w := newTestContext(http.MethodPatch, "/users/"+testID+"/role", []byte(`{"role":"student"}`))
	c.Params = append(c.Params, ginParam("id", testID))
	withIdentity(c, "root@example.com")

	h.ChangeRole(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVARIANT_VIOLATION")
}

func TestAccountDelete(t *testing.T) {
	h := NewAccountHandler(&accountServiceMock{})
	c, w := newTestContext(http.MethodDelete, "/users/"+testID, nil)
	c.Params = append(c.Params, ginParam("id", testID))
	withIdentity(c, "root@example.com")

	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}
