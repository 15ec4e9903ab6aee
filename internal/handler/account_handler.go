package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

type accountService interface {
	RegisterOrFetch(ctx context.Context, identity models.Identity, req dto.RegisterAccountRequest) (*models.Account, bool, error)
	GetRole(ctx context.Context, email string) (models.Role, error)
	Me(ctx context.Context, identity models.Identity) (*models.Account, error)
	UpdateProfile(ctx context.Context, identity models.Identity, req dto.UpdateProfileRequest) (*models.Account, error)
	List(ctx context.Context, actor models.Identity, filter models.AccountFilter) ([]models.Account, *models.Pagination, error)
	ChangeRole(ctx context.Context, actor models.Identity, targetID, newRole string) (*models.Account, error)
	DeleteAccount(ctx context.Context, actor models.Identity, targetID string) error
}

// AccountHandler handles account endpoints.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc accountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// Register godoc
// @Summary Register or fetch the caller's account
// @Description Returns the existing account for the token email, or creates one
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.RegisterAccountRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *AccountHandler) Register(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.RegisterAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Email = identity.Email

	account, created, err := h.service.RegisterOrFetch(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, account)
		return
	}
	response.OK(c, account)
}

// Role godoc
// @Summary Get role by email
// @Tags Users
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{email}/role [get]
func (h *AccountHandler) Role(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	role, err := h.service.GetRole(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RoleResponse{Email: email, Role: string(role)})
}

// Me godoc
// @Summary Get own account
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	account, err := h.service.Me(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// UpdateMe godoc
// @Summary Update own profile
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [patch]
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.service.UpdateProfile(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// List godoc
// @Summary List accounts
// @Description Admin-only paginated account listing
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Name or email search"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *AccountHandler) List(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var filter models.AccountFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if raw := c.Query("role"); raw != "" {
		role, valid := models.ParseRole(raw)
		if !valid {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown role"))
			return
		}
		filter.Role = &role
	}
	filter.Search = c.Query("search")

	accounts, pagination, err := h.service.List(c.Request.Context(), identity, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, pagination)
}

// ChangeRole godoc
// @Summary Change an account role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param payload body dto.ChangeRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id}/role [patch]
func (h *AccountHandler) ChangeRole(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "account")
	if !ok {
		return
	}
	var req dto.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.service.ChangeRole(c.Request.Context(), identity, id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// Delete godoc
// @Summary Delete an account
// @Tags Users
// @Param id path string true "Account ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "account")
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(c.Request.Context(), identity, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
