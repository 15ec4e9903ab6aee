package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, identity models.Identity, req dto.ApplyRequest) (*models.Application, error)
	ListMine(ctx context.Context, identity models.Identity) ([]models.Application, error)
	ListForTuition(ctx context.Context, actor models.Identity, tuitionID string) ([]models.Application, error)
	List(ctx context.Context, actor models.Identity) ([]models.Application, error)
	SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Application, error)
}

// ApplicationHandler handles tutor application endpoints.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler creates a new application handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Apply godoc
// @Summary Apply to a tuition listing
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ApplyRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.service.Apply(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Mine godoc
// @Summary List own applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/my [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	apps, err := h.service.ListMine(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps)
}

// ForTuition godoc
// @Summary List applications received by a listing
// @Tags Applications
// @Produce json
// @Param id path string true "Tuition ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tuitions/{id}/applications [get]
func (h *ApplicationHandler) ForTuition(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tuition")
	if !ok {
		return
	}
	apps, err := h.service.ListForTuition(c.Request.Context(), identity, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps)
}

// List godoc
// @Summary List all applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	apps, err := h.service.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps)
}

// SetStatus godoc
// @Summary Decide on an application
// @Description Accepts a status (pending, accepted, rejected) or an action (approve, reject)
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ApplicationStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id} [patch]
func (h *ApplicationHandler) SetStatus(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "application")
	if !ok {
		return
	}
	var req dto.ApplicationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Value() == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status or action is required"))
		return
	}
	app, err := h.service.SetStatus(c.Request.Context(), identity, id, req.Value())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}
