package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

type tutorService interface {
	Register(ctx context.Context, identity models.Identity, req dto.CreateTutorRequest) (*models.Tutor, error)
	Get(ctx context.Context, id string) (*models.Tutor, error)
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error)
	Latest(ctx context.Context) ([]models.Tutor, error)
	Update(ctx context.Context, actor models.Identity, id string, req dto.UpdateTutorRequest) (*models.Tutor, error)
	Delete(ctx context.Context, actor models.Identity, id string) error
	SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Tutor, error)
}

// TutorHandler handles tutor profile endpoints.
type TutorHandler struct {
	service tutorService
}

// NewTutorHandler creates a new tutor handler.
func NewTutorHandler(svc tutorService) *TutorHandler {
	return &TutorHandler{service: svc}
}

// List godoc
// @Summary List tutor profiles
// @Tags Tutors
// @Produce json
// @Param status query string false "Profile status"
// @Param subject query string false "Subject taught"
// @Param location query string false "Location substring"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	filter := models.TutorFilter{
		Subject:  c.Query("subject"),
		Location: c.Query("location"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseTutorStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected"))
			return
		}
		filter.Status = &status
	}

	tutors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// Latest godoc
// @Summary Newest approved tutors
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /latest-tutors [get]
func (h *TutorHandler) Latest(c *gin.Context) {
	tutors, err := h.service.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutors)
}

// Get godoc
// @Summary Get tutor profile
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "tutor")
	if !ok {
		return
	}
	tutor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// Register godoc
// @Summary Register a tutor profile
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body dto.CreateTutorRequest true "Tutor profile"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors [post]
func (h *TutorHandler) Register(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTutorRequest
	if !bindJSON(c, &req) {
		return
	}
	tutor, err := h.service.Register(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutor)
}

// Update godoc
// @Summary Update a tutor profile
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.UpdateTutorRequest true "Profile patch"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id} [patch]
func (h *TutorHandler) Update(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tutor")
	if !ok {
		return
	}
	var req dto.UpdateTutorRequest
	if !bindJSON(c, &req) {
		return
	}
	tutor, err := h.service.Update(c.Request.Context(), identity, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// SetStatus godoc
// @Summary Approve or reject a tutor profile
// @Description Approval also promotes the owning account to the tutor role
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body dto.StatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id}/status [patch]
func (h *TutorHandler) SetStatus(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tutor")
	if !ok {
		return
	}
	var req dto.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	tutor, err := h.service.SetStatus(c.Request.Context(), identity, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// Delete godoc
// @Summary Delete a tutor profile
// @Tags Tutors
// @Param id path string true "Tutor ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id} [delete]
func (h *TutorHandler) Delete(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tutor")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
