package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

type tuitionService interface {
	Create(ctx context.Context, identity models.Identity, req dto.CreateTuitionRequest) (*models.Tuition, error)
	Query(ctx context.Context, filter models.TuitionFilter) ([]models.Tuition, error)
	Latest(ctx context.Context) ([]models.Tuition, error)
	Get(ctx context.Context, id string) (*models.Tuition, error)
	Update(ctx context.Context, actor models.Identity, id string, req dto.UpdateTuitionRequest) (*models.Tuition, error)
	Delete(ctx context.Context, actor models.Identity, id string) error
	SetStatus(ctx context.Context, actor models.Identity, id, rawStatus string) (*models.Tuition, error)
}

// TuitionHandler handles tuition listing endpoints.
type TuitionHandler struct {
	service tuitionService
}

// NewTuitionHandler creates a new tuition handler.
func NewTuitionHandler(svc tuitionService) *TuitionHandler {
	return &TuitionHandler{service: svc}
}

// List godoc
// @Summary Query tuition listings
// @Description Filters combine with AND; salaryMin and salaryMax are inclusive bounds on the budget
// @Tags Tuitions
// @Produce json
// @Param email query string false "Poster email"
// @Param class_level query string false "Class level (alias: course)"
// @Param subject query string false "Subject"
// @Param category query string false "Category"
// @Param method query string false "Teaching method"
// @Param gender query string false "Preferred tutor gender"
// @Param status query string false "Listing status"
// @Param location query string false "Location substring"
// @Param salaryMin query number false "Minimum budget"
// @Param salaryMax query number false "Maximum budget"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tuitions [get]
func (h *TuitionHandler) List(c *gin.Context) {
	filter, err := parseTuitionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tuitions, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tuitions)
}

func parseTuitionFilter(c *gin.Context) (models.TuitionFilter, error) {
	filter := models.TuitionFilter{
		Email:      c.Query("email"),
		ClassLevel: c.Query("class_level"),
		Subject:    c.Query("subject"),
		Category:   c.Query("category"),
		Method:     c.Query("method"),
		Gender:     c.Query("gender"),
		Location:   c.Query("location"),
	}
	if filter.ClassLevel == "" {
		filter.ClassLevel = c.Query("course")
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseTuitionStatus(raw)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "status must be Pending, Approved or Rejected")
		}
		filter.Status = &status
	}

	var err error
	if filter.SalaryMin, err = floatQuery(c, "salaryMin"); err != nil {
		return filter, err
	}
	if filter.SalaryMax, err = floatQuery(c, "salaryMax"); err != nil {
		return filter, err
	}
	return filter, nil
}

func floatQuery(c *gin.Context, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return &value, nil
}

// Latest godoc
// @Summary Newest tuition listings
// @Tags Tuitions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /latest-tuitions [get]
func (h *TuitionHandler) Latest(c *gin.Context) {
	tuitions, err := h.service.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tuitions)
}

// Get godoc
// @Summary Get tuition listing
// @Tags Tuitions
// @Produce json
// @Param id path string true "Tuition ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tuitions/{id} [get]
func (h *TuitionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "tuition")
	if !ok {
		return
	}
	tuition, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tuition)
}

// Create godoc
// @Summary Post a tuition listing
// @Tags Tuitions
// @Accept json
// @Produce json
// @Param payload body dto.CreateTuitionRequest true "Listing"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /tuitions [post]
func (h *TuitionHandler) Create(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTuitionRequest
	if !bindJSON(c, &req) {
		return
	}
	tuition, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tuition)
}

// Update godoc
// @Summary Update a tuition listing
// @Tags Tuitions
// @Accept json
// @Produce json
// @Param id path string true "Tuition ID"
// @Param payload body dto.UpdateTuitionRequest true "Listing patch"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /tuitions/{id} [put]
func (h *TuitionHandler) Update(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tuition")
	if !ok {
		return
	}
	var req dto.UpdateTuitionRequest
	if !bindJSON(c, &req) {
		return
	}
	tuition, err := h.service.Update(c.Request.Context(), identity, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tuition)
}

// SetStatus godoc
// @Summary Moderate a tuition listing
// @Tags Tuitions
// @Accept json
// @Produce json
// @Param id path string true "Tuition ID"
// @Param payload body dto.StatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tuitions/{id}/status [patch]
func (h *TuitionHandler) SetStatus(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tuition")
	if !ok {
		return
	}
	var req dto.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	tuition, err := h.service.SetStatus(c.Request.Context(), identity, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tuition)
}

// Delete godoc
// @Summary Delete a tuition listing
// @Tags Tuitions
// @Param id path string true "Tuition ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /tuitions/{id} [delete]
func (h *TuitionHandler) Delete(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "tuition")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
