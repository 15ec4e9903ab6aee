package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

type paymentService interface {
	CreateCheckoutSession(ctx context.Context, identity models.Identity, req dto.CheckoutRequest) (*models.CheckoutSession, error)
	Reconcile(ctx context.Context, sessionID string) (*models.ReconcileResult, error)
	List(ctx context.Context, actor models.Identity) ([]models.Payment, error)
	Receipt(ctx context.Context, actor models.Identity, id string) ([]byte, string, error)
	Export(ctx context.Context, actor models.Identity) ([]byte, error)
}

// PaymentHandler handles checkout and payment endpoints.
type PaymentHandler struct {
	service paymentService
	now     func() time.Time
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc, now: time.Now}
}

// Checkout godoc
// @Summary Open a checkout session
// @Description Amount is in major units and is charged as round(amount*100) minor units
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CheckoutRequest true "Checkout"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /create-checkout-session [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.service.CreateCheckoutSession(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Reconcile godoc
// @Summary Reconcile a checkout session
// @Description Records the payment once; repeated calls report already_exists
// @Tags Payments
// @Accept json
// @Produce json
// @Param session_id query string false "Checkout session ID"
// @Param payload body dto.ReconcileRequest false "Checkout session ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payment-success [patch]
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	req := dto.ReconcileRequest{SessionID: c.Query("session_id")}
	if req.SessionID == "" && c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	if strings.TrimSpace(req.SessionID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session_id is required"))
		return
	}

	result, err := h.service.Reconcile(c.Request.Context(), req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// List godoc
// @Summary List payments
// @Description Admins see every payment, other callers their own
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	payments, err := h.service.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payments)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "payment")
	if !ok {
		return
	}
	doc, filename, err := h.service.Receipt(c.Request.Context(), identity, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", doc)
}

// Export godoc
// @Summary Export payments as CSV
// @Tags Payments
// @Produce text/csv
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	body, err := h.service.Export(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("payments-%s.csv", h.now().UTC().Format("20060102"))
	response.Attachment(c, filename, "text/csv", body)
}

