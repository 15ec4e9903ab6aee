package dto

// CheckoutRequest is the body of POST /create-checkout-session. Amount is in major units.
type CheckoutRequest struct {
	TuitionID string  `json:"tuitionId" validate:"required,uuid"`
	Subject   string  `json:"subject" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// ReconcileRequest carries the checkout session id to reconcile.
type ReconcileRequest struct {
	SessionID string `json:"sessionId" form:"session_id" validate:"required"`
}
