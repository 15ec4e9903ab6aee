package models

import (
	"strings"
	"time"
)

// Payment is the durable record of a settled checkout, keyed by the provider transaction id.
type Payment struct {
	ID            string    `db:"id" json:"id"`
	TransactionID string    `db:"transaction_id" json:"transactionId"`
	SessionID     string    `db:"session_id" json:"sessionId"`
	Amount        float64   `db:"amount" json:"amount"`
	Currency      string    `db:"currency" json:"currency"`
	CustomerEmail string    `db:"customer_email" json:"customerEmail"`
	TuitionID     string    `db:"tuition_id" json:"tuitionId"`
	Subject       *string   `db:"subject" json:"subject,omitempty"`
	PaymentStatus string    `db:"payment_status" json:"paymentStatus"`
	PaidAt        time.Time `db:"paid_at" json:"paidAt"`
}

// OwnedBy reports whether email paid for this record.
func (p *Payment) OwnedBy(email string) bool {
	return p != nil && email != "" && strings.EqualFold(p.CustomerEmail, email)
}

// ReconcileOutcome describes what a reconciliation call did.
type ReconcileOutcome string

const (
	ReconcileCreated       ReconcileOutcome = "created"
	ReconcileAlreadyExists ReconcileOutcome = "already_exists"
	ReconcileNotPaid       ReconcileOutcome = "not_paid"
)

// ReconcileResult is returned by payment reconciliation.
type ReconcileResult struct {
	Outcome       ReconcileOutcome `json:"outcome"`
	Message       string           `json:"message"`
	PaymentStatus string           `json:"paymentStatus"`
	Payment       *Payment         `json:"payment,omitempty"`
}

// CheckoutSession is handed back to the client to redirect into hosted checkout.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
