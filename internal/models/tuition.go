package models

import (
	"strings"
	"time"
)

// TuitionStatus is the moderation state of a listing.
type TuitionStatus string

const (
	TuitionPending  TuitionStatus = "Pending"
	TuitionApproved TuitionStatus = "Approved"
	TuitionRejected TuitionStatus = "Rejected"
)

// ParseTuitionStatus accepts any letter case.
func ParseTuitionStatus(raw string) (TuitionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return TuitionPending, true
	case "approved":
		return TuitionApproved, true
	case "rejected":
		return TuitionRejected, true
	default:
		return "", false
	}
}

// PaymentState tracks whether a listing has been paid for.
type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

// PostedBy identifies the student who owns a listing.
type PostedBy struct {
	Email string  `db:"posted_by_email" json:"email"`
	UID   *string `db:"posted_by_uid" json:"uid,omitempty"`
}

// Tuition is a tuition request (listing) posted by a student.
type Tuition struct {
	ID            string        `db:"id" json:"id"`
	PostedBy      `json:"postedBy"`
	Subject       string        `db:"subject" json:"subject"`
	ClassLevel    string        `db:"class_level" json:"class_level"`
	Category      *string       `db:"category" json:"category,omitempty"`
	Method        *string       `db:"method" json:"method,omitempty"`
	Gender        *string       `db:"gender" json:"gender,omitempty"`
	Location      string        `db:"location" json:"location"`
	Budget        float64       `db:"budget" json:"budget"`
	Schedule      string        `db:"schedule" json:"schedule"`
	Details       *string       `db:"details" json:"details,omitempty"`
	Status        TuitionStatus `db:"status" json:"status"`
	PaymentStatus PaymentState  `db:"payment_status" json:"paymentStatus"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether email posted the listing.
func (t *Tuition) OwnedBy(email string) bool {
	return t != nil && email != "" && strings.EqualFold(t.PostedBy.Email, email)
}

// TuitionFilter captures listing query filters. Empty fields do not filter.
type TuitionFilter struct {
	Email      string
	ClassLevel string
	Subject    string
	Category   string
	Method     string
	Gender     string
	Status     *TuitionStatus
	Location   string
	SalaryMin  *float64
	SalaryMax  *float64
	Limit      int
}
