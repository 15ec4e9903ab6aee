package models

import (
	"strings"
	"time"
)

// ApplicationStatus is the canonical decision state of an application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus maps every historical spelling onto the canonical set:
// Pending, Approved/approve/accept and Rejected/reject in any letter case.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return ApplicationPending, true
	case "accepted", "accept", "approved", "approve":
		return ApplicationAccepted, true
	case "rejected", "reject":
		return ApplicationRejected, true
	default:
		return "", false
	}
}

// Application is a tutor's request to be matched with a listing.
type Application struct {
	ID             string            `db:"id" json:"id"`
	TuitionID      string            `db:"tuition_id" json:"tuitionId"`
	TutorID        string            `db:"tutor_id" json:"tutorId"`
	TutorEmail     string            `db:"tutor_email" json:"tutorEmail"`
	Message        string            `db:"message" json:"message"`
	Qualifications *string           `db:"qualifications" json:"qualifications,omitempty"`
	ExpectedSalary *float64          `db:"expected_salary" json:"expected_salary,omitempty"`
	Status         ApplicationStatus `db:"status" json:"status"`
	AppliedAt      time.Time         `db:"applied_at" json:"appliedAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`

	TuitionSubject  *string `db:"tuition_subject" json:"tuitionSubject,omitempty"`
	TuitionLocation *string `db:"tuition_location" json:"tuitionLocation,omitempty"`
	TutorName       *string `db:"tutor_name" json:"tutorName,omitempty"`
}
