package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// TutorStatus is the approval state of a tutor profile.
type TutorStatus string

const (
	TutorPending  TutorStatus = "pending"
	TutorApproved TutorStatus = "approved"
	TutorRejected TutorStatus = "rejected"
)

// ParseTutorStatus accepts any letter case.
func ParseTutorStatus(raw string) (TutorStatus, bool) {
	switch s := TutorStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case TutorPending, TutorApproved, TutorRejected:
		return s, true
	default:
		return "", false
	}
}

// Tutor is a tutor's public profile, distinct from their account.
type Tutor struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	UID            *string        `db:"uid" json:"uid,omitempty"`
	Name           string         `db:"name" json:"name"`
	Qualifications string         `db:"qualifications" json:"qualifications"`
	Experience     *string        `db:"experience" json:"experience,omitempty"`
	Subjects       pq.StringArray `db:"subjects" json:"subjects"`
	ClassLevels    pq.StringArray `db:"class_levels" json:"class_levels"`
	Location       string         `db:"location" json:"location"`
	ExpectedSalary float64        `db:"expected_salary" json:"expected_salary"`
	Image          *string        `db:"image" json:"image,omitempty"`
	Status         TutorStatus    `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether the profile belongs to email.
func (t *Tutor) OwnedBy(email string) bool {
	return t != nil && email != "" && strings.EqualFold(t.Email, email)
}

// TutorFilter captures tutor listing filters.
type TutorFilter struct {
	Status   *TutorStatus
	Subject  string
	Location string
	Page     int
	PageSize int
}
