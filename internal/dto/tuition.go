package dto

// CreateTuitionRequest holds the fields of a new listing.
type CreateTuitionRequest struct {
	Subject    string  `json:"subject" validate:"required"`
	ClassLevel string  `json:"class_level" validate:"required"`
	Course     string  `json:"course"`
	Class      string  `json:"class"`
	Category   *string `json:"category"`
	Method     *string `json:"method"`
	Gender     *string `json:"gender"`
	Location   string  `json:"location" validate:"required"`
	Budget     float64 `json:"budget" validate:"required,gt=0"`
	Salary     float64 `json:"salary"`
	Schedule   string  `json:"schedule" validate:"required"`
	Details    *string `json:"details"`
}

// Normalize folds the historical field aliases (course/class, salary) into the canonical ones.
func (r *CreateTuitionRequest) Normalize() {
	if r.ClassLevel == "" {
		if r.Class != "" {
			r.ClassLevel = r.Class
		} else {
			r.ClassLevel = r.Course
		}
	}
	if r.Budget == 0 {
		r.Budget = r.Salary
	}
}

// UpdateTuitionRequest patches a listing; nil fields are left untouched.
type UpdateTuitionRequest struct {
	Subject    *string  `json:"subject" validate:"omitempty,min=1"`
	ClassLevel *string  `json:"class_level" validate:"omitempty,min=1"`
	Category   *string  `json:"category"`
	Method     *string  `json:"method"`
	Gender     *string  `json:"gender"`
	Location   *string  `json:"location" validate:"omitempty,min=1"`
	Budget     *float64 `json:"budget" validate:"omitempty,gt=0"`
	Schedule   *string  `json:"schedule" validate:"omitempty,min=1"`
	Details    *string  `json:"details"`
}

// StatusRequest is the body of the moderation endpoints.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}
