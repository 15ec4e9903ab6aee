package dto

// CreateTutorRequest registers the caller's tutor profile.
type CreateTutorRequest struct {
	Name           string   `json:"name" validate:"required,max=120"`
	Qualifications string   `json:"qualifications" validate:"required"`
	Experience     *string  `json:"experience"`
	Subjects       []string `json:"subjects" validate:"required,min=1,dive,required"`
	ClassLevels    []string `json:"class_levels" validate:"omitempty,dive,required"`
	Location       string   `json:"location" validate:"required"`
	ExpectedSalary float64  `json:"expected_salary" validate:"gte=0"`
	Image          *string  `json:"image" validate:"omitempty,url"`
}

// UpdateTutorRequest patches a tutor profile; nil fields are left untouched.
type UpdateTutorRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Qualifications *string  `json:"qualifications" validate:"omitempty,min=1"`
	Experience     *string  `json:"experience"`
	Subjects       []string `json:"subjects" validate:"omitempty,min=1,dive,required"`
	ClassLevels    []string `json:"class_levels" validate:"omitempty,dive,required"`
	Location       *string  `json:"location" validate:"omitempty,min=1"`
	ExpectedSalary *float64 `json:"expected_salary" validate:"omitempty,gte=0"`
	Image          *string  `json:"image" validate:"omitempty,url"`
}
