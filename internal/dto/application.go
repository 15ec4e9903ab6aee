package dto

// ApplyRequest is the body of POST /applications.
type ApplyRequest struct {
	TuitionID      string   `json:"tuitionId" validate:"required,uuid"`
	Message        string   `json:"message" validate:"required,max=2000"`
	Qualifications *string  `json:"qualifications"`
	ExpectedSalary *float64 `json:"expected_salary" validate:"omitempty,gte=0"`
}

// ApplicationStatusRequest accepts either a status or an approve/reject action keyword.
type ApplicationStatusRequest struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

// Value returns whichever of status or action was supplied.
func (r ApplicationStatusRequest) Value() string {
	if r.Status != "" {
		return r.Status
	}
	return r.Action
}
