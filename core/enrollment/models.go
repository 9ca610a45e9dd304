package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

type Status string

// Enrollment statuses
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
)

var AllStatuses = []Status{StatusActive, StatusCompleted, StatusDropped}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDropped:
		return true
	}
	return false
}

type Enrollment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user"`
	CourseID       string    `json:"course"`
	CourseTitle    string    `json:"course_title,omitempty"`
	Status         Status    `json:"status"`
	EnrollmentDate time.Time `json:"enrollment_date"` // UTC
	UpdatedAt      time.Time `json:"updated_at"`      // UTC
}

// NewEnrollment is the body of an enrollment request.
type NewEnrollment struct {
	CourseID string `json:"course" validate:"required,entityid"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.CourseID = core.CleanString(ne.CourseID)
	return validate.Struct(ne)
}

// StatusUpdate is the body of a status change.
type StatusUpdate struct {
	Status Status `json:"status"`
}

type GetFilter struct {
	ID       string
	UserID   string
	CourseID string
}

type QueryFilter struct {
	Search   string   `query:"search"`
	UserID   string   `query:"user"`
	CourseID string   `query:"course"`
	Statuses []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.UserID = core.CleanString(qf.UserID)
	qf.CourseID = core.CleanString(qf.CourseID)
}
