package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

type Status string

// Progress statuses
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var AllStatuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Progress tracks a user's work on a learning task.
type Progress struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user"`
	TaskID         string    `json:"task"`
	TaskTitle      string    `json:"task_title,omitempty"`
	Status         Status    `json:"status"`
	StartDate      null.Time `json:"start_date"`      // UTC
	CompletionDate null.Time `json:"completion_date"` // UTC, set once
	TimeSpent      int64     `json:"time_spent"`      // seconds
	CreatedAt      time.Time `json:"created_at"`      // UTC
	UpdatedAt      time.Time `json:"updated_at"`      // UTC
}

// SetStatus moves p to status at now.
// Entering in_progress stamps an unset start date; entering completed stamps an unset completion
// date. Neither date is ever overwritten. UpdatedAt is always bumped.
func (p *Progress) SetStatus(status Status, now time.Time) {
	p.Status = status
	switch status {
	case StatusInProgress:
		if !p.StartDate.Valid {
			p.StartDate.SetValid(now)
		}
	case StatusCompleted:
		if !p.CompletionDate.Valid {
			p.CompletionDate.SetValid(now)
		}
	}
	p.UpdatedAt = now
}

// NewProgress contains information needed to start tracking a task.
type NewProgress struct {
	TaskID    string `json:"task" validate:"required,entityid"`
	Status    Status `json:"status"`
	TimeSpent int64  `json:"time_spent" validate:"min=0"`
}

func (np *NewProgress) Validate(validate *validator.Validate) error {
	np.TaskID = core.CleanString(np.TaskID)
	if np.Status == "" {
		np.Status = StatusNotStarted
	}
	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// UpdateProgress defines what information may be provided to modify an existing Progress.
type UpdateProgress struct {
	Status    *Status `json:"status"`
	TimeSpent *int64  `json:"time_spent" validate:"omitempty,min=0"`
}

func (up *UpdateProgress) Validate(validate *validator.Validate) error {
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Status != nil && !up.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// StatusUpdate is the body of a status change.
type StatusUpdate struct {
	Status Status `json:"status"`
}

type QueryFilter struct {
	Search   string   `query:"search"`
	UserID   string   `query:"user"`
	CourseID string   `query:"course"`
	TaskID   string   `query:"task"`
	Statuses []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.UserID = core.CleanString(qf.UserID)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.TaskID = core.CleanString(qf.TaskID)
}
