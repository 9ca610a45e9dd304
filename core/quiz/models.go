package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

// Attempt is one scored pass at a quiz by one user.
// Score is only meaningful once IsSubmitted is true.
type Attempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user"`
	QuizID         string    `json:"quiz"`
	QuizTitle      string    `json:"quiz_title,omitempty"`
	StartDate      time.Time `json:"start_date"`      // UTC
	SubmissionDate null.Time `json:"submission_date"` // UTC
	IsSubmitted    bool      `json:"is_submitted"`
	Score          float64   `json:"score"`
}

// Response is the answer given to one question during an attempt.
type Response struct {
	ID               string      `json:"id"`
	AttemptID        string      `json:"quiz_attempt"`
	QuestionID       string      `json:"question"`
	SelectedOptionID null.String `json:"selected_option"`
	IsCorrect        bool        `json:"is_correct"`
	CreatedAt        time.Time   `json:"created_at"` // UTC
}

// NewAttempt is the body of an attempt start request.
type NewAttempt struct {
	QuizID string `json:"quiz" validate:"required,entityid"`
}

func (na *NewAttempt) Validate(validate *validator.Validate) error {
	na.QuizID = core.CleanString(na.QuizID)
	return validate.Struct(na)
}

type ResponseInput struct {
	QuestionID       string      `json:"question" validate:"required,entityid"`
	SelectedOptionID null.String `json:"selected_option"`
}

// Submission is the body of a submit_responses request.
type Submission struct {
	Responses []ResponseInput `json:"responses" validate:"dive"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

type QueryFilter struct {
	Search   string `query:"search"`
	UserID   string `query:"user"`
	QuizID   string `query:"quiz"`
	CourseID string `query:"course"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.UserID = core.CleanString(qf.UserID)
	qf.QuizID = core.CleanString(qf.QuizID)
	qf.CourseID = core.CleanString(qf.CourseID)
}

// Score returns the percentage of correct responses, 0 when there are none.
func Score(responses []Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	var correct int
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(responses)) * 100
}
