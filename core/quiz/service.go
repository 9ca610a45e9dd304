package quiz

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("quiz attempt not found")
	ErrQuizNotFound        = core.NewNotFoundError("quiz not found")
	ErrAlreadySubmitted    = core.NewConflictError("this quiz attempt has already been submitted")
	ErrResponsesPermission = core.NewPermissionError("you do not have permission to view these responses")
)

// NewAttemptLimitError is returned when a user has used all the attempts of a quiz.
func NewAttemptLimitError(maxAttempts int) error {
	return core.NewConflictError(fmt.Sprintf("maximum number of attempts (%d) reached", maxAttempts))
}

type (
	Repository interface {
		CountAttempts(ctx context.Context, userID, quizID string) (int, error)
		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		QueryAttempts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attempt, error)
		// SubmitAttempt marks att submitted with its score and submission date and inserts its responses,
		// in one transaction. The update only applies to an unsubmitted attempt: when it matches no row,
		// nothing is written and ErrAlreadySubmitted is returned.
		SubmitAttempt(ctx context.Context, att Attempt, responses []Response) (Attempt, error)
		QueryResponses(ctx context.Context, attemptID string) ([]Response, error)
	}

	Service interface {
		StartAttempt(ctx context.Context, usr user.User, quizID string) (Attempt, error)
		Get(ctx context.Context, principal user.User, id string) (Attempt, error)
		Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Attempt, error)
		SubmitResponses(ctx context.Context, principal user.User, att Attempt, inputs []ResponseInput) (Attempt, error)
		Responses(ctx context.Context, principal user.User, att Attempt) ([]Response, error)
	}

	service struct {
		repo       Repository
		courseRepo course.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseRepo course.Repository) Service {
	return &service{repo: repo, courseRepo: courseRepo}
}

// StartAttempt opens a new attempt of usr at a quiz unless its attempt limit is reached.
func (svc *service) StartAttempt(ctx context.Context, usr user.User, quizID string) (Attempt, error) {
	task, err := svc.courseRepo.GetTask(ctx, quizID)
	if err != nil {
		if core.IsNotFound(err) {
			return Attempt{}, ErrQuizNotFound
		}
		return Attempt{}, err
	}
	if !task.IsQuiz() {
		return Attempt{}, ErrQuizNotFound
	}

	// TODO: count and insert in one statement to close the race between concurrent starts
	if task.MaxAttempts.Valid {
		count, err := svc.repo.CountAttempts(ctx, usr.ID, task.ID)
		if err != nil {
			return Attempt{}, errors.Wrap(err, "counting attempts")
		}
		if count >= task.MaxAttempts.Int {
			return Attempt{}, NewAttemptLimitError(task.MaxAttempts.Int)
		}
	}

	now := core.Now()
	att := Attempt{
		UserID:    usr.ID,
		QuizID:    task.ID,
		StartDate: now,
	}
	att.SubmissionDate.SetValid(now)
	att, err = svc.repo.CreateAttempt(ctx, att)
	if err != nil {
		return Attempt{}, err
	}
	att.QuizTitle = task.Title
	return att, nil
}

// Get returns an attempt the principal may see.
func (svc *service) Get(ctx context.Context, principal user.User, id string) (Attempt, error) {
	if !core.IsValidID(id) {
		return Attempt{}, ErrNotFound
	}
	att, err := svc.repo.GetAttempt(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	if !permission.IsOwnerOrElevated(principal, att.UserID) {
		return Attempt{}, ErrNotFound
	}
	return att, nil
}

// Query lists the principal's own attempts, or anyone's for elevated principals.
func (svc *service) Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Attempt, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !principal.IsElevated() {
		filter.UserID = principal.ID
	}
	return svc.repo.QueryAttempts(ctx, filter, ordering)
}

// SubmitResponses grades inputs against the quiz's correct options and submits att with the resulting score.
func (svc *service) SubmitResponses(ctx context.Context, principal user.User, att Attempt, inputs []ResponseInput) (Attempt, error) {
	if att.IsSubmitted {
		return Attempt{}, ErrAlreadySubmitted
	}
	if !permission.IsOwnerOrElevated(principal, att.UserID) {
		return Attempt{}, core.ErrPermissionDenied
	}

	now := core.Now()
	responses := make([]Response, 0, len(inputs))
	for i, in := range inputs {
		q, err := svc.courseRepo.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			return Attempt{}, err
		}
		if q.QuizID != att.QuizID {
			return Attempt{}, core.NewValidationError(
				errors.Errorf("question %s does not belong to this quiz", q.ID),
				core.FieldError{Field: fmt.Sprintf("responses[%d].question", i), Error: "question does not belong to this quiz"},
			)
		}
		resp, err := grade(q, in)
		if err != nil {
			return Attempt{}, core.NewValidationError(err, core.FieldError{Field: fmt.Sprintf("responses[%d].selected_option", i), Error: err.Error()})
		}
		resp.AttemptID = att.ID
		resp.CreatedAt = now
		responses = append(responses, resp)
	}

	att.Score = Score(responses)
	att.IsSubmitted = true
	att.SubmissionDate.SetValid(now)
	return svc.repo.SubmitAttempt(ctx, att, responses)
}

// grade builds the response to q. A question without a correct option is always answered incorrectly.
func grade(q course.Question, in ResponseInput) (Response, error) {
	resp := Response{QuestionID: q.ID, SelectedOptionID: in.SelectedOptionID}
	if !in.SelectedOptionID.Valid {
		return resp, nil
	}

	var found bool
	for _, opt := range q.Options {
		if opt.ID == in.SelectedOptionID.String {
			found = true
			break
		}
	}
	if !found {
		return Response{}, errors.New("invalid option for this question")
	}

	if correct, ok := q.CorrectOption(); ok {
		resp.IsCorrect = correct.ID == in.SelectedOptionID.String
	}
	return resp, nil
}

func (svc *service) Responses(ctx context.Context, principal user.User, att Attempt) ([]Response, error) {
	if !permission.IsOwnerOrElevated(principal, att.UserID) {
		return nil, ErrResponsesPermission
	}
	return svc.repo.QueryResponses(ctx, att.ID)
}
