package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

type TaskType string

// Task types
const (
	TaskTypeReading    TaskType = "reading"
	TaskTypeVideo      TaskType = "video"
	TaskTypeQuiz       TaskType = "quiz"
	TaskTypeAssignment TaskType = "assignment"
	TaskTypeDiscussion TaskType = "discussion"
)

var AllTaskTypes = []TaskType{TaskTypeReading, TaskTypeVideo, TaskTypeQuiz, TaskTypeAssignment, TaskTypeDiscussion}

func (t TaskType) IsValid() bool {
	for _, tt := range AllTaskTypes {
		if t == tt {
			return true
		}
	}
	return false
}

type Course struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	CreatorID          string    `json:"creator"`
	LearningObjectives string    `json:"learning_objectives"`
	Prerequisites      string    `json:"prerequisites"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

// Task is a learning task of a course. A Task of type quiz is a quiz.
type Task struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        TaskType  `json:"type"`
	Order       int       `json:"order"`
	MaxAttempts null.Int  `json:"max_attempts"` // quiz only, null means unlimited
	CreatedAt   time.Time `json:"created_at"`   // UTC
	UpdatedAt   time.Time `json:"updated_at"`   // UTC
}

func (t Task) IsQuiz() bool {
	return t.Type == TaskTypeQuiz
}

// TaskInfo is the short form of a Task listed in course details.
type TaskInfo struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Type  TaskType `json:"type"`
}

func (t Task) Info() TaskInfo {
	return TaskInfo{ID: t.ID, Title: t.Title, Type: t.Type}
}

type Question struct {
	ID       string      `json:"id"`
	QuizID   string      `json:"quiz"`
	Text     string      `json:"text"`
	Category null.String `json:"category"`
	Tag      null.String `json:"tag"`
	Order    int         `json:"order"`
	Options  []Option    `json:"options"`
}

// CorrectOption returns the first option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}

// HideAnswers clears the correct flags of q's options.
func (q Question) HideAnswers() Question {
	opts := make([]Option, len(q.Options))
	for i, opt := range q.Options {
		opt.IsCorrect = false
		opts[i] = opt
	}
	q.Options = opts
	return q
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"-"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"order"`
}

// Details is a course with the short form of its tasks.
type Details struct {
	Course
	Tasks []TaskInfo `json:"tasks"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title              string `json:"title" validate:"required,max=200"`
	Description        string `json:"description"`
	LearningObjectives string `json:"learning_objectives"`
	Prerequisites      string `json:"prerequisites"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title              *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string `json:"description"`
	LearningObjectives *string `json:"learning_objectives"`
	Prerequisites      *string `json:"prerequisites"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search    string `query:"search"`
	CreatorID string `query:"creator"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CreatorID = core.CleanString(qf.CreatorID)
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	CourseID    string   `json:"course" validate:"required,entityid"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description"`
	Type        TaskType `json:"type" validate:"required,oneof=reading video quiz assignment discussion"`
	Order       int      `json:"order" validate:"min=0"`
	MaxAttempts null.Int `json:"max_attempts"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	if err := validate.Struct(nt); err != nil {
		return err
	}
	return validateMaxAttempts(nt.Type, nt.MaxAttempts)
}

// UpdateTask defines what information may be provided to modify an existing Task.
type UpdateTask struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description"`
	Type        *TaskType `json:"type" validate:"omitempty,oneof=reading video quiz assignment discussion"`
	Order       *int      `json:"order" validate:"omitempty,min=0"`
	MaxAttempts null.Int  `json:"max_attempts"`
}

func (ut *UpdateTask) Validate(orig Task, validate *validator.Validate) error {
	if ut.Title != nil {
		title := core.CleanString(*ut.Title)
		ut.Title = &title
	}
	if err := validate.Struct(ut); err != nil {
		return err
	}
	typ := orig.Type
	if ut.Type != nil {
		typ = *ut.Type
	}
	return validateMaxAttempts(typ, ut.MaxAttempts)
}

func validateMaxAttempts(typ TaskType, maxAttempts null.Int) error {
	if !maxAttempts.Valid {
		return nil
	}
	if typ != TaskTypeQuiz {
		return core.NewValidationError(nil, core.FieldError{Field: "max_attempts", Error: "max_attempts is only allowed on quiz tasks"})
	}
	if maxAttempts.Int <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "max_attempts", Error: "max_attempts must be greater than 0"})
	}
	return nil
}

// NewQuestion contains information needed to add a Question to a quiz.
type NewQuestion struct {
	Text     string      `json:"text" validate:"required"`
	Category string      `json:"category" validate:"max=100"`
	Tag      string      `json:"tag" validate:"max=100"`
	Order    int         `json:"order" validate:"min=0"`
	Options  []NewOption `json:"options" validate:"required,min=2,dive"`
}

type NewOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	nq.Category = core.CleanString(nq.Category)
	nq.Tag = core.CleanString(nq.Tag)
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
	return validate.Struct(nq)
}
