package course

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("course not found")
	ErrNoCourses        = core.NewNotFoundError("no courses found")
	ErrTaskNotFound     = core.NewNotFoundError("task not found")
	ErrNoTasks          = core.NewNotFoundError("no tasks found for this course")
	ErrQuestionNotFound = core.NewNotFoundError("question not found")
	ErrNotAQuiz         = core.NewValidationError(errors.New("questions can only be added to quiz tasks"))
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateTask(ctx context.Context, task Task) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		// QueryTasks returns the tasks of a course ordered by Task.Order.
		QueryTasks(ctx context.Context, courseID string) ([]Task, error)
		UpdateTask(ctx context.Context, task Task) (Task, error)
		DeleteTask(ctx context.Context, id string) error

		// CreateQuestion inserts a question with its options.
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		// QueryQuestions returns the questions of a quiz, with their options, ordered by Question.Order.
		QueryQuestions(ctx context.Context, quizID string) ([]Question, error)
	}

	Service interface {
		Create(ctx context.Context, principal user.User, nc NewCourse) (Course, error)
		Get(ctx context.Context, id string) (Course, error)
		Details(ctx context.Context, id string) (Details, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		InstructorCourses(ctx context.Context, principal user.User) ([]Course, error)
		Update(ctx context.Context, principal user.User, crs Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, principal user.User, crs Course) error

		CreateTask(ctx context.Context, principal user.User, nt NewTask) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		CourseTasks(ctx context.Context, courseID string) ([]Task, error)
		UpdateTask(ctx context.Context, principal user.User, task Task, ut UpdateTask) (Task, error)
		DeleteTask(ctx context.Context, principal user.User, task Task) error

		AddQuestion(ctx context.Context, principal user.User, task Task, nq NewQuestion) (Question, error)
		Questions(ctx context.Context, principal user.User, task Task) ([]Question, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, principal user.User, nc NewCourse) (Course, error) {
	if !permission.IsInstructorOrAdmin(principal) {
		return Course{}, core.ErrPermissionDenied
	}
	now := core.Now()
	return svc.repo.CreateCourse(ctx, Course{
		Title:              nc.Title,
		Description:        nc.Description,
		CreatorID:          principal.ID,
		LearningObjectives: nc.LearningObjectives,
		Prerequisites:      nc.Prerequisites,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Details(ctx context.Context, id string) (Details, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Details{}, err
	}
	tasks, err := svc.repo.QueryTasks(ctx, crs.ID)
	if err != nil {
		return Details{}, errors.Wrap(err, "querying tasks")
	}
	infos := make([]TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		infos = append(infos, t.Info())
	}
	return Details{Course: crs, Tasks: infos}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// InstructorCourses lists every course for admins and the courses created by an instructor.
func (svc *service) InstructorCourses(ctx context.Context, principal user.User) ([]Course, error) {
	var filter QueryFilter
	switch {
	case principal.IsAdmin():
	case principal.IsInstructor():
		filter.CreatorID = principal.ID
	default:
		return nil, core.ErrPermissionDenied
	}

	courses, err := svc.repo.QueryCourses(ctx, &filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	if len(courses) == 0 {
		return nil, ErrNoCourses
	}
	return courses, nil
}

func (svc *service) Update(ctx context.Context, principal user.User, crs Course, uc UpdateCourse) (Course, error) {
	if !permission.IsCreatorOrAdmin(principal, crs.CreatorID) {
		return Course{}, core.ErrPermissionDenied
	}
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	if uc.LearningObjectives != nil {
		crs.LearningObjectives = *uc.LearningObjectives
	}
	if uc.Prerequisites != nil {
		crs.Prerequisites = *uc.Prerequisites
	}
	crs.UpdatedAt = core.Now()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, principal user.User, crs Course) error {
	if !permission.IsCreatorOrAdmin(principal, crs.CreatorID) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteCourse(ctx, crs.ID)
}

// courseOwnedBy loads the course of a task and checks that principal may edit it.
func (svc *service) courseOwnedBy(ctx context.Context, principal user.User, courseID string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if !permission.IsCreatorOrAdmin(principal, crs.CreatorID) {
		return Course{}, core.ErrPermissionDenied
	}
	return crs, nil
}

func (svc *service) CreateTask(ctx context.Context, principal user.User, nt NewTask) (Task, error) {
	if !permission.IsInstructorOrAdmin(principal) {
		return Task{}, core.ErrPermissionDenied
	}
	if _, err := svc.courseOwnedBy(ctx, principal, nt.CourseID); err != nil {
		return Task{}, err
	}
	now := core.Now()
	return svc.repo.CreateTask(ctx, Task{
		CourseID:    nt.CourseID,
		Title:       nt.Title,
		Description: nt.Description,
		Type:        nt.Type,
		Order:       nt.Order,
		MaxAttempts: nt.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) GetTask(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTask(ctx, id)
}

func (svc *service) CourseTasks(ctx context.Context, courseID string) ([]Task, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	tasks, err := svc.repo.QueryTasks(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	return tasks, nil
}

func (svc *service) UpdateTask(ctx context.Context, principal user.User, task Task, ut UpdateTask) (Task, error) {
	if _, err := svc.courseOwnedBy(ctx, principal, task.CourseID); err != nil {
		return Task{}, err
	}
	if ut.Title != nil {
		task.Title = *ut.Title
	}
	if ut.Description != nil {
		task.Description = *ut.Description
	}
	if ut.Type != nil {
		task.Type = *ut.Type
	}
	if ut.Order != nil {
		task.Order = *ut.Order
	}
	if ut.MaxAttempts.Valid {
		task.MaxAttempts = ut.MaxAttempts
	}
	if !task.IsQuiz() {
		task.MaxAttempts = null.Int{}
	}
	task.UpdatedAt = core.Now()
	return svc.repo.UpdateTask(ctx, task)
}

func (svc *service) DeleteTask(ctx context.Context, principal user.User, task Task) error {
	if _, err := svc.courseOwnedBy(ctx, principal, task.CourseID); err != nil {
		return err
	}
	return svc.repo.DeleteTask(ctx, task.ID)
}

func (svc *service) AddQuestion(ctx context.Context, principal user.User, task Task, nq NewQuestion) (Question, error) {
	if _, err := svc.courseOwnedBy(ctx, principal, task.CourseID); err != nil {
		return Question{}, err
	}
	if !task.IsQuiz() {
		return Question{}, ErrNotAQuiz
	}

	q := Question{
		QuizID:   task.ID,
		Text:     nq.Text,
		Category: null.NewString(nq.Category, nq.Category != ""),
		Tag:      null.NewString(nq.Tag, nq.Tag != ""),
		Order:    nq.Order,
		Options:  make([]Option, 0, len(nq.Options)),
	}
	for i, opt := range nq.Options {
		q.Options = append(q.Options, Option{Text: opt.Text, IsCorrect: opt.IsCorrect, Order: i})
	}
	return svc.repo.CreateQuestion(ctx, q)
}

// Questions lists the questions of a quiz. Correct answers are hidden from non-elevated principals.
func (svc *service) Questions(ctx context.Context, principal user.User, task Task) ([]Question, error) {
	if !task.IsQuiz() {
		return []Question{}, nil
	}
	questions, err := svc.repo.QueryQuestions(ctx, task.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	if !permission.IsInstructorOrAdmin(principal) {
		for i, q := range questions {
			questions[i] = q.HideAnswers()
		}
	}
	return questions, nil
}
