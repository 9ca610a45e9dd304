package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("task progress not found")
	ErrAlreadyExists = core.NewConflictError("progress for this task already exists")
	ErrInvalidStatus = core.NewValidationError(errors.New("invalid status. must be one of: not_started, in_progress, completed"))
)

type (
	Repository interface {
		// Create inserts a progress row. It returns ErrAlreadyExists when (user, task) exists.
		Create(ctx context.Context, p Progress) (Progress, error)
		Get(ctx context.Context, id string) (Progress, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Progress, error)
		Update(ctx context.Context, p Progress) (Progress, error)
	}

	Service interface {
		Create(ctx context.Context, principal user.User, np NewProgress) (Progress, error)
		Get(ctx context.Context, principal user.User, id string) (Progress, error)
		Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Progress, error)
		CourseProgress(ctx context.Context, principal user.User, courseID string) ([]Progress, error)
		UpdateStatus(ctx context.Context, principal user.User, p Progress, status Status) (Progress, error)
		Update(ctx context.Context, principal user.User, p Progress, up UpdateProgress) (Progress, error)
	}

	service struct {
		repo       Repository
		courseRepo course.Repository
		checker    *permission.Checker
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseRepo course.Repository, enrollments permission.EnrollmentFinder) Service {
	return &service{
		repo:       repo,
		courseRepo: courseRepo,
		checker:    permission.NewChecker(enrollments),
	}
}

func (svc *service) Create(ctx context.Context, principal user.User, np NewProgress) (Progress, error) {
	task, err := svc.courseRepo.GetTask(ctx, np.TaskID)
	if err != nil {
		return Progress{}, err
	}
	if err = svc.checker.RequireEnrolled(ctx, principal, task.CourseID); err != nil {
		return Progress{}, err
	}

	now := core.Now()
	p := Progress{
		UserID:    principal.ID,
		TaskID:    task.ID,
		TimeSpent: np.TimeSpent,
		CreatedAt: now,
	}
	p.SetStatus(np.Status, now)

	p, err = svc.repo.Create(ctx, p)
	if err != nil {
		return Progress{}, err
	}
	p.TaskTitle = task.Title
	return p, nil
}

// Get returns a progress row the principal may see.
func (svc *service) Get(ctx context.Context, principal user.User, id string) (Progress, error) {
	if !core.IsValidID(id) {
		return Progress{}, ErrNotFound
	}
	p, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	if !permission.IsOwnerOrElevated(principal, p.UserID) {
		return Progress{}, ErrNotFound
	}
	return p, nil
}

// Query lists the principal's own progress, or anyone's for elevated principals.
func (svc *service) Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Progress, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !principal.IsElevated() {
		filter.UserID = principal.ID
	}
	return svc.repo.Query(ctx, filter, ordering)
}

// CourseProgress lists the principal's progress on the tasks of a course.
func (svc *service) CourseProgress(ctx context.Context, principal user.User, courseID string) ([]Progress, error) {
	if _, err := svc.courseRepo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if err := svc.checker.RequireEnrolled(ctx, principal, courseID); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, &QueryFilter{UserID: principal.ID, CourseID: courseID}, nil)
}

func (svc *service) UpdateStatus(ctx context.Context, principal user.User, p Progress, status Status) (Progress, error) {
	if !status.IsValid() {
		return Progress{}, ErrInvalidStatus
	}
	if !permission.IsOwnerOrElevated(principal, p.UserID) {
		return Progress{}, core.ErrPermissionDenied
	}
	p.SetStatus(status, core.Now())
	return svc.repo.Update(ctx, p)
}

func (svc *service) Update(ctx context.Context, principal user.User, p Progress, up UpdateProgress) (Progress, error) {
	if !permission.IsOwnerOrElevated(principal, p.UserID) {
		return Progress{}, core.ErrPermissionDenied
	}
	status := p.Status
	if up.Status != nil {
		if !up.Status.IsValid() {
			return Progress{}, ErrInvalidStatus
		}
		status = *up.Status
	}
	if up.TimeSpent != nil {
		p.TimeSpent = *up.TimeSpent
	}
	p.SetStatus(status, core.Now())
	return svc.repo.Update(ctx, p)
}
