package enrollment

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled = core.NewConflictError("you are already enrolled in this course")
	ErrInvalidStatus   = core.NewValidationError(errors.New("invalid status. must be one of: active, completed, dropped"))
)

type (
	Repository interface {
		// Create inserts an enrollment. It returns ErrAlreadyEnrolled when (user, course) exists.
		Create(ctx context.Context, enr Enrollment) (Enrollment, error)
		Get(ctx context.Context, filter GetFilter) (Enrollment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		Update(ctx context.Context, enr Enrollment) (Enrollment, error)
		HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error)
	}

	Service interface {
		Enroll(ctx context.Context, usr user.User, courseID string) (Enrollment, error)
		Get(ctx context.Context, principal user.User, id string) (Enrollment, error)
		Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		UpdateStatus(ctx context.Context, principal user.User, enr Enrollment, status Status) (Enrollment, error)
		IsEnrolledInCourse(ctx context.Context, principal user.User, courseID string) (bool, error)
	}

	service struct {
		repo       Repository
		courseRepo course.Repository
		checker    *permission.Checker
		mailSvc    core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseRepo course.Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:       repo,
		courseRepo: courseRepo,
		checker:    permission.NewChecker(repo),
		mailSvc:    mailSvc,
	}
}

// Enroll creates an active enrollment of usr in a course and sends them a confirmation email.
func (svc *service) Enroll(ctx context.Context, usr user.User, courseID string) (Enrollment, error) {
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	_, err = svc.repo.Get(ctx, GetFilter{UserID: usr.ID, CourseID: crs.ID})
	switch {
	case err == nil:
		return Enrollment{}, ErrAlreadyEnrolled
	case !core.IsNotFound(err):
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}

	now := core.Now()
	enr, err := svc.repo.Create(ctx, Enrollment{
		UserID:         usr.ID,
		CourseID:       crs.ID,
		Status:         StatusActive,
		EnrollmentDate: now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Enrollment{}, err
	}
	enr.CourseTitle = crs.Title

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      "Enrollment confirmed",
		TemplateName: "enrollment",
		TemplateData: map[string]string{"Name": usr.DisplayName(), "CourseTitle": crs.Title, "CourseID": crs.ID},
	})
	return enr, nil
}

// Get returns an enrollment the principal may see.
func (svc *service) Get(ctx context.Context, principal user.User, id string) (Enrollment, error) {
	if !core.IsValidID(id) {
		return Enrollment{}, ErrNotFound
	}
	enr, err := svc.repo.Get(ctx, GetFilter{ID: id})
	if err != nil {
		return Enrollment{}, err
	}
	if !permission.IsOwnerOrElevated(principal, enr.UserID) {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

// Query lists the principal's own enrollments, or any enrollments for elevated principals.
func (svc *service) Query(ctx context.Context, principal user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !principal.IsElevated() {
		filter.UserID = principal.ID
	}
	return svc.repo.Query(ctx, filter, ordering)
}

func (svc *service) UpdateStatus(ctx context.Context, principal user.User, enr Enrollment, status Status) (Enrollment, error) {
	if !status.IsValid() {
		return Enrollment{}, ErrInvalidStatus
	}
	if !permission.IsOwnerOrElevated(principal, enr.UserID) {
		return Enrollment{}, core.ErrPermissionDenied
	}
	enr.Status = status
	enr.UpdatedAt = core.Now()
	return svc.repo.Update(ctx, enr)
}

func (svc *service) IsEnrolledInCourse(ctx context.Context, principal user.User, courseID string) (bool, error) {
	return svc.checker.IsEnrolledInCourse(ctx, principal, courseID)
}
