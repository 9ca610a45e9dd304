package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrStudentProgressPermission = core.NewPermissionError("you do not have permission to view this user's progress")
	ErrQuizPerformancePermission = core.NewPermissionError("you do not have permission to view this user's quiz performance")
	ErrDashboardPermission       = core.NewPermissionError("you do not have permission to access this resource")
)

type (
	// Store loads the rows the reports are computed from.
	Store interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
		GetUser(ctx context.Context, id string) (user.User, error)
		// CourseTasks returns the tasks of the given courses ordered by course then Task.Order.
		CourseTasks(ctx context.Context, courseIDs ...string) ([]course.Task, error)
		CourseEnrollments(ctx context.Context, courseID string) ([]EnrollmentRow, error)
		UserEnrollments(ctx context.Context, userID string) ([]EnrollmentRow, error)
		CourseProgress(ctx context.Context, courseID string) ([]ProgressRow, error)
		UserProgress(ctx context.Context, userID string) ([]ProgressRow, error)
		// CourseAttempts returns the submitted attempts at the quizzes of a course.
		CourseAttempts(ctx context.Context, courseID string) ([]AttemptRow, error)
		// UserAttempts returns the submitted attempts of a user with their response counts.
		UserAttempts(ctx context.Context, userID string) ([]AttemptRow, error)
		// CourseQuestionStats returns every question of the quizzes of a course with its response counts.
		CourseQuestionStats(ctx context.Context, courseID string) ([]QuestionStat, error)
		// UserResponses returns the responses given during the submitted attempts of a user.
		UserResponses(ctx context.Context, userID string) ([]ResponseRow, error)
		// InstructorStats counts the courses created by an instructor and the distinct users enrolled in them.
		InstructorStats(ctx context.Context, instructorID string) (coursesCreated, studentsEnrolled int, err error)
		// InstructorActivity returns the `limit` latest progress rows on the courses of an instructor.
		InstructorActivity(ctx context.Context, instructorID string, limit int) ([]ProgressRow, error)
		PlatformStats(ctx context.Context) (PlatformStats, error)
	}

	Service interface {
		CourseAnalytics(ctx context.Context, principal user.User, courseID string) (CourseAnalytics, error)
		CourseStudentProgress(ctx context.Context, principal user.User, courseID string) ([]StudentCourseProgress, error)
		TaskAnalytics(ctx context.Context, principal user.User, courseID string) ([]TaskAnalytics, error)
		StudentProgress(ctx context.Context, principal user.User, userID string) (StudentProgress, error)
		QuizPerformance(ctx context.Context, principal user.User, userID string) (QuizPerformance, error)
		InstructorDashboard(ctx context.Context, principal user.User) (InstructorDashboard, error)
		AdminDashboard(ctx context.Context, principal user.User) (AdminDashboard, error)
	}

	service struct {
		store  Store
		cache  core.Cache
		ttls   core.AnalyticsConfig
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(store Store, cache core.Cache, ttls core.AnalyticsConfig, logger core.Logger) Service {
	return &service{
		store:  store,
		cache:  cache,
		ttls:   ttls,
		logger: logger,
	}
}

// load reports whether key was found in the cache and decoded into dst. Cache failures count as misses.
func (svc *service) load(ctx context.Context, key core.CacheKey, dst interface{}) bool {
	found, err := svc.cache.Get(ctx, key, dst)
	if err != nil {
		svc.logger.Error("reading analytics cache", errors.Wrap(err, key.String()))
		return false
	}
	return found
}

func (svc *service) save(ctx context.Context, key core.CacheKey, value interface{}, ttl time.Duration) {
	if err := svc.cache.Set(ctx, key, value, ttl); err != nil {
		svc.logger.Error("writing analytics cache", errors.Wrap(err, key.String()))
	}
}

// courseFor checks that the principal may read course analytics and loads the course.
func (svc *service) courseFor(ctx context.Context, principal user.User, courseID string) (course.Course, error) {
	if !permission.IsInstructorOrAdmin(principal) {
		return course.Course{}, core.ErrPermissionDenied
	}
	return svc.store.GetCourse(ctx, courseID)
}

// userFor checks that the principal may read the reports of a user and loads them.
func (svc *service) userFor(ctx context.Context, principal user.User, userID string, permErr error) (user.User, error) {
	if userID == "" || userID == principal.ID {
		return principal, nil
	}
	if !permission.IsInstructorOrAdmin(principal) {
		return user.User{}, permErr
	}
	return svc.store.GetUser(ctx, userID)
}

func (svc *service) CourseAnalytics(ctx context.Context, principal user.User, courseID string) (CourseAnalytics, error) {
	crs, err := svc.courseFor(ctx, principal, courseID)
	if err != nil {
		return CourseAnalytics{}, err
	}

	var report CourseAnalytics
	key := core.CacheKey{Kind: core.CacheKindCourseAnalytics, ID: crs.ID}
	if svc.load(ctx, key, &report) {
		return report, nil
	}

	tasks, err := svc.store.CourseTasks(ctx, crs.ID)
	if err != nil {
		return CourseAnalytics{}, errors.Wrap(err, "loading tasks")
	}
	enrollments, err := svc.store.CourseEnrollments(ctx, crs.ID)
	if err != nil {
		return CourseAnalytics{}, errors.Wrap(err, "loading enrollments")
	}
	rows, err := svc.store.CourseProgress(ctx, crs.ID)
	if err != nil {
		return CourseAnalytics{}, errors.Wrap(err, "loading progress")
	}
	attempts, err := svc.store.CourseAttempts(ctx, crs.ID)
	if err != nil {
		return CourseAnalytics{}, errors.Wrap(err, "loading attempts")
	}
	questions, err := svc.store.CourseQuestionStats(ctx, crs.ID)
	if err != nil {
		return CourseAnalytics{}, errors.Wrap(err, "loading question stats")
	}

	report = BuildCourseAnalytics(tasks, enrollments, rows, attempts, questions)
	svc.save(ctx, key, report, svc.ttls.CourseAnalyticsTTL)
	return report, nil
}

func (svc *service) CourseStudentProgress(ctx context.Context, principal user.User, courseID string) ([]StudentCourseProgress, error) {
	crs, err := svc.courseFor(ctx, principal, courseID)
	if err != nil {
		return nil, err
	}

	var report []StudentCourseProgress
	key := core.CacheKey{Kind: core.CacheKindCourseStudentProgress, ID: crs.ID}
	if svc.load(ctx, key, &report) {
		return report, nil
	}

	tasks, err := svc.store.CourseTasks(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading tasks")
	}
	enrollments, err := svc.store.CourseEnrollments(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading enrollments")
	}
	rows, err := svc.store.CourseProgress(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading progress")
	}
	attempts, err := svc.store.CourseAttempts(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading attempts")
	}

	report = BuildCourseStudentProgress(tasks, enrollments, rows, attempts)
	svc.save(ctx, key, report, svc.ttls.CourseStudentProgressTTL)
	return report, nil
}

func (svc *service) TaskAnalytics(ctx context.Context, principal user.User, courseID string) ([]TaskAnalytics, error) {
	crs, err := svc.courseFor(ctx, principal, courseID)
	if err != nil {
		return nil, err
	}

	var report []TaskAnalytics
	key := core.CacheKey{Kind: core.CacheKindCourseTaskAnalytics, ID: crs.ID}
	if svc.load(ctx, key, &report) {
		return report, nil
	}

	tasks, err := svc.store.CourseTasks(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading tasks")
	}
	rows, err := svc.store.CourseProgress(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading progress")
	}
	attempts, err := svc.store.CourseAttempts(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading attempts")
	}
	questions, err := svc.store.CourseQuestionStats(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading question stats")
	}

	report = BuildTaskAnalytics(tasks, rows, attempts, questions)
	svc.save(ctx, key, report, svc.ttls.TaskAnalyticsTTL)
	return report, nil
}

// StudentProgress reports the progress of a user across their courses. An empty userID means the principal.
func (svc *service) StudentProgress(ctx context.Context, principal user.User, userID string) (StudentProgress, error) {
	usr, err := svc.userFor(ctx, principal, userID, ErrStudentProgressPermission)
	if err != nil {
		return StudentProgress{}, err
	}

	var report StudentProgress
	key := core.CacheKey{Kind: core.CacheKindStudentProgress, ID: usr.ID}
	if svc.load(ctx, key, &report) {
		return report, nil
	}

	enrollments, err := svc.store.UserEnrollments(ctx, usr.ID)
	if err != nil {
		return StudentProgress{}, errors.Wrap(err, "loading enrollments")
	}
	courseIDs := make([]string, 0, len(enrollments))
	for _, enr := range enrollments {
		courseIDs = append(courseIDs, enr.CourseID)
	}
	var tasks []course.Task
	if len(courseIDs) > 0 {
		if tasks, err = svc.store.CourseTasks(ctx, courseIDs...); err != nil {
			return StudentProgress{}, errors.Wrap(err, "loading tasks")
		}
	}
	rows, err := svc.store.UserProgress(ctx, usr.ID)
	if err != nil {
		return StudentProgress{}, errors.Wrap(err, "loading progress")
	}
	attempts, err := svc.store.UserAttempts(ctx, usr.ID)
	if err != nil {
		return StudentProgress{}, errors.Wrap(err, "loading attempts")
	}

	report = BuildStudentProgress(usr.Info(), enrollments, tasks, rows, attempts)
	svc.save(ctx, key, report, svc.ttls.StudentProgressTTL)
	return report, nil
}

// QuizPerformance reports the quiz results of a user. An empty userID means the principal.
// A user without submitted attempts gets a zeroed report which is not cached.
func (svc *service) QuizPerformance(ctx context.Context, principal user.User, userID string) (QuizPerformance, error) {
	usr, err := svc.userFor(ctx, principal, userID, ErrQuizPerformancePermission)
	if err != nil {
		return QuizPerformance{}, err
	}

	var report QuizPerformance
	key := core.CacheKey{Kind: core.CacheKindQuizPerformance, ID: usr.ID}
	if svc.load(ctx, key, &report) {
		return report, nil
	}

	attempts, err := svc.store.UserAttempts(ctx, usr.ID)
	if err != nil {
		return QuizPerformance{}, errors.Wrap(err, "loading attempts")
	}
	if len(attempts) == 0 {
		return ZeroQuizPerformance(usr.Info()), nil
	}
	responses, err := svc.store.UserResponses(ctx, usr.ID)
	if err != nil {
		return QuizPerformance{}, errors.Wrap(err, "loading responses")
	}

	report = BuildQuizPerformance(usr.Info(), attempts, responses)
	svc.save(ctx, key, report, svc.ttls.QuizPerformanceTTL)
	return report, nil
}

func (svc *service) InstructorDashboard(ctx context.Context, principal user.User) (InstructorDashboard, error) {
	if !principal.IsInstructor() {
		return InstructorDashboard{}, ErrDashboardPermission
	}
	created, enrolled, err := svc.store.InstructorStats(ctx, principal.ID)
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "loading instructor stats")
	}
	rows, err := svc.store.InstructorActivity(ctx, principal.ID, dashboardRecentActivities)
	if err != nil {
		return InstructorDashboard{}, errors.Wrap(err, "loading instructor activity")
	}
	return BuildInstructorDashboard(created, enrolled, rows), nil
}

func (svc *service) AdminDashboard(ctx context.Context, principal user.User) (AdminDashboard, error) {
	if !principal.IsAdmin() {
		return AdminDashboard{}, ErrDashboardPermission
	}
	stats, err := svc.store.PlatformStats(ctx)
	if err != nil {
		return AdminDashboard{}, errors.Wrap(err, "loading platform stats")
	}
	return BuildAdminDashboard(stats), nil
}
