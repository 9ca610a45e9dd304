package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type spyCache struct {
	values map[core.CacheKey]interface{}
	ttls   map[core.CacheKey]time.Duration
	gets   int
	getErr error
}

func newSpyCache() *spyCache {
	return &spyCache{values: make(map[core.CacheKey]interface{}), ttls: make(map[core.CacheKey]time.Duration)}
}

func (c *spyCache) Get(_ context.Context, key core.CacheKey, dst interface{}) (bool, error) {
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *CourseAnalytics:
		*d = v.(CourseAnalytics)
	case *QuizPerformance:
		*d = v.(QuizPerformance)
	case *StudentProgress:
		*d = v.(StudentProgress)
	default:
		return false, errors.Errorf("unexpected type %T", dst)
	}
	return true, nil
}

func (c *spyCache) Set(_ context.Context, key core.CacheKey, value interface{}, ttl time.Duration) error {
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// fakeStore serves fixed rows and counts the loads of attempts.
type fakeStore struct {
	courses      map[string]course.Course
	users        map[string]user.User
	tasks        []course.Task
	enrollments  []EnrollmentRow
	attempts     []AttemptRow
	attemptLoads int
	platform     PlatformStats
}

func (s *fakeStore) GetCourse(_ context.Context, id string) (course.Course, error) {
	if crs, ok := s.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (s *fakeStore) GetUser(_ context.Context, id string) (user.User, error) {
	if usr, ok := s.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (s *fakeStore) CourseTasks(context.Context, ...string) ([]course.Task, error) { return s.tasks, nil }
func (s *fakeStore) CourseEnrollments(context.Context, string) ([]EnrollmentRow, error) {
	return s.enrollments, nil
}
func (s *fakeStore) UserEnrollments(context.Context, string) ([]EnrollmentRow, error) {
	return s.enrollments, nil
}
func (s *fakeStore) CourseProgress(context.Context, string) ([]ProgressRow, error) { return nil, nil }
func (s *fakeStore) UserProgress(context.Context, string) ([]ProgressRow, error)   { return nil, nil }

func (s *fakeStore) CourseAttempts(context.Context, string) ([]AttemptRow, error) {
	s.attemptLoads++
	return s.attempts, nil
}

func (s *fakeStore) UserAttempts(context.Context, string) ([]AttemptRow, error) {
	s.attemptLoads++
	return s.attempts, nil
}

func (s *fakeStore) CourseQuestionStats(context.Context, string) ([]QuestionStat, error) { return nil, nil }
func (s *fakeStore) UserResponses(context.Context, string) ([]ResponseRow, error)        { return nil, nil }
func (s *fakeStore) InstructorStats(context.Context, string) (int, int, error)           { return 2, 7, nil }
func (s *fakeStore) InstructorActivity(context.Context, string, int) ([]ProgressRow, error) {
	return nil, nil
}
func (s *fakeStore) PlatformStats(context.Context) (PlatformStats, error) { return s.platform, nil }

var (
	student    = user.User{ID: "student", Username: "student", Role: user.RoleStudent}
	peer       = user.User{ID: "peer", Username: "peer", Role: user.RoleStudent}
	instructor = user.User{ID: "instructor", Username: "instructor", Role: user.RoleInstructor}
	admin      = user.User{ID: "admin", Username: "admin", Role: user.RoleAdmin}
	staff      = user.User{ID: "staff", Username: "staff", Role: user.RoleStudent, IsStaff: true}

	ttls = core.AnalyticsConfig{
		CourseAnalyticsTTL:       60 * time.Minute,
		CourseStudentProgressTTL: 30 * time.Minute,
		TaskAnalyticsTTL:         60 * time.Minute,
		StudentProgressTTL:       15 * time.Minute,
		QuizPerformanceTTL:       15 * time.Minute,
	}
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses: map[string]course.Course{"c1": {ID: "c1", Title: "Go", CreatorID: instructor.ID}},
		users:   map[string]user.User{student.ID: student, peer.ID: peer},
	}
}

func TestService_QuizPerformance(t *testing.T) {
	ctx := context.Background()

	t.Run("no attempts is not cached", func(t *testing.T) {
		store, cache := newFakeStore(), newSpyCache()
		svc := NewService(store, cache, ttls, nopLogger{})

		for i := 0; i < 2; i++ {
			report, err := svc.QuizPerformance(ctx, student, "")
			require.NoError(t, err)
			assert.Equal(t, student.Info(), report.UserInfo)
			assert.Equal(t, 0, report.OverallStats.TotalAttempts)
			assert.Empty(t, report.CourseBreakdown)
		}
		assert.Empty(t, cache.values)
		assert.Equal(t, 2, store.attemptLoads)
	})

	t.Run("attempts are cached for their ttl", func(t *testing.T) {
		store, cache := newFakeStore(), newSpyCache()
		store.attempts = []AttemptRow{submitted(student.ID, "q1", "c1", 75)}
		svc := NewService(store, cache, ttls, nopLogger{})

		first, err := svc.QuizPerformance(ctx, student, student.ID)
		require.NoError(t, err)
		second, err := svc.QuizPerformance(ctx, student, "")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 75.0, second.OverallStats.AverageScore)
		assert.Equal(t, 1, store.attemptLoads)
		key := core.CacheKey{Kind: core.CacheKindQuizPerformance, ID: student.ID}
		assert.Equal(t, 15*time.Minute, cache.ttls[key])
	})

	t.Run("permissions", func(t *testing.T) {
		tests := []struct {
			name      string
			principal user.User
			userID    string
			wantErr   error
		}{
			{name: "student reads peer", principal: student, userID: peer.ID, wantErr: ErrQuizPerformancePermission},
			{name: "student reads unknown user", principal: student, userID: "nobody", wantErr: ErrQuizPerformancePermission},
			{name: "instructor reads student", principal: instructor, userID: student.ID},
			{name: "staff reads student", principal: staff, userID: student.ID},
			{name: "admin reads unknown user", principal: admin, userID: "nobody", wantErr: user.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := NewService(newFakeStore(), newSpyCache(), ttls, nopLogger{})
				_, err := svc.QuizPerformance(ctx, tt.principal, tt.userID)
				if err != tt.wantErr {
					t.Errorf("QuizPerformance() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestService_CourseAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("forbidden to students", func(t *testing.T) {
		store, cache := newFakeStore(), newSpyCache()
		svc := NewService(store, cache, ttls, nopLogger{})
		_, err := svc.CourseAnalytics(ctx, student, "c1")
		assert.Equal(t, core.ErrPermissionDenied, err)
		assert.Equal(t, 0, cache.gets)
	})

	t.Run("unknown course", func(t *testing.T) {
		svc := NewService(newFakeStore(), newSpyCache(), ttls, nopLogger{})
		_, err := svc.CourseAnalytics(ctx, instructor, "c2")
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("cached", func(t *testing.T) {
		store, cache := newFakeStore(), newSpyCache()
		store.attempts = []AttemptRow{submitted(student.ID, "q1", "c1", 50)}
		svc := NewService(store, cache, ttls, nopLogger{})

		for i := 0; i < 3; i++ {
			report, err := svc.CourseAnalytics(ctx, admin, "c1")
			require.NoError(t, err)
			assert.Equal(t, 50.0, report.AverageScores.Quizzes)
		}
		assert.Equal(t, 1, store.attemptLoads)
		key := core.CacheKey{Kind: core.CacheKindCourseAnalytics, ID: "c1"}
		assert.Equal(t, time.Hour, cache.ttls[key])
	})

	t.Run("cache failure is a miss", func(t *testing.T) {
		store, cache := newFakeStore(), newSpyCache()
		cache.getErr = errors.New("connection refused")
		svc := NewService(store, cache, ttls, nopLogger{})

		for i := 0; i < 2; i++ {
			_, err := svc.CourseAnalytics(ctx, instructor, "c1")
			require.NoError(t, err)
		}
		assert.Equal(t, 2, store.attemptLoads)
	})
}

func TestService_StudentProgress(t *testing.T) {
	ctx := context.Background()
	store, cache := newFakeStore(), newSpyCache()
	svc := NewService(store, cache, ttls, nopLogger{})

	_, err := svc.StudentProgress(ctx, peer, student.ID)
	assert.Equal(t, ErrStudentProgressPermission, err)

	report, err := svc.StudentProgress(ctx, instructor, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Info(), report.UserInfo)
	assert.Equal(t, 15*time.Minute, cache.ttls[core.CacheKey{Kind: core.CacheKindStudentProgress, ID: student.ID}])
}

func TestService_Dashboards(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.platform = PlatformStats{TotalTasks: 4, CompletedTasks: 3, AverageScore: 80}
	svc := NewService(store, newSpyCache(), ttls, nopLogger{})

	t.Run("instructor", func(t *testing.T) {
		dash, err := svc.InstructorDashboard(ctx, instructor)
		require.NoError(t, err)
		assert.Equal(t, 2, dash.CoursesCreated)
		assert.Equal(t, 7, dash.StudentsEnrolled)
		assert.NotNil(t, dash.RecentActivity)

		for _, p := range []user.User{student, admin} {
			_, err := svc.InstructorDashboard(ctx, p)
			assert.Equal(t, ErrDashboardPermission, err, p.Username)
		}
	})

	t.Run("admin", func(t *testing.T) {
		for _, p := range []user.User{admin, staff} {
			dash, err := svc.AdminDashboard(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, 75.0, dash.OverallCompletionPercentage)
		}
		for _, p := range []user.User{student, instructor} {
			_, err := svc.AdminDashboard(ctx, p)
			assert.Equal(t, ErrDashboardPermission, err, p.Username)
		}
	})
}
