package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := gormrepos.NewUserRepository(db)
	courseRepo := gormrepos.NewCourseRepository(db)
	repo := gormrepos.NewEnrollmentRepository(db)
	outbox := emailsvc.NewOutbox(core.NewTestConfig(), testutil.NopLogger{})
	svc := enrollment.NewService(repo, courseRepo, outbox)

	student := testutil.CreateUser(t, usrRepo, "student", user.RoleStudent, true)
	peer := testutil.CreateUser(t, usrRepo, "peer", user.RoleStudent, true)
	instructor := testutil.CreateUser(t, usrRepo, "instructor", user.RoleInstructor, true)
	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", instructor)

	var enr enrollment.Enrollment

	t.Run("enroll", func(t *testing.T) {
		var err error
		enr, err = svc.Enroll(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusActive, enr.Status)
		assert.Equal(t, "Go Basics", enr.CourseTitle)
		assert.Equal(t, enr.EnrollmentDate, enr.UpdatedAt)

		sent := outbox.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "student@example.com", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Go Basics")
	})

	t.Run("enroll twice", func(t *testing.T) {
		_, err := svc.Enroll(ctx, student, crs.ID)
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
		assert.Len(t, outbox.Sent(), 1)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Enroll(ctx, student, core.NewID())
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("visibility", func(t *testing.T) {
		_, err := svc.Get(ctx, peer, enr.ID)
		assert.Equal(t, enrollment.ErrNotFound, err)
		got, err := svc.Get(ctx, instructor, enr.ID)
		require.NoError(t, err)
		assert.Equal(t, student.ID, got.UserID)

		mine, err := svc.Query(ctx, peer, &enrollment.QueryFilter{UserID: student.ID}, nil)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})

	t.Run("is enrolled", func(t *testing.T) {
		tests := []struct {
			name      string
			principal user.User
			want      bool
		}{
			{name: "active student", principal: student, want: true},
			{name: "not enrolled", principal: peer, want: false},
			{name: "instructor", principal: instructor, want: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := svc.IsEnrolledInCourse(ctx, tt.principal, crs.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("update status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, student, enr, enrollment.Status("paused"))
		assert.Equal(t, enrollment.ErrInvalidStatus, err)
		_, err = svc.UpdateStatus(ctx, peer, enr, enrollment.StatusDropped)
		assert.Equal(t, core.ErrPermissionDenied, err)

		dropped, err := svc.UpdateStatus(ctx, student, enr, enrollment.StatusDropped)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusDropped, dropped.Status)

		ok, err := svc.IsEnrolledInCourse(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.False(t, ok, "a dropped enrollment grants no access")
	})
}
