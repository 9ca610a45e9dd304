package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := gormrepos.NewUserRepository(db)
	courseRepo := gormrepos.NewCourseRepository(db)
	enrRepo := gormrepos.NewEnrollmentRepository(db)
	svc := progress.NewService(gormrepos.NewProgressRepository(db), courseRepo, enrRepo)

	student := testutil.CreateUser(t, usrRepo, "student", user.RoleStudent, true)
	dropout := testutil.CreateUser(t, usrRepo, "dropout", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, usrRepo, "outsider", user.RoleStudent, true)
	instructor := testutil.CreateUser(t, usrRepo, "instructor", user.RoleInstructor, true)
	crs := testutil.CreateCourse(t, courseRepo, "Go Basics", instructor)
	task := testutil.CreateTask(t, courseRepo, crs, "Intro", course.TaskTypeReading, 1)
	testutil.Enroll(t, enrRepo, student, crs, enrollment.StatusActive)
	testutil.Enroll(t, enrRepo, dropout, crs, enrollment.StatusDropped)

	var p progress.Progress

	t.Run("create requires an active enrollment", func(t *testing.T) {
		for _, usr := range []user.User{dropout, outsider} {
			_, err := svc.Create(ctx, usr, progress.NewProgress{TaskID: task.ID, Status: progress.StatusNotStarted})
			assert.Equal(t, core.ErrPermissionDenied, err, usr.Username)
		}

		var err error
		p, err = svc.Create(ctx, student, progress.NewProgress{TaskID: task.ID, Status: progress.StatusInProgress})
		require.NoError(t, err)
		assert.Equal(t, "Intro", p.TaskTitle)
		assert.True(t, p.StartDate.Valid)

		_, err = svc.Create(ctx, student, progress.NewProgress{TaskID: task.ID, Status: progress.StatusNotStarted})
		assert.Equal(t, progress.ErrAlreadyExists, err)

		_, err = svc.Create(ctx, student, progress.NewProgress{TaskID: core.NewID()})
		assert.Equal(t, course.ErrTaskNotFound, err)
	})

	t.Run("course progress", func(t *testing.T) {
		rows, err := svc.CourseProgress(ctx, student, crs.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		_, err = svc.CourseProgress(ctx, outsider, crs.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)
		_, err = svc.CourseProgress(ctx, student, core.NewID())
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("update status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, student, p, progress.Status("done"))
		assert.Equal(t, progress.ErrInvalidStatus, err)
		_, err = svc.UpdateStatus(ctx, outsider, p, progress.StatusCompleted)
		assert.Equal(t, core.ErrPermissionDenied, err)

		completed, err := svc.UpdateStatus(ctx, student, p, progress.StatusCompleted)
		require.NoError(t, err)
		assert.True(t, completed.CompletionDate.Valid)
		assert.False(t, completed.UpdatedAt.Before(p.UpdatedAt))

		again, err := svc.UpdateStatus(ctx, student, completed, progress.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, completed.CompletionDate, again.CompletionDate)
	})

	t.Run("update time spent", func(t *testing.T) {
		spent := int64(900)
		updated, err := svc.Update(ctx, instructor, p, progress.UpdateProgress{TimeSpent: &spent})
		require.NoError(t, err)
		assert.Equal(t, int64(900), updated.TimeSpent)

		_, err = svc.Get(ctx, outsider, p.ID)
		assert.Equal(t, progress.ErrNotFound, err)
		got, err := svc.Get(ctx, student, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), got.TimeSpent)
	})
}
