package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := gormrepos.NewUserRepository(db)
	svc := course.NewService(gormrepos.NewCourseRepository(db))

	student := testutil.CreateUser(t, usrRepo, "student", user.RoleStudent, true)
	owner := testutil.CreateUser(t, usrRepo, "owner", user.RoleInstructor, true)
	other := testutil.CreateUser(t, usrRepo, "other", user.RoleInstructor, true)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, true)

	var (
		crs  course.Course
		quiz course.Task
	)

	t.Run("create", func(t *testing.T) {
		_, err := svc.Create(ctx, student, course.NewCourse{Title: "Nope"})
		assert.Equal(t, core.ErrPermissionDenied, err)

		crs, err = svc.Create(ctx, owner, course.NewCourse{Title: "Go Basics"})
		require.NoError(t, err)
		assert.Equal(t, owner.ID, crs.CreatorID)

		_, err = svc.InstructorCourses(ctx, other)
		assert.Equal(t, course.ErrNoCourses, err)
		mine, err := svc.InstructorCourses(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
		_, err = svc.InstructorCourses(ctx, student)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("update", func(t *testing.T) {
		title := "Go Fundamentals"
		_, err := svc.Update(ctx, other, crs, course.UpdateCourse{Title: &title})
		assert.Equal(t, core.ErrPermissionDenied, err)

		updated, err := svc.Update(ctx, admin, crs, course.UpdateCourse{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		crs = updated
	})

	t.Run("tasks", func(t *testing.T) {
		_, err := svc.CourseTasks(ctx, crs.ID)
		assert.Equal(t, course.ErrNoTasks, err)

		_, err = svc.CreateTask(ctx, other, course.NewTask{CourseID: crs.ID, Title: "x", Type: course.TaskTypeReading})
		assert.Equal(t, core.ErrPermissionDenied, err)

		quiz, err = svc.CreateTask(ctx, owner, course.NewTask{
			CourseID: crs.ID, Title: "Quiz", Type: course.TaskTypeQuiz, Order: 2, MaxAttempts: null.IntFrom(3),
		})
		require.NoError(t, err)
		reading, err := svc.CreateTask(ctx, owner, course.NewTask{CourseID: crs.ID, Title: "Intro", Type: course.TaskTypeReading, Order: 1})
		require.NoError(t, err)

		details, err := svc.Details(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, details.Tasks, 2)
		assert.Equal(t, "Intro", details.Tasks[0].Title)

		// leaving the quiz type drops the attempt limit
		typ := course.TaskTypeAssignment
		changed, err := svc.UpdateTask(ctx, owner, quiz, course.UpdateTask{Type: &typ})
		require.NoError(t, err)
		assert.False(t, changed.MaxAttempts.Valid)
		typ = course.TaskTypeQuiz
		quiz, err = svc.UpdateTask(ctx, owner, changed, course.UpdateTask{Type: &typ, MaxAttempts: null.IntFrom(2)})
		require.NoError(t, err)
		assert.Equal(t, 2, quiz.MaxAttempts.Int)

		require.NoError(t, svc.DeleteTask(ctx, owner, reading))
		_, err = svc.GetTask(ctx, reading.ID)
		assert.Equal(t, course.ErrTaskNotFound, err)
	})

	t.Run("questions", func(t *testing.T) {
		nq := course.NewQuestion{
			Text:     "2+2?",
			Category: "math",
			Options:  []course.NewOption{{Text: "3"}, {Text: "4", IsCorrect: true}},
		}
		_, err := svc.AddQuestion(ctx, other, quiz, nq)
		assert.Equal(t, core.ErrPermissionDenied, err)

		q, err := svc.AddQuestion(ctx, owner, quiz, nq)
		require.NoError(t, err)
		assert.Equal(t, "math", q.Category.String)
		assert.False(t, q.Tag.Valid)

		forInstructor, err := svc.Questions(ctx, owner, quiz)
		require.NoError(t, err)
		require.Len(t, forInstructor, 1)
		assert.True(t, forInstructor[0].Options[1].IsCorrect)

		forStudent, err := svc.Questions(ctx, student, quiz)
		require.NoError(t, err)
		require.Len(t, forStudent, 1)
		for _, opt := range forStudent[0].Options {
			assert.False(t, opt.IsCorrect, "answers are hidden from students")
		}
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, core.ErrPermissionDenied, svc.Delete(ctx, other, crs))
		require.NoError(t, svc.Delete(ctx, owner, crs))
		_, err := svc.Get(ctx, crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestNewTask_Validate(t *testing.T) {
	validate := core.NewValidator(core.NewTranslator())
	tests := []struct {
		name    string
		nt      course.NewTask
		wantErr bool
	}{
		{name: "quiz with limit", nt: course.NewTask{CourseID: core.NewID(), Title: "q", Type: course.TaskTypeQuiz, MaxAttempts: null.IntFrom(1)}},
		{name: "reading with limit", nt: course.NewTask{CourseID: core.NewID(), Title: "r", Type: course.TaskTypeReading, MaxAttempts: null.IntFrom(1)}, wantErr: true},
		{name: "zero limit", nt: course.NewTask{CourseID: core.NewID(), Title: "q", Type: course.TaskTypeQuiz, MaxAttempts: null.IntFrom(0)}, wantErr: true},
		{name: "unknown type", nt: course.NewTask{CourseID: core.NewID(), Title: "x", Type: "podcast"}, wantErr: true},
		{name: "bad course id", nt: course.NewTask{CourseID: "1", Title: "x", Type: course.TaskTypeVideo}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
