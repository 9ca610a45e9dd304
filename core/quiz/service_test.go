package quiz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

type fixture struct {
	svc        quiz.Service
	repo       quiz.Repository
	courseRepo course.Repository
	student    user.User
	peer       user.User
	instructor user.User
	quiz       course.Task
	reading    course.Task
	q1, q2     course.Question
}

func setup(t *testing.T, maxAttempts ...int) fixture {
	db := testutil.PrepareDB(t)
	usrRepo := gormrepos.NewUserRepository(db)
	courseRepo := gormrepos.NewCourseRepository(db)
	repo := gormrepos.NewQuizRepository(db)

	f := fixture{
		svc:        quiz.NewService(repo, courseRepo),
		repo:       repo,
		courseRepo: courseRepo,
		student:    testutil.CreateUser(t, usrRepo, "student", user.RoleStudent, true),
		peer:       testutil.CreateUser(t, usrRepo, "peer", user.RoleStudent, true),
		instructor: testutil.CreateUser(t, usrRepo, "instructor", user.RoleInstructor, true),
	}
	crs := testutil.CreateCourse(t, courseRepo, "Arithmetic", f.instructor)
	f.quiz = testutil.CreateTask(t, courseRepo, crs, "Sums", course.TaskTypeQuiz, 1, maxAttempts...)
	f.reading = testutil.CreateTask(t, courseRepo, crs, "Notes", course.TaskTypeReading, 2)
	f.q1 = testutil.CreateQuestion(t, courseRepo, f.quiz, "1+1?", "sums", []string{"1", "2", "3"}, 1)
	// two options are flagged correct: only the first one counts
	f.q2 = testutil.CreateQuestion(t, courseRepo, f.quiz, "2+2?", "sums", []string{"4", "four", "5"}, 0, 1)
	return f
}

func answer(q course.Question, opt int) quiz.ResponseInput {
	return quiz.ResponseInput{QuestionID: q.ID, SelectedOptionID: null.StringFrom(q.Options[opt].ID)}
}

func TestService_StartAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("attempt limit", func(t *testing.T) {
		f := setup(t, 2)
		for i := 0; i < 2; i++ {
			att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
			require.NoError(t, err)
			assert.Equal(t, "Sums", att.QuizTitle)
			assert.False(t, att.IsSubmitted)
			assert.True(t, att.SubmissionDate.Valid)
		}
		_, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.Error(t, err)
		assert.IsType(t, &core.ConflictError{}, err)
		assert.Equal(t, "maximum number of attempts (2) reached", err.Error())

		// the limit is per user
		_, err = f.svc.StartAttempt(ctx, f.peer, f.quiz.ID)
		assert.NoError(t, err)
	})

	t.Run("unlimited", func(t *testing.T) {
		f := setup(t)
		for i := 0; i < 5; i++ {
			_, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
			require.NoError(t, err)
		}
	})

	t.Run("not a quiz", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.StartAttempt(ctx, f.student, f.reading.ID)
		assert.Equal(t, quiz.ErrQuizNotFound, err)
		_, err = f.svc.StartAttempt(ctx, f.student, core.NewID())
		assert.Equal(t, quiz.ErrQuizNotFound, err)
	})
}

func TestService_SubmitResponses(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		inputs    func(f fixture) []quiz.ResponseInput
		wantScore float64
	}{
		{
			name:      "all correct",
			inputs:    func(f fixture) []quiz.ResponseInput { return []quiz.ResponseInput{answer(f.q1, 1), answer(f.q2, 0)} },
			wantScore: 100,
		},
		{
			name:      "second correct option does not count",
			inputs:    func(f fixture) []quiz.ResponseInput { return []quiz.ResponseInput{answer(f.q1, 1), answer(f.q2, 1)} },
			wantScore: 50,
		},
		{
			name: "unanswered question is wrong",
			inputs: func(f fixture) []quiz.ResponseInput {
				return []quiz.ResponseInput{{QuestionID: f.q1.ID}, answer(f.q2, 2)}
			},
			wantScore: 0,
		},
		{
			name:      "no responses",
			inputs:    func(f fixture) []quiz.ResponseInput { return nil },
			wantScore: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
			require.NoError(t, err)

			inputs := tt.inputs(f)
			submitted, err := f.svc.SubmitResponses(ctx, f.student, att, inputs)
			require.NoError(t, err)
			assert.True(t, submitted.IsSubmitted)
			assert.Equal(t, tt.wantScore, submitted.Score)

			stored, err := f.svc.Responses(ctx, f.student, submitted)
			require.NoError(t, err)
			assert.Len(t, stored, len(inputs))
		})
	}
}

func TestService_SubmitResponses_errors(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	t.Run("foreign question", func(t *testing.T) {
		other := testutil.CreateTask(t, f.courseRepo, course.Course{ID: f.quiz.CourseID}, "Other", course.TaskTypeQuiz, 3)
		q := testutil.CreateQuestion(t, f.courseRepo, other, "?", "", []string{"a", "b"}, 0)
		att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.NoError(t, err)
		_, err = f.svc.SubmitResponses(ctx, f.student, att, []quiz.ResponseInput{answer(q, 0)})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("option of another question", func(t *testing.T) {
		att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.NoError(t, err)
		in := quiz.ResponseInput{QuestionID: f.q1.ID, SelectedOptionID: null.StringFrom(f.q2.Options[0].ID)}
		_, err = f.svc.SubmitResponses(ctx, f.student, att, []quiz.ResponseInput{in})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("unknown question", func(t *testing.T) {
		att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.NoError(t, err)
		_, err = f.svc.SubmitResponses(ctx, f.student, att, []quiz.ResponseInput{{QuestionID: core.NewID()}})
		assert.Equal(t, course.ErrQuestionNotFound, err)
	})

	t.Run("not the owner", func(t *testing.T) {
		att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.NoError(t, err)
		_, err = f.svc.SubmitResponses(ctx, f.peer, att, nil)
		assert.Equal(t, core.ErrPermissionDenied, err)

		_, err = f.svc.Get(ctx, f.peer, att.ID)
		assert.Equal(t, quiz.ErrNotFound, err)
		_, err = f.svc.Responses(ctx, f.peer, att)
		assert.Equal(t, quiz.ErrResponsesPermission, err)

		got, err := f.svc.Get(ctx, f.instructor, att.ID)
		require.NoError(t, err)
		assert.Equal(t, att.ID, got.ID)
	})

	t.Run("submitted twice", func(t *testing.T) {
		att, err := f.svc.StartAttempt(ctx, f.student, f.quiz.ID)
		require.NoError(t, err)
		submitted, err := f.svc.SubmitResponses(ctx, f.student, att, []quiz.ResponseInput{answer(f.q1, 1)})
		require.NoError(t, err)

		_, err = f.svc.SubmitResponses(ctx, f.student, submitted, nil)
		assert.Equal(t, quiz.ErrAlreadySubmitted, err)

		// a stale copy still loses the race in the database
		_, err = f.svc.SubmitResponses(ctx, f.student, att, []quiz.ResponseInput{answer(f.q1, 0)})
		assert.Equal(t, quiz.ErrAlreadySubmitted, err)

		got, err := f.svc.Get(ctx, f.student, att.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, got.Score)
		responses, err := f.svc.Responses(ctx, f.student, got)
		require.NoError(t, err)
		assert.Len(t, responses, 1)
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, usr := range []user.User{f.student, f.student, f.peer} {
		_, err := f.svc.StartAttempt(ctx, usr, f.quiz.ID)
		require.NoError(t, err)
	}

	mine, err := f.svc.Query(ctx, f.student, &quiz.QueryFilter{UserID: f.peer.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 2, "students only see their own attempts")

	all, err := f.svc.Query(ctx, f.instructor, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		responses []quiz.Response
		want      float64
	}{
		{name: "none", want: 0},
		{name: "one of three", responses: []quiz.Response{{IsCorrect: true}, {}, {}}, want: 100.0 / 3},
		{name: "all", responses: []quiz.Response{{IsCorrect: true}, {IsCorrect: true}}, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quiz.Score(tt.responses), 1e-9)
		})
	}
}
