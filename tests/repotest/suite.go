// Package repotest is the behaviour every repository implementation must share.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

// Repos is one implementation of every repository, over a fresh database.
type Repos struct {
	Users       user.Repository
	Courses     course.Repository
	Enrollments enrollment.Repository
	Progress    progress.Repository
	Quizzes     quiz.Repository
	Analytics   analytics.Store
}

// Run runs the suite, calling newRepos once per test.
func Run(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("courses", func(t *testing.T) { testCourses(t, newRepos(t)) })
	t.Run("enrollments", func(t *testing.T) { testEnrollments(t, newRepos(t)) })
	t.Run("progress", func(t *testing.T) { testProgress(t, newRepos(t)) })
	t.Run("quizzes", func(t *testing.T) { testQuizzes(t, newRepos(t)) })
	t.Run("analytics", func(t *testing.T) { testAnalytics(t, newRepos(t)) })
}

func testUsers(t *testing.T, r Repos) {
	ctx := context.Background()
	alice := testutil.CreateUser(t, r.Users, "alice", user.RoleStudent, true)
	bob := testutil.CreateUser(t, r.Users, "bob", user.RoleInstructor, true)
	carl := testutil.CreateUser(t, r.Users, "carl", user.RoleAdmin, false)

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, r.Users.CheckUniqueness(ctx, "alice", "new@example.com"))
		assert.Equal(t, user.ErrEmailExists, r.Users.CheckUniqueness(ctx, "new", "bob@example.com"))
		assert.NoError(t, r.Users.CheckUniqueness(ctx, "alice", "alice@example.com", alice))
		assert.NoError(t, r.Users.CheckUniqueness(ctx, "new", ""))

		_, err := r.Users.Create(ctx, user.User{Username: "alice", Role: user.RoleStudent, PasswordHash: []byte("x")})
		assert.Equal(t, user.ErrUsernameExists, err)
	})

	t.Run("get", func(t *testing.T) {
		tests := []struct {
			name   string
			filter user.GetFilter
			want   string
			err    error
		}{
			{name: "id", filter: user.GetFilter{ID: bob.ID}, want: "bob"},
			{name: "username", filter: user.GetFilter{Username: "carl"}, want: "carl"},
			{name: "email", filter: user.GetFilter{Email: "alice@example.com"}, want: "alice"},
			{name: "username or email", filter: user.GetFilter{UsernameOrEmail: "bob@example.com"}, want: "bob"},
			{name: "malformed id", filter: user.GetFilter{ID: "42"}, err: user.ErrNotFound},
			{name: "unknown id", filter: user.GetFilter{ID: core.NewID()}, err: user.ErrNotFound},
			{name: "empty", filter: user.GetFilter{}, err: user.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := r.Users.Get(ctx, tt.filter)
				if tt.err != nil {
					assert.Equal(t, tt.err, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Username)
			})
		}

		got, err := r.Users.Get(ctx, user.GetFilter{ID: alice.ID})
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword(testutil.DefaultPassword))
		assert.Equal(t, alice.CreatedAt.Unix(), got.CreatedAt.Unix())
	})

	t.Run("query", func(t *testing.T) {
		active := true
		staff := false
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all by username", ordering: []core.DBOrdering{{Field: "username", Ascending: true}}, want: []string{"alice", "bob", "carl"}},
			{name: "search", filter: &user.QueryFilter{Search: "ARL"}, want: []string{"carl"}},
			{name: "roles", filter: &user.QueryFilter{Roles: []user.Role{user.RoleStudent, user.RoleInstructor}},
				ordering: []core.DBOrdering{{Field: "username", Ascending: false}}, want: []string{"bob", "alice"}},
			{name: "active non staff", filter: &user.QueryFilter{IsActive: &active, IsStaff: &staff},
				ordering: []core.DBOrdering{{Field: "username", Ascending: true}}, want: []string{"alice", "bob"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := r.Users.Query(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				got := make([]string, 0, len(users))
				for _, u := range users {
					got = append(got, u.Username)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		carl.IsStaff = true
		carl.LastName = "Sagan"
		updated, err := r.Users.Update(ctx, carl)
		require.NoError(t, err)
		assert.True(t, updated.IsStaff)

		got, err := r.Users.Get(ctx, user.GetFilter{ID: carl.ID})
		require.NoError(t, err)
		assert.Equal(t, "Sagan", got.LastName)
		assert.True(t, got.IsAdmin())

		_, err = r.Users.Update(ctx, user.User{ID: core.NewID(), Username: "ghost", PasswordHash: []byte("x")})
		assert.Equal(t, user.ErrNotFound, err)

		n, err := r.Users.Delete(ctx, carl.ID, "bogus", core.NewID())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func testCourses(t *testing.T, r Repos) {
	ctx := context.Background()
	teacher := testutil.CreateUser(t, r.Users, "teacher", user.RoleInstructor, true)
	goCrs := testutil.CreateCourse(t, r.Courses, "Go Basics", teacher)
	testutil.CreateCourse(t, r.Courses, "Rust Basics", teacher)

	t.Run("courses", func(t *testing.T) {
		got, err := r.Courses.GetCourse(ctx, goCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go Basics", got.Title)
		assert.Equal(t, teacher.ID, got.CreatorID)

		_, err = r.Courses.GetCourse(ctx, core.NewID())
		assert.Equal(t, course.ErrNotFound, err)

		found, err := r.Courses.QueryCourses(ctx, &course.QueryFilter{Search: "go"}, nil)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, goCrs.ID, found[0].ID)

		found, err = r.Courses.QueryCourses(ctx, &course.QueryFilter{CreatorID: teacher.ID},
			[]core.DBOrdering{{Field: "title", Ascending: false}})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Rust Basics", found[0].Title)

		goCrs.Description = "channels and goroutines"
		_, err = r.Courses.UpdateCourse(ctx, goCrs)
		require.NoError(t, err)
		got, err = r.Courses.GetCourse(ctx, goCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, "channels and goroutines", got.Description)
	})

	t.Run("tasks", func(t *testing.T) {
		testutil.CreateTask(t, r.Courses, goCrs, "Quiz", course.TaskTypeQuiz, 3, 2)
		testutil.CreateTask(t, r.Courses, goCrs, "Intro", course.TaskTypeReading, 1)
		video := testutil.CreateTask(t, r.Courses, goCrs, "Video", course.TaskTypeVideo, 2)

		tasks, err := r.Courses.QueryTasks(ctx, goCrs.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []string{"Intro", "Video", "Quiz"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
		assert.False(t, tasks[0].MaxAttempts.Valid)
		assert.Equal(t, 2, tasks[2].MaxAttempts.Int)

		video.Order = 10
		_, err = r.Courses.UpdateTask(ctx, video)
		require.NoError(t, err)
		tasks, err = r.Courses.QueryTasks(ctx, goCrs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Video", tasks[2].Title)

		require.NoError(t, r.Courses.DeleteTask(ctx, video.ID))
		assert.Equal(t, course.ErrTaskNotFound, r.Courses.DeleteTask(ctx, video.ID))
		_, err = r.Courses.GetTask(ctx, video.ID)
		assert.Equal(t, course.ErrTaskNotFound, err)
	})

	t.Run("questions", func(t *testing.T) {
		quizTask := testutil.CreateTask(t, r.Courses, goCrs, "Final", course.TaskTypeQuiz, 5)
		q := testutil.CreateQuestion(t, r.Courses, quizTask, "2+2?", "math", []string{"3", "4", "5"}, 1)
		require.Len(t, q.Options, 3)

		got, err := r.Courses.GetQuestion(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "math", got.Category.String)
		assert.False(t, got.Tag.Valid)
		require.Len(t, got.Options, 3)
		assert.Equal(t, "3", got.Options[0].Text)
		correct, ok := got.CorrectOption()
		require.True(t, ok)
		assert.Equal(t, "4", correct.Text)

		questions, err := r.Courses.QueryQuestions(ctx, quizTask.ID)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Len(t, questions[0].Options, 3)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, r.Courses.DeleteCourse(ctx, goCrs.ID))
		assert.Equal(t, course.ErrNotFound, r.Courses.DeleteCourse(ctx, goCrs.ID))
		tasks, err := r.Courses.QueryTasks(ctx, goCrs.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func testEnrollments(t *testing.T, r Repos) {
	ctx := context.Background()
	teacher := testutil.CreateUser(t, r.Users, "teacher", user.RoleInstructor, true)
	alice := testutil.CreateUser(t, r.Users, "alice", user.RoleStudent, true)
	bob := testutil.CreateUser(t, r.Users, "bob", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, r.Courses, "Go Basics", teacher)

	enr := testutil.Enroll(t, r.Enrollments, alice, crs, enrollment.StatusActive)
	testutil.Enroll(t, r.Enrollments, bob, crs, enrollment.StatusDropped)

	_, err := r.Enrollments.Create(ctx, enrollment.Enrollment{
		UserID: alice.ID, CourseID: crs.ID, Status: enrollment.StatusActive,
		EnrollmentDate: core.Now(), UpdatedAt: core.Now(),
	})
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)

	got, err := r.Enrollments.Get(ctx, enrollment.GetFilter{UserID: alice.ID, CourseID: crs.ID})
	require.NoError(t, err)
	assert.Equal(t, enr.ID, got.ID)
	assert.Equal(t, "Go Basics", got.CourseTitle)

	_, err = r.Enrollments.Get(ctx, enrollment.GetFilter{UserID: teacher.ID, CourseID: crs.ID})
	assert.Equal(t, enrollment.ErrNotFound, err)

	isActive, err := r.Enrollments.HasActiveEnrollment(ctx, alice.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, isActive)
	isActive, err = r.Enrollments.HasActiveEnrollment(ctx, bob.ID, crs.ID)
	require.NoError(t, err)
	assert.False(t, isActive, "dropped enrollment is not active")

	dropped, err := r.Enrollments.Query(ctx, &enrollment.QueryFilter{Statuses: []enrollment.Status{enrollment.StatusDropped}}, nil)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, bob.ID, dropped[0].UserID)

	found, err := r.Enrollments.Query(ctx, &enrollment.QueryFilter{Search: "basics", UserID: alice.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	enr.Status = enrollment.StatusCompleted
	_, err = r.Enrollments.Update(ctx, enr)
	require.NoError(t, err)
	got, err = r.Enrollments.Get(ctx, enrollment.GetFilter{ID: enr.ID})
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, got.Status)
}

func testProgress(t *testing.T, r Repos) {
	ctx := context.Background()
	teacher := testutil.CreateUser(t, r.Users, "teacher", user.RoleInstructor, true)
	alice := testutil.CreateUser(t, r.Users, "alice", user.RoleStudent, true)
	goCrs := testutil.CreateCourse(t, r.Courses, "Go Basics", teacher)
	rustCrs := testutil.CreateCourse(t, r.Courses, "Rust Basics", teacher)
	goTask := testutil.CreateTask(t, r.Courses, goCrs, "Intro", course.TaskTypeReading, 1)
	rustTask := testutil.CreateTask(t, r.Courses, rustCrs, "Ownership", course.TaskTypeReading, 1)

	p := testutil.CreateProgress(t, r.Progress, alice, goTask, progress.StatusInProgress, 60)
	testutil.CreateProgress(t, r.Progress, alice, rustTask, progress.StatusNotStarted, 0)
	assert.True(t, p.StartDate.Valid)
	assert.False(t, p.CompletionDate.Valid)

	_, err := r.Progress.Create(ctx, progress.Progress{UserID: alice.ID, TaskID: goTask.ID, Status: progress.StatusNotStarted,
		CreatedAt: core.Now(), UpdatedAt: core.Now()})
	assert.Equal(t, progress.ErrAlreadyExists, err)

	rows, err := r.Progress.Query(ctx, &progress.QueryFilter{UserID: alice.ID, CourseID: goCrs.ID}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Intro", rows[0].TaskTitle)

	p.SetStatus(progress.StatusCompleted, core.Now())
	p.TimeSpent = 120
	_, err = r.Progress.Update(ctx, p)
	require.NoError(t, err)
	got, err := r.Progress.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, got.Status)
	assert.Equal(t, int64(120), got.TimeSpent)
	assert.True(t, got.CompletionDate.Valid)

	_, err = r.Progress.Get(ctx, core.NewID())
	assert.Equal(t, progress.ErrNotFound, err)
}

func testQuizzes(t *testing.T, r Repos) {
	ctx := context.Background()
	teacher := testutil.CreateUser(t, r.Users, "teacher", user.RoleInstructor, true)
	alice := testutil.CreateUser(t, r.Users, "alice", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, r.Courses, "Go Basics", teacher)
	quizTask := testutil.CreateTask(t, r.Courses, crs, "Quiz", course.TaskTypeQuiz, 1, 3)
	q1 := testutil.CreateQuestion(t, r.Courses, quizTask, "2+2?", "math", []string{"3", "4"}, 1)
	q2 := testutil.CreateQuestion(t, r.Courses, quizTask, "3+3?", "math", []string{"6", "7"}, 0)

	att := testutil.CreateAttempt(t, r.Quizzes, alice, quizTask)
	testutil.CreateAttempt(t, r.Quizzes, alice, quizTask)
	count, err := r.Quizzes.CountAttempts(ctx, alice.ID, quizTask.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := r.Quizzes.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiz", got.QuizTitle)
	assert.False(t, got.IsSubmitted)

	responses := []quiz.Response{testutil.Answer(q1, 1), testutil.Answer(q2, 1)}
	att.Score = quiz.Score(responses)
	submitted, err := r.Quizzes.SubmitAttempt(ctx, att, responses)
	require.NoError(t, err)
	assert.True(t, submitted.IsSubmitted)
	assert.Equal(t, 50.0, submitted.Score)

	_, err = r.Quizzes.SubmitAttempt(ctx, att, responses)
	assert.Equal(t, quiz.ErrAlreadySubmitted, err)

	stored, err := r.Quizzes.QueryResponses(ctx, att.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "second submit must not add responses")

	got, err = r.Quizzes.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSubmitted)
	assert.Equal(t, 50.0, got.Score)

	attempts, err := r.Quizzes.QueryAttempts(ctx, &quiz.QueryFilter{CourseID: crs.ID},
		[]core.DBOrdering{{Field: "score", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, att.ID, attempts[0].ID)
}

func testAnalytics(t *testing.T, r Repos) {
	ctx := context.Background()
	teacher := testutil.CreateUser(t, r.Users, "teacher", user.RoleInstructor, true)
	alice := testutil.CreateUser(t, r.Users, "alice", user.RoleStudent, true)
	bob := testutil.CreateUser(t, r.Users, "bob", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, r.Courses, "Go Basics", teacher)
	testutil.CreateCourse(t, r.Courses, "Rust Basics", teacher)
	reading := testutil.CreateTask(t, r.Courses, crs, "Intro", course.TaskTypeReading, 1)
	quizTask := testutil.CreateTask(t, r.Courses, crs, "Quiz", course.TaskTypeQuiz, 2)
	q1 := testutil.CreateQuestion(t, r.Courses, quizTask, "2+2?", "math", []string{"3", "4"}, 1)
	q2 := testutil.CreateQuestion(t, r.Courses, quizTask, "Capital of Kenya?", "geography", []string{"Nairobi", "Mombasa"}, 0)

	testutil.Enroll(t, r.Enrollments, alice, crs, enrollment.StatusActive)
	testutil.Enroll(t, r.Enrollments, bob, crs, enrollment.StatusCompleted)
	testutil.CreateProgress(t, r.Progress, alice, reading, progress.StatusCompleted, 300)
	testutil.CreateProgress(t, r.Progress, bob, reading, progress.StatusInProgress, 100)

	att := testutil.CreateAttempt(t, r.Quizzes, alice, quizTask)
	responses := []quiz.Response{testutil.Answer(q1, 1), testutil.Answer(q2, 1)}
	att.Score = quiz.Score(responses)
	_, err := r.Quizzes.SubmitAttempt(ctx, att, responses)
	require.NoError(t, err)
	testutil.CreateAttempt(t, r.Quizzes, bob, quizTask) // unsubmitted

	t.Run("enrollments", func(t *testing.T) {
		rows, err := r.Analytics.CourseEnrollments(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		emails := map[string]string{}
		for _, row := range rows {
			emails[row.User.Username] = row.User.Email
		}
		assert.Equal(t, map[string]string{"alice": "alice@example.com", "bob": "bob@example.com"}, emails)

		rows, err = r.Analytics.UserEnrollments(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Go Basics", rows[0].CourseTitle)
	})

	t.Run("progress", func(t *testing.T) {
		rows, err := r.Analytics.CourseProgress(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, crs.ID, row.CourseID)
			assert.Equal(t, course.TaskTypeReading, row.TaskType)
		}

		rows, err = r.Analytics.InstructorActivity(ctx, teacher.ID, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("attempts", func(t *testing.T) {
		rows, err := r.Analytics.CourseAttempts(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1, "only submitted attempts")

		rows, err = r.Analytics.UserAttempts(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Go Basics", rows[0].CourseTitle)
		assert.Equal(t, 2, rows[0].TotalQuestions)
		assert.Equal(t, 1, rows[0].CorrectAnswers)
		assert.Equal(t, 50.0, rows[0].Score)

		rows, err = r.Analytics.UserAttempts(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("questions", func(t *testing.T) {
		stats, err := r.Analytics.CourseQuestionStats(ctx, crs.ID)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		byID := map[string]analytics.QuestionStat{stats[0].QuestionID: stats[0], stats[1].QuestionID: stats[1]}
		assert.Equal(t, 1, byID[q1.ID].TotalResponses)
		assert.Equal(t, 1, byID[q1.ID].CorrectResponses)
		assert.Equal(t, 0, byID[q2.ID].CorrectResponses)
		assert.Equal(t, "Quiz", byID[q2.ID].QuizTitle)

		responses, err := r.Analytics.UserResponses(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		categories := map[string]bool{}
		for _, resp := range responses {
			categories[resp.Category.String] = resp.IsCorrect
		}
		assert.Equal(t, map[string]bool{"math": true, "geography": false}, categories)
	})

	t.Run("instructor and platform", func(t *testing.T) {
		created, enrolled, err := r.Analytics.InstructorStats(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, created)
		assert.Equal(t, 2, enrolled)

		stats, err := r.Analytics.PlatformStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, analytics.PlatformStats{
			TotalTasks:     2,
			CompletedTasks: 1,
			AverageScore:   50,
			TotalTimeSpent: 400,
		}, stats)

		tasks, err := r.Analytics.CourseTasks(ctx, crs.ID)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})
}
