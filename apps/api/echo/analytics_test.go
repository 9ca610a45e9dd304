package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_analyticsApi(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.users, "admin", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)
	newbie := testutil.CreateUser(t, app.users, "newbie", user.RoleStudent, true)

	crs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	reading := testutil.CreateTask(t, app.courses, crs, "Reading", course.TaskTypeReading, 1)
	quizTask := testutil.CreateTask(t, app.courses, crs, "Quiz", course.TaskTypeQuiz, 2)
	q := testutil.CreateQuestion(t, app.courses, quizTask, "2+2?", "math", []string{"4", "5"}, 0)
	testutil.Enroll(t, app.enrollments, student, crs, enrollment.StatusActive)
	testutil.CreateProgress(t, app.progress, student, reading, progress.StatusCompleted, 600)

	att := testutil.CreateAttempt(t, app.quizzes, student, quizTask)
	att.IsSubmitted = true
	resp := testutil.Answer(q, 0)
	resp.AttemptID = att.ID
	att.Score = quiz.Score([]quiz.Response{resp})
	_, err := app.quizzes.SubmitAttempt(context.Background(), att, []quiz.Response{resp})
	require.NoError(t, err)

	adminToken := app.token(t, admin)
	teacherToken := app.token(t, teacher)
	studentToken := app.token(t, student)
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})
	dashboardForbidden := marshalObj(t, httpErr{Error: "you do not have permission to access this resource"})
	coursePath := "/v1/courses/" + crs.ID

	app.run(t, []httpTest{
		{name: "course analytics: auth required", path: coursePath + "/analytics", wantCode: http.StatusUnauthorized},
		{name: "course analytics: student", path: coursePath + "/analytics", token: studentToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "course analytics: unknown course", path: "/v1/courses/" + admin.ID + "/analytics", token: teacherToken, wantCode: http.StatusNotFound},
		{name: "student progress: student", path: coursePath + "/student-progress", token: studentToken, wantCode: http.StatusForbidden},
		{name: "task analytics: student", path: coursePath + "/task-analytics", token: studentToken, wantCode: http.StatusForbidden},
		{name: "course detail still routed", path: coursePath, token: studentToken},
		{
			name: "progress: other student", path: "/v1/students/" + newbie.ID + "/progress", token: studentToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "you do not have permission to view this user's progress"}),
		},
		{name: "progress: unknown student hidden from students", path: "/v1/students/" + crs.ID + "/progress", token: studentToken, wantCode: http.StatusForbidden},
		{name: "progress: unknown student", path: "/v1/students/" + crs.ID + "/progress", token: teacherToken, wantCode: http.StatusNotFound},
		{
			name: "quiz performance: other student", path: "/v1/students/" + student.ID + "/quiz-performance", token: app.token(t, newbie),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "you do not have permission to view this user's quiz performance"}),
		},
		{name: "instructor dashboard: student", path: "/v1/dashboard/instructor", token: studentToken, wantCode: http.StatusForbidden, wantData: dashboardForbidden},
		{name: "admin dashboard: instructor", path: "/v1/dashboard/admin", token: teacherToken, wantCode: http.StatusForbidden, wantData: dashboardForbidden},
	})

	t.Run("course analytics", func(t *testing.T) {
		var report analytics.CourseAnalytics
		req, rec := newAuthRequest(http.MethodGet, coursePath+"/analytics", teacherToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &report)
		assert.Equal(t, 1, report.EnrollmentStats.Total)
		assert.Equal(t, 1, report.EnrollmentStats.Active)
		assert.Equal(t, 1, report.ContentDistribution.Reading)
		assert.Equal(t, 1, report.ContentDistribution.Quiz)
	})

	t.Run("course student progress", func(t *testing.T) {
		var report []analytics.StudentCourseProgress
		req, rec := newAuthRequest(http.MethodGet, coursePath+"/student-progress", adminToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &report)
		require.Len(t, report, 1)
		assert.Equal(t, 1, report[0].ProgressSummary.CompletedTasks)
		assert.Equal(t, 2, report[0].ProgressSummary.TotalTasks)
	})

	t.Run("task analytics", func(t *testing.T) {
		var report []analytics.TaskAnalytics
		req, rec := newAuthRequest(http.MethodGet, coursePath+"/task-analytics", teacherToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &report)
		require.Len(t, report, 2)
		assert.Equal(t, reading.ID, report[0].TaskID)
		assert.Nil(t, report[0].QuizAnalysis)
		require.NotNil(t, report[1].QuizAnalysis)
		assert.Equal(t, 1, report[1].QuizAnalysis.TotalAttempts)
	})

	t.Run("own progress", func(t *testing.T) {
		var report analytics.StudentProgress
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/progress", studentToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &report)
		assert.Equal(t, student.ID, report.UserInfo.ID)
		assert.Equal(t, 1, report.OverallStats.TotalCourses)
		assert.Equal(t, 1, report.OverallStats.TotalTasksCompleted)
		assert.Equal(t, 2, report.OverallStats.TotalTasks)
		assert.Equal(t, 100.0, report.OverallStats.AverageQuizScore)
	})

	t.Run("quiz performance without attempts", func(t *testing.T) {
		var report analytics.QuizPerformance
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+newbie.ID+"/quiz-performance", teacherToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &report)
		assert.Equal(t, newbie.ID, report.UserInfo.ID)
		assert.Zero(t, report.OverallStats.TotalAttempts)
		assert.Zero(t, report.OverallStats.PassRate)
		assert.Empty(t, report.RecentAttempts)
	})

	t.Run("instructor dashboard", func(t *testing.T) {
		var dashboard analytics.InstructorDashboard
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/instructor", teacherToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &dashboard)
		assert.Equal(t, 1, dashboard.CoursesCreated)
		assert.Equal(t, 1, dashboard.StudentsEnrolled)
		assert.Len(t, dashboard.RecentActivity, 1)
	})

	t.Run("admin dashboard", func(t *testing.T) {
		var dashboard analytics.AdminDashboard
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/admin", adminToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &dashboard)
		assert.Equal(t, 1, dashboard.TotalCompletedTasks)
		assert.Equal(t, 1, dashboard.TotalTasks, "progress rows")
		assert.Equal(t, int64(600), dashboard.TotalTimeSpent)
	})
}
