package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_courseApi(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.users, "admin", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	other := testutil.CreateUser(t, app.users, "other", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)

	goCrs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	empty := testutil.CreateCourse(t, app.courses, "Empty", teacher)
	video := testutil.CreateTask(t, app.courses, goCrs, "Intro video", course.TaskTypeVideo, 2)
	reading := testutil.CreateTask(t, app.courses, goCrs, "Reading", course.TaskTypeReading, 1)

	teacherToken := app.token(t, teacher)
	studentToken := app.token(t, student)
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	app.run(t, []httpTest{
		{name: "list", path: "/v1/courses?ordering=title", token: studentToken, wantData: marshalList(t, empty, goCrs)},
		{name: "search", path: "/v1/courses?search=basics", token: studentToken, wantData: marshalList(t, goCrs)},
		{name: "retrieve", path: "/v1/courses/" + goCrs.ID, token: studentToken, wantData: marshalObj(t, goCrs)},
		{name: "retrieve unknown", path: "/v1/courses/" + admin.ID, token: studentToken, wantCode: http.StatusNotFound},
		{
			name: "create: instructor or admin", method: http.MethodPost, path: "/v1/courses", token: studentToken,
			body: []byte(`{"title":"Hacking"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "create: title required", method: http.MethodPost, path: "/v1/courses", token: teacherToken,
			body: []byte(`{"description":"no title"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"title":"this field is required"}`),
		},
		{
			name: "update: creator or admin", method: http.MethodPut, path: "/v1/courses/" + goCrs.ID, token: app.token(t, other),
			body: []byte(`{"title":"Mine now"}`), wantCode: http.StatusForbidden,
		},
		{name: "delete: creator or admin", method: http.MethodDelete, path: "/v1/courses/" + goCrs.ID, token: studentToken, wantCode: http.StatusForbidden},
		{
			name: "details", path: "/v1/courses/" + goCrs.ID + "/details", token: studentToken,
			wantData: marshalObj(t, course.Details{Course: goCrs, Tasks: []course.TaskInfo{reading.Info(), video.Info()}}),
		},
		{name: "tasks ordered", path: "/v1/courses/" + goCrs.ID + "/tasks", token: studentToken, wantData: marshalList(t, reading, video)},
		{
			name: "no tasks", path: "/v1/courses/" + empty.ID + "/tasks", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "no tasks found for this course"}),
		},
		{name: "instructor courses: students are refused", path: "/v1/courses/instructor", token: studentToken, wantCode: http.StatusForbidden},
		{name: "instructor courses: own", path: "/v1/courses/instructor", token: teacherToken, wantData: marshalList(t, goCrs, empty)},
		{
			name: "instructor courses: none", path: "/v1/courses/instructor", token: app.token(t, other),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "no courses found"}),
		},
		{name: "instructor courses: admin sees all", path: "/v1/courses/instructor", token: app.token(t, admin), wantData: marshalList(t, goCrs, empty)},
	})

	t.Run("create and update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", teacherToken, []byte(`{"title":"  Rust  ","description":"systems"}`))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var crs course.Course
		unmarshal(t, rec, &crs)
		assert.Equal(t, "Rust", crs.Title)
		assert.Equal(t, teacher.ID, crs.CreatorID)

		req, rec = newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID, app.token(t, admin), []byte(`{"title":"Rust 101"}`))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &crs)
		assert.Equal(t, "Rust 101", crs.Title)
		assert.Equal(t, "systems", crs.Description)

		app.run(t, []httpTest{
			{name: "delete", method: http.MethodDelete, path: "/v1/courses/" + crs.ID, token: teacherToken, wantCode: http.StatusNoContent},
			{name: "deleted", path: "/v1/courses/" + crs.ID, token: teacherToken, wantCode: http.StatusNotFound},
		})
	})
}

func Test_taskApi(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	quizTask := testutil.CreateTask(t, app.courses, crs, "Quiz", course.TaskTypeQuiz, 1, 3)
	reading := testutil.CreateTask(t, app.courses, crs, "Reading", course.TaskTypeReading, 2)
	q := testutil.CreateQuestion(t, app.courses, quizTask, "2+2?", "math", []string{"3", "4"}, 1)

	teacherToken := app.token(t, teacher)
	studentToken := app.token(t, student)

	hidden := q
	hidden.Options = append([]course.Option(nil), q.Options...)
	for i := range hidden.Options {
		hidden.Options[i].IsCorrect = false
	}

	app.run(t, []httpTest{
		{name: "retrieve", path: "/v1/tasks/" + quizTask.ID, token: studentToken, wantData: marshalObj(t, quizTask)},
		{
			name: "create: instructor or admin", method: http.MethodPost, path: "/v1/tasks", token: studentToken,
			body: marshalObj(t, course.NewTask{CourseID: crs.ID, Title: "Sneaky", Type: course.TaskTypeReading}), wantCode: http.StatusForbidden,
		},
		{
			name: "create: max_attempts on a reading", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body:     []byte(`{"course":"` + crs.ID + `","title":"Read","type":"reading","max_attempts":2}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"max_attempts":"max_attempts is only allowed on quiz tasks"}`),
		},
		{
			name: "create: unknown type", method: http.MethodPost, path: "/v1/tasks", token: teacherToken,
			body: []byte(`{"course":"` + crs.ID + `","title":"Podcast","type":"podcast"}`), wantCode: http.StatusBadRequest,
		},
		{name: "questions: answers hidden from students", path: "/v1/tasks/" + quizTask.ID + "/questions", token: studentToken, wantData: marshalList(t, hidden)},
		{name: "questions: answers shown to instructors", path: "/v1/tasks/" + quizTask.ID + "/questions", token: teacherToken, wantData: marshalList(t, q)},
		{
			name: "add question: not a quiz", method: http.MethodPost, path: "/v1/tasks/" + reading.ID + "/questions", token: teacherToken,
			body:     []byte(`{"text":"Why?","options":[{"text":"a","is_correct":true},{"text":"b"}]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "questions can only be added to quiz tasks"}),
		},
		{
			name: "add question: two options at least", method: http.MethodPost, path: "/v1/tasks/" + quizTask.ID + "/questions", token: teacherToken,
			body: []byte(`{"text":"Why?","options":[{"text":"a","is_correct":true}]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "add question", method: http.MethodPost, path: "/v1/tasks/" + quizTask.ID + "/questions", token: teacherToken,
			body: []byte(`{"text":"Why?","order":2,"options":[{"text":"a","is_correct":true},{"text":"b"}]}`), wantCode: http.StatusCreated,
		},
		{
			name: "update: creator only", method: http.MethodPut, path: "/v1/tasks/" + reading.ID, token: studentToken,
			body: []byte(`{"title":"Mine"}`), wantCode: http.StatusForbidden,
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/tasks/" + reading.ID, token: teacherToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/tasks/" + reading.ID, token: teacherToken, wantCode: http.StatusNotFound},
	})
}

func Test_enrollmentApi(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)
	other := testutil.CreateUser(t, app.users, "other", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	otherEnr := testutil.Enroll(t, app.enrollments, other, crs, enrollment.StatusActive)

	studentToken := app.token(t, student)
	enrollPath := "/v1/courses/" + crs.ID + "/enroll"

	app.run(t, []httpTest{
		{name: "enroll: unknown course", method: http.MethodPost, path: "/v1/courses/" + teacher.ID + "/enroll", token: studentToken, wantCode: http.StatusNotFound},
		{
			name: "enroll", method: http.MethodPost, path: enrollPath, token: studentToken,
			wantCode: http.StatusCreated, wantData: []byte(`{"detail":"successfully enrolled in the course"}`),
		},
		{
			name: "enroll twice", method: http.MethodPost, path: enrollPath, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "you are already enrolled in this course"}),
		},
		{
			name: "enroll twice via collection", method: http.MethodPost, path: "/v1/enrollments", token: studentToken,
			body: []byte(`{"course":"` + crs.ID + `"}`), wantCode: http.StatusBadRequest,
		},
		{name: "someone else's enrollment", path: "/v1/enrollments/" + otherEnr.ID, token: studentToken, wantCode: http.StatusNotFound},
		{name: "visible to instructors", path: "/v1/enrollments/" + otherEnr.ID, token: app.token(t, teacher), wantCode: http.StatusOK},
	})
	assert.Len(t, app.outbox.Sent(), 1, "one confirmation email")

	var mine []enrollment.Enrollment
	req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", studentToken, nil)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &mine)
	require.Len(t, mine, 1, "students only see their own enrollments")
	enr := mine[0]
	assert.Equal(t, enrollment.StatusActive, enr.Status)
	assert.Equal(t, "Go Basics", enr.CourseTitle)

	statusPath := "/v1/enrollments/" + enr.ID + "/update_status"
	app.run(t, []httpTest{
		{
			name: "invalid status", method: http.MethodPatch, path: statusPath, token: studentToken, body: []byte(`{"status":"paused"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "invalid status. must be one of: active, completed, dropped"}),
		},
		{name: "drop", method: http.MethodPatch, path: statusPath, token: studentToken, body: []byte(`{"status":"dropped"}`)},
		{
			name: "course progress needs an active enrollment", path: "/v1/courses/" + crs.ID + "/progress", token: studentToken,
			wantCode: http.StatusForbidden,
		},
		{name: "reactivate", method: http.MethodPut, path: "/v1/enrollments/" + enr.ID, token: studentToken, body: []byte(`{"status":"active"}`)},
		{name: "course progress", path: "/v1/courses/" + crs.ID + "/progress", token: studentToken, wantData: marshalList(t)},
	})
}

func Test_progressApi(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)
	outsider := testutil.CreateUser(t, app.users, "outsider", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	reading := testutil.CreateTask(t, app.courses, crs, "Reading", course.TaskTypeReading, 1)
	video := testutil.CreateTask(t, app.courses, crs, "Video", course.TaskTypeVideo, 2)
	testutil.Enroll(t, app.enrollments, student, crs, enrollment.StatusActive)
	existing := testutil.CreateProgress(t, app.progress, student, video, progress.StatusInProgress, 60)

	studentToken := app.token(t, student)
	body := func(task course.Task) []byte {
		return []byte(`{"task":"` + task.ID + `","status":"in_progress","time_spent":30}`)
	}

	app.run(t, []httpTest{
		{name: "create: not enrolled", method: http.MethodPost, path: "/v1/task-progress", token: app.token(t, outsider), body: body(reading), wantCode: http.StatusForbidden},
		{
			name: "create: duplicate", method: http.MethodPost, path: "/v1/task-progress", token: studentToken, body: body(video),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "progress for this task already exists"}),
		},
		{
			name: "create: invalid status", method: http.MethodPost, path: "/v1/task-progress", token: studentToken,
			body: []byte(`{"task":"` + reading.ID + `","status":"done"}`), wantCode: http.StatusBadRequest,
		},
		{name: "create", method: http.MethodPost, path: "/v1/task-progress", token: studentToken, body: body(reading), wantCode: http.StatusCreated},
		{name: "someone else's progress", path: "/v1/task-progress/" + existing.ID, token: app.token(t, outsider), wantCode: http.StatusNotFound},
	})

	statusPath := "/v1/task-progress/" + existing.ID + "/update_status"
	req, rec := newAuthRequest(http.MethodPatch, statusPath, studentToken, []byte(`{"status":"completed"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completed progress.Progress
	unmarshal(t, rec, &completed)
	assert.Equal(t, progress.StatusCompleted, completed.Status)
	require.True(t, completed.CompletionDate.Valid)

	req, rec = newAuthRequest(http.MethodPut, "/v1/task-progress/"+existing.ID, studentToken, []byte(`{"time_spent":120}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated progress.Progress
	unmarshal(t, rec, &updated)
	assert.Equal(t, int64(120), updated.TimeSpent)
	assert.True(t, updated.CompletionDate.Time.Equal(completed.CompletionDate.Time), "completion date is set once")
	assert.False(t, updated.UpdatedAt.Before(completed.UpdatedAt))

	var rows []progress.Progress
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/progress", studentToken, nil)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &rows)
	assert.Len(t, rows, 2)
}
