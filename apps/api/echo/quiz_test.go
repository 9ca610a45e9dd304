package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_quizApi(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.users, "teacher", user.RoleInstructor, true)
	student := testutil.CreateUser(t, app.users, "learner", user.RoleStudent, true)
	other := testutil.CreateUser(t, app.users, "other", user.RoleStudent, true)
	crs := testutil.CreateCourse(t, app.courses, "Go Basics", teacher)
	quizTask := testutil.CreateTask(t, app.courses, crs, "Quiz", course.TaskTypeQuiz, 1, 2)
	reading := testutil.CreateTask(t, app.courses, crs, "Reading", course.TaskTypeReading, 2)
	q1 := testutil.CreateQuestion(t, app.courses, quizTask, "2+2?", "math", []string{"3", "4"}, 1)
	q2 := testutil.CreateQuestion(t, app.courses, quizTask, "Capital of DRC?", "geo", []string{"Kinshasa", "Lubumbashi"}, 0)
	testutil.Enroll(t, app.enrollments, student, crs, enrollment.StatusActive)

	studentToken := app.token(t, student)
	startBody := func(task course.Task) []byte { return []byte(`{"quiz":"` + task.ID + `"}`) }

	start := func(t *testing.T) quiz.Attempt {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/quiz-attempts", studentToken, startBody(quizTask))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var att quiz.Attempt
		unmarshal(t, rec, &att)
		return att
	}

	app.run(t, []httpTest{
		{
			name: "start: not a quiz", method: http.MethodPost, path: "/v1/quiz-attempts", token: studentToken, body: startBody(reading),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "quiz not found"}),
		},
		{name: "start: bad id", method: http.MethodPost, path: "/v1/quiz-attempts", token: studentToken, body: []byte(`{"quiz":"nope"}`), wantCode: http.StatusBadRequest},
	})

	att := start(t)
	assert.Equal(t, student.ID, att.UserID)
	assert.False(t, att.IsSubmitted)

	submission := func(opt1, opt2 int) []byte {
		return marshalObj(t, quiz.Submission{Responses: []quiz.ResponseInput{
			{QuestionID: q1.ID, SelectedOptionID: null.StringFrom(q1.Options[opt1].ID)},
			{QuestionID: q2.ID, SelectedOptionID: null.StringFrom(q2.Options[opt2].ID)},
		}})
	}
	submitPath := "/v1/quiz-attempts/" + att.ID + "/submit_responses"

	app.run(t, []httpTest{
		{name: "someone else's attempt", path: "/v1/quiz-attempts/" + att.ID, token: app.token(t, other), wantCode: http.StatusNotFound},
		{
			name: "submit: not the owner", method: http.MethodPost, path: submitPath, token: app.token(t, other),
			body: submission(1, 0), wantCode: http.StatusNotFound,
		},
		{
			name: "submit: option of another question", method: http.MethodPost, path: submitPath, token: studentToken,
			body: marshalObj(t, quiz.Submission{Responses: []quiz.ResponseInput{
				{QuestionID: q1.ID, SelectedOptionID: null.StringFrom(q2.Options[0].ID)},
			}}),
			wantCode: http.StatusBadRequest,
		},
	})

	req, rec := newAuthRequest(http.MethodPost, submitPath, studentToken, submission(1, 1))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var submitted quiz.Attempt
	unmarshal(t, rec, &submitted)
	assert.True(t, submitted.IsSubmitted)
	assert.Equal(t, 50.0, submitted.Score)

	app.run(t, []httpTest{
		{
			name: "submit twice", method: http.MethodPost, path: submitPath, token: studentToken, body: submission(1, 0),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "this quiz attempt has already been submitted"}),
		},
		{
			name: "responses: not the owner", path: "/v1/quiz-attempts/" + att.ID + "/responses", token: app.token(t, other),
			wantCode: http.StatusNotFound,
		},
	})

	var responses []quiz.Response
	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz-attempts/"+att.ID+"/responses", app.token(t, teacher), nil)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &responses)
	assert.Len(t, responses, 2, "a rejected resubmission writes nothing")

	t.Run("attempt limit", func(t *testing.T) {
		start(t)
		app.run(t, []httpTest{
			{
				name: "third attempt", method: http.MethodPost, path: "/v1/quiz-attempts", token: studentToken, body: startBody(quizTask),
				wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: fmt.Sprintf("maximum number of attempts (%d) reached", 2)}),
			},
		})

		var attempts []quiz.Attempt
		req, rec := newAuthRequest(http.MethodGet, "/v1/quiz-attempts?quiz="+quizTask.ID, studentToken, nil)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &attempts)
		assert.Len(t, attempts, 2)
	})
}
