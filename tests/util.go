// Package testutil holds the database and fixture helpers shared by the tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
)

const DefaultPassword = "Passw0rd!"

// PrepareDB opens a fresh in-memory database with an up to date schema, closed at the end of the test.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()
	conf := core.NewTestConfig()
	db, err := database.Open(conf, nil)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// PrepareSQLX is PrepareDB for the sqlx repositories.
func PrepareSQLX(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.SQLX(PrepareDB(t), database.EngineSQLite)
	if err != nil {
		t.Fatalf("PrepareSQLX() failed: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo user.Repository, uname string, role user.Role, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     uname + "@example.com",
		FirstName: uname,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(DefaultPassword); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title string, creator user.User) course.Course {
	t.Helper()
	now := core.Now()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:     title,
		CreatorID: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// CreateTask adds a task to crs. maxAttempts only applies to quizzes.
func CreateTask(t *testing.T, repo course.Repository, crs course.Course, title string, typ course.TaskType, order int, maxAttempts ...int) course.Task {
	t.Helper()
	now := core.Now()
	task := course.Task{
		CourseID:  crs.ID,
		Title:     title,
		Type:      typ,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(maxAttempts) > 0 {
		task.MaxAttempts = null.IntFrom(maxAttempts[0])
	}
	task, err := repo.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return task
}

// CreateQuestion adds a question to quiz with one option per text; correct holds the indexes of the correct ones.
func CreateQuestion(t *testing.T, repo course.Repository, quiz course.Task, text, category string, options []string, correct ...int) course.Question {
	t.Helper()
	q := course.Question{QuizID: quiz.ID, Text: text}
	if category != "" {
		q.Category = null.StringFrom(category)
	}
	for i, opt := range options {
		isCorrect := false
		for _, c := range correct {
			if c == i {
				isCorrect = true
			}
		}
		q.Options = append(q.Options, course.Option{Text: opt, IsCorrect: isCorrect, Order: i})
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

func Enroll(t *testing.T, repo enrollment.Repository, usr user.User, crs course.Course, status enrollment.Status) enrollment.Enrollment {
	t.Helper()
	now := core.Now()
	enr, err := repo.Create(context.Background(), enrollment.Enrollment{
		UserID:         usr.ID,
		CourseID:       crs.ID,
		Status:         status,
		EnrollmentDate: now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateProgress(t *testing.T, repo progress.Repository, usr user.User, task course.Task, status progress.Status, timeSpent int64) progress.Progress {
	t.Helper()
	now := core.Now()
	p := progress.Progress{UserID: usr.ID, TaskID: task.ID, TimeSpent: timeSpent, CreatedAt: now}
	p.SetStatus(status, now)
	p, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProgress() failed: %v", err)
	}
	return p
}

func CreateAttempt(t *testing.T, repo quiz.Repository, usr user.User, quizTask course.Task) quiz.Attempt {
	t.Helper()
	now := core.Now()
	att, err := repo.CreateAttempt(context.Background(), quiz.Attempt{
		UserID:         usr.ID,
		QuizID:         quizTask.ID,
		StartDate:      now,
		SubmissionDate: null.TimeFrom(now),
	})
	if err != nil {
		t.Fatalf("CreateAttempt() failed: %v", err)
	}
	return att
}

// Answer builds the response to q selecting its option at index opt.
func Answer(q course.Question, opt int) quiz.Response {
	return quiz.Response{
		QuestionID:       q.ID,
		SelectedOptionID: null.StringFrom(q.Options[opt].ID),
		IsCorrect:        q.Options[opt].IsCorrect,
		CreatedAt:        core.Now(),
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
