package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

// Rows as scanned by sqlx. Column names match the migrations.
type (
	userRow struct {
		ID           string    `db:"id"`
		Username     string    `db:"username"`
		Email        string    `db:"email"`
		FirstName    string    `db:"first_name"`
		LastName     string    `db:"last_name"`
		Role         string    `db:"role"`
		IsStaff      bool      `db:"is_staff"`
		IsActive     bool      `db:"is_active"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	courseRow struct {
		ID                 string    `db:"id"`
		Title              string    `db:"title"`
		Description        string    `db:"description"`
		CreatorID          string    `db:"creator_id"`
		LearningObjectives string    `db:"learning_objectives"`
		Prerequisites      string    `db:"prerequisites"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}

	taskRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Type        string    `db:"type"`
		Order       int       `db:"order"`
		MaxAttempts null.Int  `db:"max_attempts"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	questionRow struct {
		ID       string      `db:"id"`
		QuizID   string      `db:"quiz_id"`
		Text     string      `db:"text"`
		Category null.String `db:"category"`
		Tag      null.String `db:"tag"`
		Order    int         `db:"order"`
	}

	optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"text"`
		IsCorrect  bool   `db:"is_correct"`
		Order      int    `db:"order"`
	}

	enrollmentRow struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		CourseID       string    `db:"course_id"`
		CourseTitle    string    `db:"course_title"`
		Status         string    `db:"status"`
		EnrollmentDate time.Time `db:"enrollment_date"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	progressRow struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		TaskID         string    `db:"task_id"`
		TaskTitle      string    `db:"task_title"`
		Status         string    `db:"status"`
		StartDate      null.Time `db:"start_date"`
		CompletionDate null.Time `db:"completion_date"`
		TimeSpent      int64     `db:"time_spent"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	attemptRow struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		QuizID         string    `db:"quiz_id"`
		QuizTitle      string    `db:"quiz_title"`
		StartDate      null.Time `db:"start_date"`
		SubmissionDate null.Time `db:"submission_date"`
		IsSubmitted    bool      `db:"is_submitted"`
		Score          float64   `db:"score"`
	}

	responseRow struct {
		ID               string      `db:"id"`
		AttemptID        string      `db:"quiz_attempt_id"`
		QuestionID       string      `db:"question_id"`
		SelectedOptionID null.String `db:"selected_option_id"`
		IsCorrect        bool        `db:"is_correct"`
		CreatedAt        time.Time   `db:"created_at"`
	}
)

func utc(t null.Time) null.Time {
	if !t.Valid {
		return t
	}
	return null.TimeFrom(t.Time.UTC())
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Role:         string(usr.Role),
		IsStaff:      usr.IsStaff,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    utc(usr.LastLogin),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         user.Role(r.Role),
		IsStaff:      r.IsStaff,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    utc(r.LastLogin),
	}
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:                 crs.ID,
		Title:              crs.Title,
		Description:        crs.Description,
		CreatorID:          crs.CreatorID,
		LearningObjectives: crs.LearningObjectives,
		Prerequisites:      crs.Prerequisites,
		CreatedAt:          crs.CreatedAt.UTC(),
		UpdatedAt:          crs.UpdatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:                 r.ID,
		Title:              r.Title,
		Description:        r.Description,
		CreatorID:          r.CreatorID,
		LearningObjectives: r.LearningObjectives,
		Prerequisites:      r.Prerequisites,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func toTaskRow(task course.Task) taskRow {
	return taskRow{
		ID:          task.ID,
		CourseID:    task.CourseID,
		Title:       task.Title,
		Description: task.Description,
		Type:        string(task.Type),
		Order:       task.Order,
		MaxAttempts: task.MaxAttempts,
		CreatedAt:   task.CreatedAt.UTC(),
		UpdatedAt:   task.UpdatedAt.UTC(),
	}
}

func (r taskRow) toTask() course.Task {
	return course.Task{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		Type:        course.TaskType(r.Type),
		Order:       r.Order,
		MaxAttempts: r.MaxAttempts,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r questionRow) toQuestion(options []optionRow) course.Question {
	q := course.Question{
		ID:       r.ID,
		QuizID:   r.QuizID,
		Text:     r.Text,
		Category: r.Category,
		Tag:      r.Tag,
		Order:    r.Order,
		Options:  make([]course.Option, 0, len(options)),
	}
	for _, opt := range options {
		q.Options = append(q.Options, course.Option{
			ID:         opt.ID,
			QuestionID: opt.QuestionID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			Order:      opt.Order,
		})
	}
	return q
}

func toEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:             enr.ID,
		UserID:         enr.UserID,
		CourseID:       enr.CourseID,
		CourseTitle:    enr.CourseTitle,
		Status:         string(enr.Status),
		EnrollmentDate: enr.EnrollmentDate.UTC(),
		UpdatedAt:      enr.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:             r.ID,
		UserID:         r.UserID,
		CourseID:       r.CourseID,
		CourseTitle:    r.CourseTitle,
		Status:         enrollment.Status(r.Status),
		EnrollmentDate: r.EnrollmentDate.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func toProgressRow(p progress.Progress) progressRow {
	return progressRow{
		ID:             p.ID,
		UserID:         p.UserID,
		TaskID:         p.TaskID,
		TaskTitle:      p.TaskTitle,
		Status:         string(p.Status),
		StartDate:      utc(p.StartDate),
		CompletionDate: utc(p.CompletionDate),
		TimeSpent:      p.TimeSpent,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (r progressRow) toProgress() progress.Progress {
	return progress.Progress{
		ID:             r.ID,
		UserID:         r.UserID,
		TaskID:         r.TaskID,
		TaskTitle:      r.TaskTitle,
		Status:         progress.Status(r.Status),
		StartDate:      utc(r.StartDate),
		CompletionDate: utc(r.CompletionDate),
		TimeSpent:      r.TimeSpent,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func toAttemptRow(att quiz.Attempt) attemptRow {
	r := attemptRow{
		ID:             att.ID,
		UserID:         att.UserID,
		QuizID:         att.QuizID,
		QuizTitle:      att.QuizTitle,
		SubmissionDate: utc(att.SubmissionDate),
		IsSubmitted:    att.IsSubmitted,
		Score:          att.Score,
	}
	if !att.StartDate.IsZero() {
		r.StartDate = null.TimeFrom(att.StartDate.UTC())
	}
	return r
}

func (r attemptRow) toAttempt() quiz.Attempt {
	return quiz.Attempt{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		QuizTitle:      r.QuizTitle,
		StartDate:      r.StartDate.Time.UTC(),
		SubmissionDate: utc(r.SubmissionDate),
		IsSubmitted:    r.IsSubmitted,
		Score:          r.Score,
	}
}

func toResponseRow(r quiz.Response) responseRow {
	return responseRow{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID,
		IsCorrect:        r.IsCorrect,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func (r responseRow) toResponse() quiz.Response {
	return quiz.Response{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID,
		IsCorrect:        r.IsCorrect,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}
