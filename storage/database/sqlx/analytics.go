package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
)

// AnalyticsStore loads report rows with plain SQL aggregates.
type AnalyticsStore struct {
	db      *sqlx.DB
	users   *UserRepository
	courses *CourseRepository
}

var _ analytics.Store = (*AnalyticsStore)(nil)

func NewAnalyticsStore(db *sqlx.DB) *AnalyticsStore {
	return &AnalyticsStore{
		db:      db,
		users:   NewUserRepository(db),
		courses: NewCourseRepository(db),
	}
}

type (
	enrollmentUserRow struct {
		enrollmentRow
		Username  string `db:"username"`
		Email     string `db:"email"`
		FirstName string `db:"first_name"`
		LastName  string `db:"last_name"`
	}

	progressTaskRow struct {
		progressRow
		CourseID string `db:"course_id"`
		TaskType string `db:"task_type"`
	}

	attemptCourseRow struct {
		attemptRow
		CourseID       string `db:"course_id"`
		CourseTitle    string `db:"course_title"`
		TotalQuestions int    `db:"total_questions"`
		CorrectAnswers int    `db:"correct_answers"`
	}

	questionStatRow struct {
		QuestionID       string `db:"question_id"`
		Text             string `db:"text"`
		QuizID           string `db:"quiz_id"`
		QuizTitle        string `db:"quiz_title"`
		TotalResponses   int    `db:"total_responses"`
		CorrectResponses int    `db:"correct_responses"`
	}

	categoryResponseRow struct {
		QuestionID string      `db:"question_id"`
		Category   null.String `db:"category"`
		Tag        null.String `db:"tag"`
		IsCorrect  bool        `db:"is_correct"`
	}
)

const (
	analyticsEnrollmentSelect = `
	SELECT e.id, e.user_id, e.course_id, c.title AS course_title, e.status, e.enrollment_date, e.updated_at,
		u.username, u.email, u.first_name, u.last_name
	FROM course_enrollments e
	JOIN courses c ON c.id = e.course_id
	JOIN users u ON u.id = e.user_id`

	analyticsProgressSelect = `
	SELECT p.id, p.user_id, p.task_id, t.title AS task_title, p.status, p.start_date, p.completion_date,
		p.time_spent, p.created_at, p.updated_at, t.course_id, t.type AS task_type
	FROM task_progress p
	JOIN learning_tasks t ON t.id = p.task_id`

	analyticsAttemptSelect = `
	SELECT a.id, a.user_id, a.quiz_id, t.title AS quiz_title, a.start_date, a.submission_date, a.is_submitted, a.score,
		t.course_id, c.title AS course_title,
		(SELECT COUNT(*) FROM quiz_responses r WHERE r.quiz_attempt_id = a.id) AS total_questions,
		(SELECT COALESCE(SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END), 0)
			FROM quiz_responses r WHERE r.quiz_attempt_id = a.id) AS correct_answers
	FROM quiz_attempts a
	JOIN learning_tasks t ON t.id = a.quiz_id
	JOIN courses c ON c.id = t.course_id`
)

func (s *AnalyticsStore) GetCourse(ctx context.Context, id string) (course.Course, error) {
	return s.courses.GetCourse(ctx, id)
}

func (s *AnalyticsStore) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.users.Get(ctx, user.GetFilter{ID: id})
}

func (s *AnalyticsStore) CourseTasks(ctx context.Context, courseIDs ...string) ([]course.Task, error) {
	return queryTasks(ctx, s.db, courseIDs...)
}

func (s *AnalyticsStore) enrollments(ctx context.Context, column, id string) ([]analytics.EnrollmentRow, error) {
	if !core.IsValidID(id) {
		return []analytics.EnrollmentRow{}, nil
	}
	var rows []enrollmentUserRow
	err := selectIn(ctx, s.db, &rows, analyticsEnrollmentSelect+" WHERE "+column+" = ? ORDER BY e.enrollment_date ASC, e.id ASC", id)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	result := make([]analytics.EnrollmentRow, 0, len(rows))
	for _, row := range rows {
		usr := user.User{
			ID:        row.UserID,
			Username:  row.Username,
			Email:     row.Email,
			FirstName: row.FirstName,
			LastName:  row.LastName,
		}
		result = append(result, analytics.EnrollmentRow{Enrollment: row.toEnrollment(), User: usr.Info()})
	}
	return result, nil
}

func (s *AnalyticsStore) CourseEnrollments(ctx context.Context, courseID string) ([]analytics.EnrollmentRow, error) {
	return s.enrollments(ctx, "e.course_id", courseID)
}

func (s *AnalyticsStore) UserEnrollments(ctx context.Context, userID string) ([]analytics.EnrollmentRow, error) {
	return s.enrollments(ctx, "e.user_id", userID)
}

func (s *AnalyticsStore) progressRows(ctx context.Context, query string, args ...interface{}) ([]analytics.ProgressRow, error) {
	var rows []progressTaskRow
	if err := selectIn(ctx, s.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	result := make([]analytics.ProgressRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analytics.ProgressRow{
			Progress: row.toProgress(),
			CourseID: row.CourseID,
			TaskType: course.TaskType(row.TaskType),
		})
	}
	return result, nil
}

func (s *AnalyticsStore) CourseProgress(ctx context.Context, courseID string) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(courseID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(ctx, analyticsProgressSelect+" WHERE t.course_id = ? ORDER BY p.updated_at DESC", courseID)
}

func (s *AnalyticsStore) UserProgress(ctx context.Context, userID string) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(userID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(ctx, analyticsProgressSelect+" WHERE p.user_id = ? ORDER BY p.updated_at DESC", userID)
}

func (s *AnalyticsStore) attemptRows(ctx context.Context, column, id string) ([]analytics.AttemptRow, error) {
	if !core.IsValidID(id) {
		return []analytics.AttemptRow{}, nil
	}
	var rows []attemptCourseRow
	err := selectIn(ctx, s.db, &rows,
		analyticsAttemptSelect+" WHERE "+column+" = ? AND a.is_submitted = ? ORDER BY a.submission_date DESC", id, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	result := make([]analytics.AttemptRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analytics.AttemptRow{
			Attempt:        row.toAttempt(),
			CourseID:       row.CourseID,
			CourseTitle:    row.CourseTitle,
			CorrectAnswers: row.CorrectAnswers,
			TotalQuestions: row.TotalQuestions,
		})
	}
	return result, nil
}

func (s *AnalyticsStore) CourseAttempts(ctx context.Context, courseID string) ([]analytics.AttemptRow, error) {
	return s.attemptRows(ctx, "t.course_id", courseID)
}

func (s *AnalyticsStore) UserAttempts(ctx context.Context, userID string) ([]analytics.AttemptRow, error) {
	return s.attemptRows(ctx, "a.user_id", userID)
}

func (s *AnalyticsStore) CourseQuestionStats(ctx context.Context, courseID string) ([]analytics.QuestionStat, error) {
	if !core.IsValidID(courseID) {
		return []analytics.QuestionStat{}, nil
	}
	var rows []questionStatRow
	err := selectIn(ctx, s.db, &rows, `
		SELECT q.id AS question_id, q.text AS text, q.quiz_id AS quiz_id, t.title AS quiz_title,
			COUNT(r.id) AS total_responses,
			COALESCE(SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END), 0) AS correct_responses
		FROM quiz_questions q
		JOIN learning_tasks t ON t.id = q.quiz_id
		LEFT JOIN quiz_responses r ON r.question_id = q.id
		WHERE t.course_id = ?
		GROUP BY q.id, q.text, q.quiz_id, t.title, q."order"
		ORDER BY q.quiz_id, q."order"`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying question stats")
	}
	stats := make([]analytics.QuestionStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, analytics.QuestionStat(row))
	}
	return stats, nil
}

func (s *AnalyticsStore) UserResponses(ctx context.Context, userID string) ([]analytics.ResponseRow, error) {
	if !core.IsValidID(userID) {
		return []analytics.ResponseRow{}, nil
	}
	var rows []categoryResponseRow
	err := selectIn(ctx, s.db, &rows, `
		SELECT r.question_id, q.category, q.tag, r.is_correct
		FROM quiz_responses r
		JOIN quiz_attempts a ON a.id = r.quiz_attempt_id
		JOIN quiz_questions q ON q.id = r.question_id
		WHERE a.user_id = ? AND a.is_submitted = ?
		ORDER BY r.created_at`, userID, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	result := make([]analytics.ResponseRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, analytics.ResponseRow(row))
	}
	return result, nil
}

func (s *AnalyticsStore) InstructorStats(ctx context.Context, instructorID string) (int, int, error) {
	if !core.IsValidID(instructorID) {
		return 0, 0, nil
	}
	var stats struct {
		Courses  int `db:"courses"`
		Students int `db:"students"`
	}
	err := get(ctx, s.db, &stats, `
		SELECT
			(SELECT COUNT(*) FROM courses WHERE creator_id = ?) AS courses,
			(SELECT COUNT(DISTINCT e.user_id) FROM course_enrollments e
				JOIN courses c ON c.id = e.course_id WHERE c.creator_id = ?) AS students`,
		instructorID, instructorID)
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting instructor stats")
	}
	return stats.Courses, stats.Students, nil
}

func (s *AnalyticsStore) InstructorActivity(ctx context.Context, instructorID string, limit int) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(instructorID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(ctx, analyticsProgressSelect+`
		JOIN courses c ON c.id = t.course_id
		WHERE c.creator_id = ?
		ORDER BY p.updated_at DESC
		LIMIT ?`, instructorID, limit)
}

func (s *AnalyticsStore) PlatformStats(ctx context.Context) (analytics.PlatformStats, error) {
	var row struct {
		Total        int     `db:"total"`
		Completed    int     `db:"completed"`
		TimeSpent    int64   `db:"time_spent"`
		AverageScore float64 `db:"average_score"`
	}
	err := get(ctx, s.db, &row, `
		SELECT
			(SELECT COUNT(*) FROM task_progress) AS total,
			(SELECT COUNT(*) FROM task_progress WHERE status = ?) AS completed,
			(SELECT COALESCE(SUM(time_spent), 0) FROM task_progress) AS time_spent,
			(SELECT COALESCE(AVG(score), 0) FROM quiz_attempts WHERE is_submitted = ?) AS average_score`,
		string(progress.StatusCompleted), true)
	if err != nil {
		return analytics.PlatformStats{}, errors.Wrap(err, "aggregating platform stats")
	}
	return analytics.PlatformStats{
		TotalTasks:     row.Total,
		CompletedTasks: row.Completed,
		AverageScore:   row.AverageScore,
		TotalTimeSpent: row.TimeSpent,
	}, nil
}
