package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
)

// AnalyticsStore loads report rows with gorm.
type AnalyticsStore struct {
	db      *gorm.DB
	users   *UserRepository
	courses *CourseRepository
}

var _ analytics.Store = (*AnalyticsStore)(nil)

func NewAnalyticsStore(db *gorm.DB) *AnalyticsStore {
	return &AnalyticsStore{
		db:      db,
		users:   NewUserRepository(db),
		courses: NewCourseRepository(db),
	}
}

func (s *AnalyticsStore) GetCourse(ctx context.Context, id string) (course.Course, error) {
	return s.courses.GetCourse(ctx, id)
}

func (s *AnalyticsStore) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.users.Get(ctx, user.GetFilter{ID: id})
}

func (s *AnalyticsStore) CourseTasks(ctx context.Context, courseIDs ...string) ([]course.Task, error) {
	courseIDs = validIDs(courseIDs)
	if len(courseIDs) == 0 {
		return []course.Task{}, nil
	}
	var models []taskModel
	err := s.db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order(`course_id ASC, "order" ASC, created_at ASC`).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]course.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, models[i].toTask())
	}
	return tasks, nil
}

func (s *AnalyticsStore) enrollments(ctx context.Context, column, id string) ([]analytics.EnrollmentRow, error) {
	if !core.IsValidID(id) {
		return []analytics.EnrollmentRow{}, nil
	}
	var models []enrollmentModel
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		Where(column+" = ?", id).
		Order("enrollment_date ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	rows := make([]analytics.EnrollmentRow, 0, len(models))
	for i := range models {
		row := analytics.EnrollmentRow{Enrollment: models[i].toEnrollment()}
		if models[i].User != nil {
			row.User = models[i].User.toUser().Info()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *AnalyticsStore) CourseEnrollments(ctx context.Context, courseID string) ([]analytics.EnrollmentRow, error) {
	return s.enrollments(ctx, "course_id", courseID)
}

func (s *AnalyticsStore) UserEnrollments(ctx context.Context, userID string) ([]analytics.EnrollmentRow, error) {
	return s.enrollments(ctx, "user_id", userID)
}

func (s *AnalyticsStore) progressRows(q *gorm.DB) ([]analytics.ProgressRow, error) {
	var models []progressModel
	err := q.Preload("Task").
		Joins("JOIN learning_tasks ON learning_tasks.id = task_progress.task_id").
		Order("task_progress.updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	rows := make([]analytics.ProgressRow, 0, len(models))
	for i := range models {
		row := analytics.ProgressRow{Progress: models[i].toProgress()}
		if t := models[i].Task; t != nil {
			row.CourseID = t.CourseID
			row.TaskType = course.TaskType(t.Type)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *AnalyticsStore) CourseProgress(ctx context.Context, courseID string) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(courseID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(s.db.WithContext(ctx).Where("learning_tasks.course_id = ?", courseID))
}

func (s *AnalyticsStore) UserProgress(ctx context.Context, userID string) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(userID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(s.db.WithContext(ctx).Where("task_progress.user_id = ?", userID))
}

// attemptRows loads submitted attempts with their quiz and course.
func (s *AnalyticsStore) attemptRows(q *gorm.DB) ([]analytics.AttemptRow, error) {
	var models []attemptModel
	err := q.Preload("Quiz.Course").
		Joins("JOIN learning_tasks ON learning_tasks.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.is_submitted = ?", true).
		Order("quiz_attempts.submission_date DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	rows := make([]analytics.AttemptRow, 0, len(models))
	for i := range models {
		row := analytics.AttemptRow{Attempt: models[i].toAttempt()}
		if qz := models[i].Quiz; qz != nil {
			row.CourseID = qz.CourseID
			if qz.Course != nil {
				row.CourseTitle = qz.Course.Title
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *AnalyticsStore) CourseAttempts(ctx context.Context, courseID string) ([]analytics.AttemptRow, error) {
	if !core.IsValidID(courseID) {
		return []analytics.AttemptRow{}, nil
	}
	return s.attemptRows(s.db.WithContext(ctx).Where("learning_tasks.course_id = ?", courseID))
}

type responseCount struct {
	AttemptID string
	Total     int
	Correct   int
}

func (s *AnalyticsStore) UserAttempts(ctx context.Context, userID string) ([]analytics.AttemptRow, error) {
	if !core.IsValidID(userID) {
		return []analytics.AttemptRow{}, nil
	}
	rows, err := s.attemptRows(s.db.WithContext(ctx).Where("quiz_attempts.user_id = ?", userID))
	if err != nil || len(rows) == 0 {
		return rows, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var counts []responseCount
	err = s.db.WithContext(ctx).Model(&responseModel{}).
		Select("quiz_attempt_id AS attempt_id, COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct").
		Where("quiz_attempt_id IN ?", ids).
		Group("quiz_attempt_id").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, "counting responses")
	}
	byAttempt := make(map[string]responseCount, len(counts))
	for _, c := range counts {
		byAttempt[c.AttemptID] = c
	}
	for i := range rows {
		c := byAttempt[rows[i].ID]
		rows[i].TotalQuestions = c.Total
		rows[i].CorrectAnswers = c.Correct
	}
	return rows, nil
}

func (s *AnalyticsStore) CourseQuestionStats(ctx context.Context, courseID string) ([]analytics.QuestionStat, error) {
	if !core.IsValidID(courseID) {
		return []analytics.QuestionStat{}, nil
	}
	var stats []analytics.QuestionStat
	err := s.db.WithContext(ctx).Raw(`
		SELECT q.id AS question_id, q.text AS text, q.quiz_id AS quiz_id, t.title AS quiz_title,
			COUNT(r.id) AS total_responses,
			COALESCE(SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END), 0) AS correct_responses
		FROM quiz_questions q
		JOIN learning_tasks t ON t.id = q.quiz_id
		LEFT JOIN quiz_responses r ON r.question_id = q.id
		WHERE t.course_id = ?
		GROUP BY q.id, q.text, q.quiz_id, t.title, q."order"
		ORDER BY q.quiz_id, q."order"`, courseID).
		Scan(&stats).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying question stats")
	}
	return stats, nil
}

func (s *AnalyticsStore) UserResponses(ctx context.Context, userID string) ([]analytics.ResponseRow, error) {
	if !core.IsValidID(userID) {
		return []analytics.ResponseRow{}, nil
	}
	var rows []analytics.ResponseRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT r.question_id AS question_id, q.category AS category, q.tag AS tag, r.is_correct AS is_correct
		FROM quiz_responses r
		JOIN quiz_attempts a ON a.id = r.quiz_attempt_id
		JOIN quiz_questions q ON q.id = r.question_id
		WHERE a.user_id = ? AND a.is_submitted = ?
		ORDER BY r.created_at`, userID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	return rows, nil
}

func (s *AnalyticsStore) InstructorStats(ctx context.Context, instructorID string) (int, int, error) {
	if !core.IsValidID(instructorID) {
		return 0, 0, nil
	}
	var created, enrolled int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&courseModel{}).Where("creator_id = ?", instructorID).Count(&created).Error; err != nil {
		return 0, 0, errors.Wrap(err, "counting courses")
	}
	err := db.Model(&enrollmentModel{}).
		Joins("JOIN courses ON courses.id = course_enrollments.course_id").
		Where("courses.creator_id = ?", instructorID).
		Distinct("course_enrollments.user_id").
		Count(&enrolled).Error
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting students")
	}
	return int(created), int(enrolled), nil
}

func (s *AnalyticsStore) InstructorActivity(ctx context.Context, instructorID string, limit int) ([]analytics.ProgressRow, error) {
	if !core.IsValidID(instructorID) {
		return []analytics.ProgressRow{}, nil
	}
	return s.progressRows(s.db.WithContext(ctx).
		Joins("JOIN courses ON courses.id = learning_tasks.course_id").
		Where("courses.creator_id = ?", instructorID).
		Limit(limit))
}

func (s *AnalyticsStore) PlatformStats(ctx context.Context) (analytics.PlatformStats, error) {
	var row struct {
		Total     int
		Completed int
		TimeSpent int64
	}
	err := s.db.WithContext(ctx).Model(&progressModel{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed, COALESCE(SUM(time_spent), 0) AS time_spent",
			string(progress.StatusCompleted)).
		Scan(&row).Error
	if err != nil {
		return analytics.PlatformStats{}, errors.Wrap(err, "aggregating progress")
	}

	var avg struct{ Score float64 }
	err = s.db.WithContext(ctx).Model(&attemptModel{}).
		Select("COALESCE(AVG(score), 0) AS score").
		Where("is_submitted = ?", true).
		Scan(&avg).Error
	if err != nil {
		return analytics.PlatformStats{}, errors.Wrap(err, "averaging scores")
	}

	return analytics.PlatformStats{
		TotalTasks:     row.Total,
		CompletedTasks: row.Completed,
		AverageScore:   avg.Score,
		TotalTimeSpent: row.TimeSpent,
	}, nil
}
