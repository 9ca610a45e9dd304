package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

var attemptOrderingColumns = map[string]string{
	"start_date":      "quiz_attempts.start_date",
	"submission_date": "quiz_attempts.submission_date",
	"score":           "quiz_attempts.score",
}

type QuizRepository struct {
	db *gorm.DB
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (repo *QuizRepository) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&attemptModel{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return int(count), nil
}

func (repo *QuizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	att.ID = core.NewID()
	m := toAttemptModel(att)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	created := m.toAttempt()
	created.QuizTitle = att.QuizTitle
	return created, nil
}

func (repo *QuizRepository) GetAttempt(ctx context.Context, id string) (quiz.Attempt, error) {
	if !core.IsValidID(id) {
		return quiz.Attempt{}, quiz.ErrNotFound
	}
	var m attemptModel
	if err := repo.db.WithContext(ctx).Preload("Quiz").Where("id = ?", id).Take(&m).Error; err != nil {
		return quiz.Attempt{}, trapNotFound(err, quiz.ErrNotFound, "finding attempt")
	}
	return m.toAttempt(), nil
}

func (repo *QuizRepository) QueryAttempts(ctx context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering) ([]quiz.Attempt, error) {
	q := repo.db.WithContext(ctx).
		Preload("Quiz").
		Joins("JOIN learning_tasks ON learning_tasks.id = quiz_attempts.quiz_id")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where("LOWER(learning_tasks.title) LIKE ?", likePattern(filter.Search))
		}
		if filter.UserID != "" {
			q = q.Where("quiz_attempts.user_id = ?", filter.UserID)
		}
		if filter.QuizID != "" {
			q = q.Where("quiz_attempts.quiz_id = ?", filter.QuizID)
		}
		if filter.CourseID != "" {
			q = q.Where("learning_tasks.course_id = ?", filter.CourseID)
		}
	}

	var models []attemptModel
	err := q.Order(core.OrderingClause(ordering, attemptOrderingColumns, "quiz_attempts.start_date DESC")).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]quiz.Attempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, models[i].toAttempt())
	}
	return attempts, nil
}

// SubmitAttempt flips the attempt to submitted only if it was not, then inserts the responses.
func (repo *QuizRepository) SubmitAttempt(ctx context.Context, att quiz.Attempt, responses []quiz.Response) (quiz.Attempt, error) {
	m := toAttemptModel(att)
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&attemptModel{}).
			Where("id = ? AND is_submitted = ?", att.ID, false).
			Updates(map[string]interface{}{
				"is_submitted":    true,
				"score":           m.Score,
				"submission_date": m.SubmissionDate,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "submitting attempt")
		}
		if res.RowsAffected == 0 {
			return quiz.ErrAlreadySubmitted
		}

		if len(responses) == 0 {
			return nil
		}
		rows := make([]*responseModel, 0, len(responses))
		for _, r := range responses {
			r.ID = core.NewID()
			r.AttemptID = att.ID
			rows = append(rows, toResponseModel(r))
		}
		return errors.Wrap(tx.Omit("Attempt", "Question", "SelectedOption").Create(rows).Error, "inserting responses")
	})
	if err != nil {
		return quiz.Attempt{}, err
	}

	submitted := m.toAttempt()
	submitted.QuizTitle = att.QuizTitle
	return submitted, nil
}

func (repo *QuizRepository) QueryResponses(ctx context.Context, attemptID string) ([]quiz.Response, error) {
	if !core.IsValidID(attemptID) {
		return []quiz.Response{}, nil
	}
	var models []responseModel
	err := repo.db.WithContext(ctx).
		Where("quiz_attempt_id = ?", attemptID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	responses := make([]quiz.Response, 0, len(models))
	for i := range models {
		responses = append(responses, models[i].toResponse())
	}
	return responses, nil
}
