package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

const (
	attemptSelect = `
	SELECT a.id, a.user_id, a.quiz_id, t.title AS quiz_title, a.start_date, a.submission_date, a.is_submitted, a.score
	FROM quiz_attempts a
	JOIN learning_tasks t ON t.id = a.quiz_id`

	responseColumns = `id, quiz_attempt_id, question_id, selected_option_id, is_correct, created_at`
)

var attemptOrderingColumns = map[string]string{
	"start_date":      "a.start_date",
	"submission_date": "a.submission_date",
	"score":           "a.score",
}

type QuizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (repo *QuizRepository) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	if !core.IsValidID(userID) || !core.IsValidID(quizID) {
		return 0, nil
	}
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM quiz_attempts WHERE user_id = ? AND quiz_id = ?", userID, quizID)
	if err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return count, nil
}

func (repo *QuizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	att.ID = core.NewID()
	row := toAttemptRow(att)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO quiz_attempts (id, user_id, quiz_id, start_date, submission_date, is_submitted, score)
		VALUES (:id, :user_id, :quiz_id, :start_date, :submission_date, :is_submitted, :score)`, row)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return row.toAttempt(), nil
}

func (repo *QuizRepository) GetAttempt(ctx context.Context, id string) (quiz.Attempt, error) {
	if !core.IsValidID(id) {
		return quiz.Attempt{}, quiz.ErrNotFound
	}
	var row attemptRow
	if err := get(ctx, repo.db, &row, attemptSelect+" WHERE a.id = ?", id); err != nil {
		return quiz.Attempt{}, trapNotFound(err, quiz.ErrNotFound, "finding attempt")
	}
	return row.toAttempt(), nil
}

func (repo *QuizRepository) QueryAttempts(ctx context.Context, filter *quiz.QueryFilter, ordering []core.DBOrdering) ([]quiz.Attempt, error) {
	var c conds
	if filter != nil {
		if filter.Search != "" {
			c.add("LOWER(t.title) LIKE ?", likePattern(filter.Search))
		}
		for _, f := range []struct{ col, id string }{
			{"a.user_id", filter.UserID},
			{"a.quiz_id", filter.QuizID},
			{"t.course_id", filter.CourseID},
		} {
			if f.id == "" {
				continue
			}
			if !core.IsValidID(f.id) {
				return []quiz.Attempt{}, nil
			}
			c.add(f.col+" = ?", f.id)
		}
	}

	query := attemptSelect + c.where() +
		" ORDER BY " + core.OrderingClause(ordering, attemptOrderingColumns, "a.start_date DESC")
	var rows []attemptRow
	if err := selectIn(ctx, repo.db, &rows, query, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.toAttempt())
	}
	return attempts, nil
}

// SubmitAttempt flips the attempt to submitted only if it was not, then inserts the responses.
func (repo *QuizRepository) SubmitAttempt(ctx context.Context, att quiz.Attempt, responses []quiz.Response) (quiz.Attempt, error) {
	row := toAttemptRow(att)
	row.IsSubmitted = true

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := exec(ctx, tx,
			"UPDATE quiz_attempts SET is_submitted = ?, score = ?, submission_date = ? WHERE id = ? AND is_submitted = ?",
			true, row.Score, row.SubmissionDate, row.ID, false)
		if err != nil {
			return errors.Wrap(err, "submitting attempt")
		}
		if found, err := affected(res); err != nil {
			return errors.Wrap(err, "submitting attempt")
		} else if !found {
			return quiz.ErrAlreadySubmitted
		}

		if len(responses) == 0 {
			return nil
		}
		rows := make([]responseRow, 0, len(responses))
		for _, r := range responses {
			r.ID = core.NewID()
			r.AttemptID = att.ID
			rows = append(rows, toResponseRow(r))
		}
		_, err = sqlx.NamedExecContext(ctx, tx, `
			INSERT INTO quiz_responses (`+responseColumns+`)
			VALUES (:id, :quiz_attempt_id, :question_id, :selected_option_id, :is_correct, :created_at)`, rows)
		return errors.Wrap(err, "inserting responses")
	})
	if err != nil {
		return quiz.Attempt{}, err
	}
	return row.toAttempt(), nil
}

func (repo *QuizRepository) QueryResponses(ctx context.Context, attemptID string) ([]quiz.Response, error) {
	if !core.IsValidID(attemptID) {
		return []quiz.Response{}, nil
	}
	var rows []responseRow
	err := selectIn(ctx, repo.db, &rows,
		"SELECT "+responseColumns+" FROM quiz_responses WHERE quiz_attempt_id = ? ORDER BY created_at ASC, id ASC", attemptID)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	responses := make([]quiz.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.toResponse())
	}
	return responses, nil
}
