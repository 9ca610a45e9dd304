package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/storage/database/dberr"
)

const progressSelect = `
	SELECT p.id, p.user_id, p.task_id, t.title AS task_title, p.status, p.start_date, p.completion_date,
		p.time_spent, p.created_at, p.updated_at
	FROM task_progress p
	JOIN learning_tasks t ON t.id = p.task_id`

var progressOrderingColumns = map[string]string{
	"status":          "p.status",
	"start_date":      "p.start_date",
	"completion_date": "p.completion_date",
	"time_spent":      "p.time_spent",
	"created_at":      "p.created_at",
	"updated_at":      "p.updated_at",
}

type ProgressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*ProgressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (repo *ProgressRepository) Create(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	p.ID = core.NewID()
	row := toProgressRow(p)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO task_progress (id, user_id, task_id, status, start_date, completion_date, time_spent, created_at, updated_at)
		VALUES (:id, :user_id, :task_id, :status, :start_date, :completion_date, :time_spent, :created_at, :updated_at)`, row)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return progress.Progress{}, progress.ErrAlreadyExists
		}
		return progress.Progress{}, errors.Wrap(err, "inserting progress")
	}
	return row.toProgress(), nil
}

func (repo *ProgressRepository) Get(ctx context.Context, id string) (progress.Progress, error) {
	if !core.IsValidID(id) {
		return progress.Progress{}, progress.ErrNotFound
	}
	var row progressRow
	if err := get(ctx, repo.db, &row, progressSelect+" WHERE p.id = ?", id); err != nil {
		return progress.Progress{}, trapNotFound(err, progress.ErrNotFound, "finding progress")
	}
	return row.toProgress(), nil
}

func (repo *ProgressRepository) Query(ctx context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error) {
	var c conds
	if filter != nil {
		if filter.Search != "" {
			c.add("LOWER(t.title) LIKE ?", likePattern(filter.Search))
		}
		for _, f := range []struct{ col, id string }{
			{"p.user_id", filter.UserID},
			{"t.course_id", filter.CourseID},
			{"p.task_id", filter.TaskID},
		} {
			if f.id == "" {
				continue
			}
			if !core.IsValidID(f.id) {
				return []progress.Progress{}, nil
			}
			c.add(f.col+" = ?", f.id)
		}
		if len(filter.Statuses) > 0 {
			c.add("p.status IN (?)", filter.Statuses)
		}
	}

	query := progressSelect + c.where() +
		" ORDER BY " + core.OrderingClause(ordering, progressOrderingColumns, "p.updated_at DESC")
	var rows []progressRow
	if err := selectIn(ctx, repo.db, &rows, query, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	result := make([]progress.Progress, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toProgress())
	}
	return result, nil
}

func (repo *ProgressRepository) Update(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	row := toProgressRow(p)
	res, err := sqlx.NamedExecContext(ctx, repo.db, `
		UPDATE task_progress SET user_id = :user_id, task_id = :task_id, status = :status, start_date = :start_date,
			completion_date = :completion_date, time_spent = :time_spent, created_at = :created_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	}
	if found, err := affected(res); err != nil {
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	} else if !found {
		return progress.Progress{}, progress.ErrNotFound
	}
	return row.toProgress(), nil
}
