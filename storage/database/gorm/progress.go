package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/storage/database/dberr"
)

var progressOrderingColumns = map[string]string{
	"status":          "task_progress.status",
	"start_date":      "task_progress.start_date",
	"completion_date": "task_progress.completion_date",
	"time_spent":      "task_progress.time_spent",
	"created_at":      "task_progress.created_at",
	"updated_at":      "task_progress.updated_at",
}

type ProgressRepository struct {
	db *gorm.DB
}

var _ progress.Repository = (*ProgressRepository)(nil)

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (repo *ProgressRepository) Create(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	p.ID = core.NewID()
	m := toProgressModel(p)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return progress.Progress{}, progress.ErrAlreadyExists
		}
		return progress.Progress{}, errors.Wrap(err, "inserting progress")
	}
	created := m.toProgress()
	created.TaskTitle = p.TaskTitle
	return created, nil
}

func (repo *ProgressRepository) Get(ctx context.Context, id string) (progress.Progress, error) {
	if !core.IsValidID(id) {
		return progress.Progress{}, progress.ErrNotFound
	}
	var m progressModel
	if err := repo.db.WithContext(ctx).Preload("Task").Where("id = ?", id).Take(&m).Error; err != nil {
		return progress.Progress{}, trapNotFound(err, progress.ErrNotFound, "finding progress")
	}
	return m.toProgress(), nil
}

func (repo *ProgressRepository) Query(ctx context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error) {
	q := repo.db.WithContext(ctx).
		Preload("Task").
		Joins("JOIN learning_tasks ON learning_tasks.id = task_progress.task_id")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where("LOWER(learning_tasks.title) LIKE ?", likePattern(filter.Search))
		}
		if filter.UserID != "" {
			q = q.Where("task_progress.user_id = ?", filter.UserID)
		}
		if filter.CourseID != "" {
			q = q.Where("learning_tasks.course_id = ?", filter.CourseID)
		}
		if filter.TaskID != "" {
			q = q.Where("task_progress.task_id = ?", filter.TaskID)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("task_progress.status IN ?", filter.Statuses)
		}
	}

	var models []progressModel
	err := q.Order(core.OrderingClause(ordering, progressOrderingColumns, "task_progress.updated_at DESC")).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	rows := make([]progress.Progress, 0, len(models))
	for i := range models {
		rows = append(rows, models[i].toProgress())
	}
	return rows, nil
}

func (repo *ProgressRepository) Update(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	m := toProgressModel(p)
	found, err := updateAll(ctx, repo.db, m)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	}
	if !found {
		return progress.Progress{}, progress.ErrNotFound
	}
	updated := m.toProgress()
	updated.TaskTitle = p.TaskTitle
	return updated, nil
}
