package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

var courseOrderingColumns = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type CourseRepository struct {
	db *gorm.DB
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (repo *CourseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = core.NewID()
	m := toCourseModel(crs)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return m.toCourse(), nil
}

func (repo *CourseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !core.IsValidID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var m courseModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return course.Course{}, trapNotFound(err, course.ErrNotFound, "finding course")
	}
	return m.toCourse(), nil
}

func (repo *CourseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	q := repo.db.WithContext(ctx).Model(&courseModel{})
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
		}
		if filter.CreatorID != "" {
			q = q.Where("creator_id = ?", filter.CreatorID)
		}
	}

	var models []courseModel
	if err := q.Order(core.OrderingClause(ordering, courseOrderingColumns, "created_at DESC")).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(models))
	for i := range models {
		courses = append(courses, models[i].toCourse())
	}
	return courses, nil
}

func (repo *CourseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	m := toCourseModel(crs)
	found, err := updateAll(ctx, repo.db, m)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if !found {
		return course.Course{}, course.ErrNotFound
	}
	return m.toCourse(), nil
}

func (repo *CourseRepository) DeleteCourse(ctx context.Context, id string) error {
	found, err := deleteByID(ctx, repo.db, &courseModel{}, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if !found {
		return course.ErrNotFound
	}
	return nil
}

func (repo *CourseRepository) CreateTask(ctx context.Context, task course.Task) (course.Task, error) {
	task.ID = core.NewID()
	m := toTaskModel(task)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return course.Task{}, errors.Wrap(err, "inserting task")
	}
	return m.toTask(), nil
}

func (repo *CourseRepository) GetTask(ctx context.Context, id string) (course.Task, error) {
	if !core.IsValidID(id) {
		return course.Task{}, course.ErrTaskNotFound
	}
	var m taskModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return course.Task{}, trapNotFound(err, course.ErrTaskNotFound, "finding task")
	}
	return m.toTask(), nil
}

func (repo *CourseRepository) QueryTasks(ctx context.Context, courseID string) ([]course.Task, error) {
	if !core.IsValidID(courseID) {
		return []course.Task{}, nil
	}
	var models []taskModel
	err := repo.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(`"order" ASC, created_at ASC`).
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

func (repo *CourseRepository) UpdateTask(ctx context.Context, task course.Task) (course.Task, error) {
	m := toTaskModel(task)
	found, err := updateAll(ctx, repo.db, m)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "updating task")
	}
	if !found {
		return course.Task{}, course.ErrTaskNotFound
	}
	return m.toTask(), nil
}

func (repo *CourseRepository) DeleteTask(ctx context.Context, id string) error {
	found, err := deleteByID(ctx, repo.db, &taskModel{}, id)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if !found {
		return course.ErrTaskNotFound
	}
	return nil
}

func (repo *CourseRepository) CreateQuestion(ctx context.Context, q course.Question) (course.Question, error) {
	q.ID = core.NewID()
	for i := range q.Options {
		q.Options[i].ID = core.NewID()
		q.Options[i].QuestionID = q.ID
	}
	m := toQuestionModel(q)
	// options are inserted along with the question, in one transaction
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return course.Question{}, errors.Wrap(err, "inserting question")
	}
	return m.toQuestion(), nil
}

func (repo *CourseRepository) GetQuestion(ctx context.Context, id string) (course.Question, error) {
	if !core.IsValidID(id) {
		return course.Question{}, course.ErrQuestionNotFound
	}
	var m questionModel
	err := repo.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id = ?", id).
		Take(&m).Error
	if err != nil {
		return course.Question{}, trapNotFound(err, course.ErrQuestionNotFound, "finding question")
	}
	return m.toQuestion(), nil
}

func (repo *CourseRepository) QueryQuestions(ctx context.Context, quizID string) ([]course.Question, error) {
	if !core.IsValidID(quizID) {
		return []course.Question{}, nil
	}
	var models []questionModel
	err := repo.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("quiz_id = ?", quizID).
		Order(`"order" ASC, id ASC`).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]course.Question, 0, len(models))
	for i := range models {
		questions = append(questions, models[i].toQuestion())
	}
	return questions, nil
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" ASC, id ASC`)
}
