package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const (
	courseColumns   = `id, title, description, creator_id, learning_objectives, prerequisites, created_at, updated_at`
	taskColumns     = `id, course_id, title, description, type, "order", max_attempts, created_at, updated_at`
	questionColumns = `id, quiz_id, text, category, tag, "order"`
	optionColumns   = `id, question_id, text, is_correct, "order"`
)

var courseOrderingColumns = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type CourseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (repo *CourseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = core.NewID()
	row := toCourseRow(crs)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :title, :description, :creator_id, :learning_objectives, :prerequisites, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo *CourseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !core.IsValidID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := get(ctx, repo.db, &row, "SELECT "+courseColumns+" FROM courses WHERE id = ?", id); err != nil {
		return course.Course{}, trapNotFound(err, course.ErrNotFound, "finding course")
	}
	return row.toCourse(), nil
}

func (repo *CourseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var c conds
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			c.add("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
		}
		if filter.CreatorID != "" {
			if !core.IsValidID(filter.CreatorID) {
				return []course.Course{}, nil
			}
			c.add("creator_id = ?", filter.CreatorID)
		}
	}

	query := "SELECT " + courseColumns + " FROM courses" + c.where() +
		" ORDER BY " + core.OrderingClause(ordering, courseOrderingColumns, "created_at DESC")
	var rows []courseRow
	if err := selectIn(ctx, repo.db, &rows, query, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *CourseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := toCourseRow(crs)
	res, err := sqlx.NamedExecContext(ctx, repo.db, `
		UPDATE courses SET title = :title, description = :description, creator_id = :creator_id,
			learning_objectives = :learning_objectives, prerequisites = :prerequisites,
			created_at = :created_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if found, err := affected(res); err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	} else if !found {
		return course.Course{}, course.ErrNotFound
	}
	return row.toCourse(), nil
}

func (repo *CourseRepository) deleteByID(ctx context.Context, table, id string, notFound error) error {
	if !core.IsValidID(id) {
		return notFound
	}
	res, err := exec(ctx, repo.db, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if found, err := affected(res); err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	} else if !found {
		return notFound
	}
	return nil
}

func (repo *CourseRepository) DeleteCourse(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "courses", id, course.ErrNotFound)
}

func (repo *CourseRepository) CreateTask(ctx context.Context, task course.Task) (course.Task, error) {
	task.ID = core.NewID()
	row := toTaskRow(task)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO learning_tasks (`+taskColumns+`)
		VALUES (:id, :course_id, :title, :description, :type, :order, :max_attempts, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "inserting task")
	}
	return row.toTask(), nil
}

func (repo *CourseRepository) GetTask(ctx context.Context, id string) (course.Task, error) {
	if !core.IsValidID(id) {
		return course.Task{}, course.ErrTaskNotFound
	}
	var row taskRow
	if err := get(ctx, repo.db, &row, "SELECT "+taskColumns+" FROM learning_tasks WHERE id = ?", id); err != nil {
		return course.Task{}, trapNotFound(err, course.ErrTaskNotFound, "finding task")
	}
	return row.toTask(), nil
}

func (repo *CourseRepository) QueryTasks(ctx context.Context, courseID string) ([]course.Task, error) {
	return queryTasks(ctx, repo.db, courseID)
}

// queryTasks returns the tasks of the given courses ordered by course then task order.
func queryTasks(ctx context.Context, db sqlx.ExtContext, courseIDs ...string) ([]course.Task, error) {
	courseIDs = validIDs(courseIDs)
	if len(courseIDs) == 0 {
		return []course.Task{}, nil
	}
	var rows []taskRow
	err := selectIn(ctx, db, &rows,
		"SELECT "+taskColumns+` FROM learning_tasks WHERE course_id IN (?) ORDER BY course_id ASC, "order" ASC, created_at ASC`,
		courseIDs)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]course.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toTask())
	}
	return tasks, nil
}

func (repo *CourseRepository) UpdateTask(ctx context.Context, task course.Task) (course.Task, error) {
	row := toTaskRow(task)
	res, err := sqlx.NamedExecContext(ctx, repo.db, `
		UPDATE learning_tasks SET course_id = :course_id, title = :title, description = :description, type = :type,
			"order" = :order, max_attempts = :max_attempts, created_at = :created_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "updating task")
	}
	if found, err := affected(res); err != nil {
		return course.Task{}, errors.Wrap(err, "updating task")
	} else if !found {
		return course.Task{}, course.ErrTaskNotFound
	}
	return row.toTask(), nil
}

func (repo *CourseRepository) DeleteTask(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, "learning_tasks", id, course.ErrTaskNotFound)
}

func (repo *CourseRepository) CreateQuestion(ctx context.Context, q course.Question) (course.Question, error) {
	q.ID = core.NewID()
	qRow := questionRow{ID: q.ID, QuizID: q.QuizID, Text: q.Text, Category: q.Category, Tag: q.Tag, Order: q.Order}
	options := make([]optionRow, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, optionRow{
			ID:         core.NewID(),
			QuestionID: q.ID,
			Text:       opt.Text,
			IsCorrect:  opt.IsCorrect,
			Order:      opt.Order,
		})
	}

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := sqlx.NamedExecContext(ctx, tx, `
			INSERT INTO quiz_questions (`+questionColumns+`)
			VALUES (:id, :quiz_id, :text, :category, :tag, :order)`, qRow)
		if err != nil {
			return errors.Wrap(err, "inserting question")
		}
		if len(options) == 0 {
			return nil
		}
		_, err = sqlx.NamedExecContext(ctx, tx, `
			INSERT INTO quiz_options (`+optionColumns+`)
			VALUES (:id, :question_id, :text, :is_correct, :order)`, options)
		return errors.Wrap(err, "inserting options")
	})
	if err != nil {
		return course.Question{}, err
	}
	return qRow.toQuestion(options), nil
}

func (repo *CourseRepository) GetQuestion(ctx context.Context, id string) (course.Question, error) {
	if !core.IsValidID(id) {
		return course.Question{}, course.ErrQuestionNotFound
	}
	var row questionRow
	if err := get(ctx, repo.db, &row, "SELECT "+questionColumns+" FROM quiz_questions WHERE id = ?", id); err != nil {
		return course.Question{}, trapNotFound(err, course.ErrQuestionNotFound, "finding question")
	}
	questions, err := repo.withOptions(ctx, []questionRow{row})
	if err != nil {
		return course.Question{}, err
	}
	return questions[0], nil
}

func (repo *CourseRepository) QueryQuestions(ctx context.Context, quizID string) ([]course.Question, error) {
	if !core.IsValidID(quizID) {
		return []course.Question{}, nil
	}
	var rows []questionRow
	err := selectIn(ctx, repo.db, &rows,
		"SELECT "+questionColumns+` FROM quiz_questions WHERE quiz_id = ? ORDER BY "order" ASC, id ASC`, quizID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	return repo.withOptions(ctx, rows)
}

// withOptions loads the options of rows in one query, ordered by option order.
func (repo *CourseRepository) withOptions(ctx context.Context, rows []questionRow) ([]course.Question, error) {
	questions := make([]course.Question, 0, len(rows))
	if len(rows) == 0 {
		return questions, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var options []optionRow
	err := selectIn(ctx, repo.db, &options,
		"SELECT "+optionColumns+` FROM quiz_options WHERE question_id IN (?) ORDER BY "order" ASC, id ASC`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying options")
	}
	byQuestion := make(map[string][]optionRow, len(rows))
	for _, opt := range options {
		byQuestion[opt.QuestionID] = append(byQuestion[opt.QuestionID], opt)
	}
	for _, row := range rows {
		questions = append(questions, row.toQuestion(byQuestion[row.ID]))
	}
	return questions, nil
}
