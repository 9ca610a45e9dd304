package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/storage/database/dberr"
)

const enrollmentSelect = `
	SELECT e.id, e.user_id, e.course_id, c.title AS course_title, e.status, e.enrollment_date, e.updated_at
	FROM course_enrollments e
	JOIN courses c ON c.id = e.course_id`

var enrollmentOrderingColumns = map[string]string{
	"enrollment_date": "e.enrollment_date",
	"updated_at":      "e.updated_at",
	"status":          "e.status",
}

type EnrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*EnrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (repo *EnrollmentRepository) Create(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = core.NewID()
	row := toEnrollmentRow(enr)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO course_enrollments (id, user_id, course_id, status, enrollment_date, updated_at)
		VALUES (:id, :user_id, :course_id, :status, :enrollment_date, :updated_at)`, row)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *EnrollmentRepository) Get(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	var c conds
	switch {
	case filter.ID != "":
		if !core.IsValidID(filter.ID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		c.add("e.id = ?", filter.ID)
	case filter.UserID != "" && filter.CourseID != "":
		if !core.IsValidID(filter.UserID) || !core.IsValidID(filter.CourseID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		c.add("e.user_id = ?", filter.UserID)
		c.add("e.course_id = ?", filter.CourseID)
	default:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	var row enrollmentRow
	if err := get(ctx, repo.db, &row, enrollmentSelect+c.where(), c.args...); err != nil {
		return enrollment.Enrollment{}, trapNotFound(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *EnrollmentRepository) Query(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	var c conds
	if filter != nil {
		if filter.Search != "" {
			c.add("LOWER(c.title) LIKE ?", likePattern(filter.Search))
		}
		if filter.UserID != "" {
			if !core.IsValidID(filter.UserID) {
				return []enrollment.Enrollment{}, nil
			}
			c.add("e.user_id = ?", filter.UserID)
		}
		if filter.CourseID != "" {
			if !core.IsValidID(filter.CourseID) {
				return []enrollment.Enrollment{}, nil
			}
			c.add("e.course_id = ?", filter.CourseID)
		}
		if len(filter.Statuses) > 0 {
			c.add("e.status IN (?)", filter.Statuses)
		}
	}

	query := enrollmentSelect + c.where() +
		" ORDER BY " + core.OrderingClause(ordering, enrollmentOrderingColumns, "e.enrollment_date DESC")
	var rows []enrollmentRow
	if err := selectIn(ctx, repo.db, &rows, query, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments, nil
}

func (repo *EnrollmentRepository) Update(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	row := toEnrollmentRow(enr)
	res, err := sqlx.NamedExecContext(ctx, repo.db, `
		UPDATE course_enrollments SET user_id = :user_id, course_id = :course_id, status = :status,
			enrollment_date = :enrollment_date, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if found, err := affected(res); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	} else if !found {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return row.toEnrollment(), nil
}

func (repo *EnrollmentRepository) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	if !core.IsValidID(userID) || !core.IsValidID(courseID) {
		return false, nil
	}
	var count int
	err := get(ctx, repo.db, &count,
		"SELECT COUNT(*) FROM course_enrollments WHERE user_id = ? AND course_id = ? AND status = ?",
		userID, courseID, string(enrollment.StatusActive))
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return count > 0, nil
}
