package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/storage/database/dberr"
)

var enrollmentOrderingColumns = map[string]string{
	"enrollment_date": "course_enrollments.enrollment_date",
	"updated_at":      "course_enrollments.updated_at",
	"status":          "course_enrollments.status",
}

type EnrollmentRepository struct {
	db *gorm.DB
}

var _ enrollment.Repository = (*EnrollmentRepository)(nil)

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (repo *EnrollmentRepository) Create(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = core.NewID()
	m := toEnrollmentModel(enr)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	created := m.toEnrollment()
	created.CourseTitle = enr.CourseTitle
	return created, nil
}

func (repo *EnrollmentRepository) Get(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	q := repo.db.WithContext(ctx).Preload("Course")
	switch {
	case filter.ID != "":
		if !core.IsValidID(filter.ID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.UserID != "" && filter.CourseID != "":
		if !core.IsValidID(filter.UserID) || !core.IsValidID(filter.CourseID) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		q = q.Where("user_id = ? AND course_id = ?", filter.UserID, filter.CourseID)
	default:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	var m enrollmentModel
	if err := q.Take(&m).Error; err != nil {
		return enrollment.Enrollment{}, trapNotFound(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return m.toEnrollment(), nil
}

func (repo *EnrollmentRepository) Query(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	q := repo.db.WithContext(ctx).
		Preload("Course").
		Joins("JOIN courses ON courses.id = course_enrollments.course_id")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where("LOWER(courses.title) LIKE ?", likePattern(filter.Search))
		}
		if filter.UserID != "" {
			q = q.Where("course_enrollments.user_id = ?", filter.UserID)
		}
		if filter.CourseID != "" {
			q = q.Where("course_enrollments.course_id = ?", filter.CourseID)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("course_enrollments.status IN ?", filter.Statuses)
		}
	}

	var models []enrollmentModel
	err := q.Order(core.OrderingClause(ordering, enrollmentOrderingColumns, "course_enrollments.enrollment_date DESC")).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(models))
	for i := range models {
		enrollments = append(enrollments, models[i].toEnrollment())
	}
	return enrollments, nil
}

func (repo *EnrollmentRepository) Update(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	m := toEnrollmentModel(enr)
	found, err := updateAll(ctx, repo.db, m)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if !found {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	updated := m.toEnrollment()
	updated.CourseTitle = enr.CourseTitle
	return updated, nil
}

func (repo *EnrollmentRepository) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	if !core.IsValidID(userID) || !core.IsValidID(courseID) {
		return false, nil
	}
	var count int64
	err := repo.db.WithContext(ctx).Model(&enrollmentModel{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, enrollment.StatusActive).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return count > 0, nil
}
