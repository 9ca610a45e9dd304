// Package permission holds the predicates deciding whether a principal may access a resource.
package permission

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// IsInstructorOrAdmin allows instructors, admins and staff.
func IsInstructorOrAdmin(principal user.User) bool {
	return principal.IsElevated()
}

// IsOwnerOrElevated allows the owner of a resource and elevated principals.
func IsOwnerOrElevated(principal user.User, ownerID string) bool {
	return principal.ID == ownerID || principal.IsElevated()
}

// IsCreatorOrAdmin allows the creator of a course (or its content) and admins.
func IsCreatorOrAdmin(principal user.User, creatorID string) bool {
	return principal.ID == creatorID || principal.IsAdmin()
}

// EnrollmentFinder reports whether a user holds an active enrollment in a course.
type EnrollmentFinder interface {
	HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error)
}

type Checker struct {
	enrollments EnrollmentFinder
}

func NewChecker(enrollments EnrollmentFinder) *Checker {
	return &Checker{enrollments: enrollments}
}

// IsEnrolledInCourse allows elevated principals unconditionally,
// others only when they hold an active enrollment in the course.
func (c *Checker) IsEnrolledInCourse(ctx context.Context, principal user.User, courseID string) (bool, error) {
	if principal.IsElevated() {
		return true, nil
	}
	ok, err := c.enrollments.HasActiveEnrollment(ctx, principal.ID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return ok, nil
}

// RequireEnrolled returns core.ErrPermissionDenied unless IsEnrolledInCourse allows the principal.
func (c *Checker) RequireEnrolled(ctx context.Context, principal user.User, courseID string) error {
	ok, err := c.IsEnrolledInCourse(ctx, principal, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}
