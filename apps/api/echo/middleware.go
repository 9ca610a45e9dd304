package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/permission"
	"github.com/trezcool/elimu/core/user"
)

const (
	contextObjectKey = "object"
	meParam          = "me"
)

// elevatedMiddleware only lets instructors, admins and staff through.
func elevatedMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			principal, err := auth.principal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !permission.IsInstructorOrAdmin(principal) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			principal, err := auth.principal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !principal.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// selfOrElevatedMiddleware resolves the user designated by the :id param ("me" being the principal)
// and stores it under contextObjectKey. Permission is checked before the lookup:
// a forbidden caller gets a 403 whether the target exists or not.
func selfOrElevatedMiddleware(auth *authenticator, svc user.Service, permErr error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			principal, err := auth.principal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			id := ctx.Param("id")
			if id == meParam || id == principal.ID {
				ctx.Set(contextObjectKey, principal)
				return next(ctx)
			}
			if !permission.IsInstructorOrAdmin(principal) {
				return permErr
			}

			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextObjectKey, usr)
			return next(ctx)
		}
	}
}

// enrolledMiddleware requires an active enrollment in the course designated by the :id param.
func enrolledMiddleware(auth *authenticator, svc enrollment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			principal, err := auth.principal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			ok, err := svc.IsEnrolledInCourse(ctx.Request().Context(), principal, ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "checking enrollment")
			}
			if !ok {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func contextUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.New("user object not found in echo.Context")
	}
	return usr, nil
}
