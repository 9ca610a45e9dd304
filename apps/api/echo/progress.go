package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
)

type progressApi struct {
	auth     *authenticator
	svc      progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := progressApi{auth: auth, svc: deps.ProgressSvc, validate: deps.Validate}

	pg := g.Group("/task-progress", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.PATCH("/:id/update_status", api.updateStatus)
}

func (api *progressApi) query(ctx echo.Context) error {
	filter := new(progress.QueryFilter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []progress.Progress{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rows, err := api.svc.Query(ctx.Request().Context(), principal, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying task progress")
	}
	if rows == nil {
		rows = []progress.Progress{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *progressApi) create(ctx echo.Context) error {
	var data progress.NewProgress
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating task progress")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// get loads the progress designated by the :id param along with the principal.
func (api *progressApi) get(ctx echo.Context) (user.User, progress.Progress, error) {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return user.User{}, progress.Progress{}, errors.Wrap(err, "getting context user")
	}
	p, err := api.svc.Get(ctx.Request().Context(), principal, ctx.Param("id"))
	return principal, p, errors.Wrap(err, "finding task progress")
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	_, p, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) update(ctx echo.Context) error {
	principal, p, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data progress.UpdateProgress
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err = api.svc.Update(ctx.Request().Context(), principal, p, data)
	if err != nil {
		return errors.Wrap(err, "updating task progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) updateStatus(ctx echo.Context) error {
	principal, p, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data progress.StatusUpdate
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}

	p, err = api.svc.UpdateStatus(ctx.Request().Context(), principal, p, data.Status)
	if err != nil {
		return errors.Wrap(err, "updating task progress status")
	}
	return ctx.JSON(http.StatusOK, p)
}
