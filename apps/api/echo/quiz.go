package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

type quizApi struct {
	auth     *authenticator
	svc      quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := quizApi{auth: auth, svc: deps.QuizSvc, validate: deps.Validate}

	qg := g.Group("/quiz-attempts", jwt)
	qg.GET("", api.query)
	qg.POST("", api.start)
	qg.GET("/:id", api.retrieve)
	qg.POST("/:id/submit_responses", api.submitResponses)
	qg.GET("/:id/responses", api.responses)
}

func (api *quizApi) query(ctx echo.Context) error {
	filter := new(quiz.QueryFilter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []quiz.Attempt{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	attempts, err := api.svc.Query(ctx.Request().Context(), principal, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying quiz attempts")
	}
	if attempts == nil {
		attempts = []quiz.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *quizApi) start(ctx echo.Context) error {
	var data quiz.NewAttempt
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.StartAttempt(ctx.Request().Context(), principal, data.QuizID)
	if err != nil {
		return errors.Wrap(err, "starting quiz attempt")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *quizApi) get(ctx echo.Context) (user.User, quiz.Attempt, error) {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return user.User{}, quiz.Attempt{}, errors.Wrap(err, "getting context user")
	}
	att, err := api.svc.Get(ctx.Request().Context(), principal, ctx.Param("id"))
	return principal, att, errors.Wrap(err, "finding quiz attempt")
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	_, att, err := api.get(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *quizApi) submitResponses(ctx echo.Context) error {
	principal, att, err := api.get(ctx)
	if err != nil {
		return err
	}
	var data quiz.Submission
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	att, err = api.svc.SubmitResponses(ctx.Request().Context(), principal, att, data.Responses)
	if err != nil {
		return errors.Wrap(err, "submitting responses")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *quizApi) responses(ctx echo.Context) error {
	principal, att, err := api.get(ctx)
	if err != nil {
		return err
	}
	responses, err := api.svc.Responses(ctx.Request().Context(), principal, att)
	if err != nil {
		return errors.Wrap(err, "querying responses")
	}
	if responses == nil {
		responses = []quiz.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}
