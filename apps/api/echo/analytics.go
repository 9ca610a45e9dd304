package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/analytics"
)

type analyticsApi struct {
	auth *authenticator
	svc  analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := analyticsApi{auth: auth, svc: deps.AnalyticsSvc}

	// route level middlewares: a group on /courses/:id would shadow the course detail routes
	elevated := elevatedMiddleware(auth)
	cg := g.Group("/courses")
	cg.GET("/:id/analytics", api.courseAnalytics, jwt, elevated)
	cg.GET("/:id/student-progress", api.courseStudentProgress, jwt, elevated)
	cg.GET("/:id/task-analytics", api.taskAnalytics, jwt, elevated)

	sg := g.Group("/students/:id", jwt)
	sg.GET("/progress", api.studentProgress,
		selfOrElevatedMiddleware(auth, deps.UserSvc, analytics.ErrStudentProgressPermission))
	sg.GET("/quiz-performance", api.quizPerformance,
		selfOrElevatedMiddleware(auth, deps.UserSvc, analytics.ErrQuizPerformancePermission))

	dg := g.Group("/dashboard", jwt)
	dg.GET("/instructor", api.instructorDashboard)
	dg.GET("/admin", api.adminDashboard)
}

func (api *analyticsApi) courseAnalytics(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	report, err := api.svc.CourseAnalytics(ctx.Request().Context(), principal, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing course analytics")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) courseStudentProgress(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	report, err := api.svc.CourseStudentProgress(ctx.Request().Context(), principal, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing course student progress")
	}
	if report == nil {
		report = []analytics.StudentCourseProgress{}
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) taskAnalytics(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	report, err := api.svc.TaskAnalytics(ctx.Request().Context(), principal, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing task analytics")
	}
	if report == nil {
		report = []analytics.TaskAnalytics{}
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) studentProgress(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	report, err := api.svc.StudentProgress(ctx.Request().Context(), principal, usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing student progress")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) quizPerformance(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	report, err := api.svc.QuizPerformance(ctx.Request().Context(), principal, usr.ID)
	if err != nil {
		return errors.Wrap(err, "computing quiz performance")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) instructorDashboard(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dashboard, err := api.svc.InstructorDashboard(ctx.Request().Context(), principal)
	if err != nil {
		return errors.Wrap(err, "computing instructor dashboard")
	}
	return ctx.JSON(http.StatusOK, dashboard)
}

func (api *analyticsApi) adminDashboard(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	dashboard, err := api.svc.AdminDashboard(ctx.Request().Context(), principal)
	if err != nil {
		return errors.Wrap(err, "computing admin dashboard")
	}
	return ctx.JSON(http.StatusOK, dashboard)
}
