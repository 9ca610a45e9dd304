package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
)

type courseApi struct {
	auth          *authenticator
	svc           course.Service
	enrollmentSvc enrollment.Service
	progressSvc   progress.Service
	validate      *validator.Validate
}

func newCourseApi(auth *authenticator, deps ServerDeps) *courseApi {
	return &courseApi{
		auth:          auth,
		svc:           deps.CourseSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		progressSvc:   deps.ProgressSvc,
		validate:      deps.Validate,
	}
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := newCourseApi(auth, deps)

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, elevatedMiddleware(auth))
	cg.GET("/instructor", api.instructorCourses, elevatedMiddleware(auth))

	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/details", api.details)
	cg.POST("/:id/enroll", api.enroll)
	cg.GET("/:id/tasks", api.tasks)
	cg.GET("/:id/progress", api.progress, enrolledMiddleware(auth, deps.EnrollmentSvc))
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := newCourseApi(auth, deps)

	tg := g.Group("/tasks", jwt)
	tg.POST("", api.createTask, elevatedMiddleware(auth))
	tg.GET("/:id", api.retrieveTask)
	tg.PUT("/:id", api.updateTask)
	tg.DELETE("/:id", api.destroyTask)
	tg.GET("/:id/questions", api.questions)
	tg.POST("/:id/questions", api.addQuestion)
}

// Courses

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) instructorCourses(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.InstructorCourses(ctx.Request().Context(), principal)
	if err != nil {
		return errors.Wrap(err, "querying instructor courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	var data course.UpdateCourse
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err = api.svc.Update(ctx.Request().Context(), principal, crs, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), principal, crs); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) details(ctx echo.Context) error {
	details, err := api.svc.Details(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading course details")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.enrollmentSvc.Enroll(ctx.Request().Context(), principal, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, DetailResponse{Detail: "successfully enrolled in the course"})
}

func (api *courseApi) tasks(ctx echo.Context) error {
	tasks, err := api.svc.CourseTasks(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *courseApi) progress(ctx echo.Context) error {
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rows, err := api.progressSvc.CourseProgress(ctx.Request().Context(), principal, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course progress")
	}
	if rows == nil {
		rows = []progress.Progress{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// Tasks

func (api *courseApi) createTask(ctx echo.Context) error {
	var data course.NewTask
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	task, err := api.svc.CreateTask(ctx.Request().Context(), principal, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *courseApi) retrieveTask(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *courseApi) updateTask(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	var data course.UpdateTask
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err = data.Validate(task, api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	task, err = api.svc.UpdateTask(ctx.Request().Context(), principal, task, data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *courseApi) destroyTask(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteTask(ctx.Request().Context(), principal, task); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) questions(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	questions, err := api.svc.Questions(ctx.Request().Context(), principal, task)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []course.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *courseApi) addQuestion(ctx echo.Context) error {
	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	var data course.NewQuestion
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	principal, err := api.auth.principal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), principal, task, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}
