package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"gorm.io/gorm"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	cachesvc "github.com/trezcool/elimu/services/cache"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

const (
	repositorySQLX = "sqlx"
	repositoryGorm = "gorm"

	dbSetUpTimeout = 30 * time.Second
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are the storage implementations selected by conf.Database.Repository.
	Repositories struct {
		dig.Out
		Users       user.Repository
		Courses     course.Repository
		Enrollments enrollment.Repository
		Progress    progress.Repository
		Quizzes     quiz.Repository
		Analytics   analytics.Store
	}

	// Cache is the analytics cache and the function releasing its connection.
	Cache struct {
		dig.Out
		Cache core.Cache
		Close func() error `name:"cacheClose"`
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       user.Service
		CourseSvc     course.Service
		EnrollmentSvc enrollment.Service
		ProgressSvc   progress.Service
		QuizSvc       quiz.Service
		AnalyticsSvc  analytics.Service
	}
)

func newStdLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(newStdLogger("API : "), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(newStdLogger("DB : "), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *gorm.DB {
	setUp := func() (*gorm.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), dbSetUpTimeout)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf, newStdLogger("DB : "))
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db, conf.Database.Engine); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(conf *core.Config, db *gorm.DB) (Repositories, error) {
	switch conf.Database.Repository {
	case repositoryGorm:
		return Repositories{
			Users:       gormrepos.NewUserRepository(db),
			Courses:     gormrepos.NewCourseRepository(db),
			Enrollments: gormrepos.NewEnrollmentRepository(db),
			Progress:    gormrepos.NewProgressRepository(db),
			Quizzes:     gormrepos.NewQuizRepository(db),
			Analytics:   gormrepos.NewAnalyticsStore(db),
		}, nil
	case repositorySQLX, "":
		sdb, err := database.SQLX(db, conf.Database.Engine)
		if err != nil {
			return Repositories{}, err
		}
		return Repositories{
			Users:       sqlxrepos.NewUserRepository(sdb),
			Courses:     sqlxrepos.NewCourseRepository(sdb),
			Enrollments: sqlxrepos.NewEnrollmentRepository(sdb),
			Progress:    sqlxrepos.NewProgressRepository(sdb),
			Quizzes:     sqlxrepos.NewQuizRepository(sdb),
			Analytics:   sqlxrepos.NewAnalyticsStore(sdb),
		}, nil
	default:
		return Repositories{}, errors.Errorf("unknown repository implementation %q", conf.Database.Repository)
	}
}

func newCache(conf *core.Config) (Cache, error) {
	cache, closeFn, err := cachesvc.New(context.Background(), conf)
	if err != nil {
		return Cache{}, errors.Wrap(err, "connecting to cache")
	}
	return Cache{Cache: cache, Close: closeFn}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	return emailsvc.New(conf, newStdLogger("MAIL : "), logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate
}

func newProgressService(repo progress.Repository, courseRepo course.Repository, enrollments enrollment.Repository) progress.Service {
	return progress.NewService(repo, courseRepo, enrollments)
}

func newAnalyticsService(conf *core.Config, store analytics.Store, cache core.Cache, logger core.Logger) analytics.Service {
	return analytics.NewService(store, cache, conf.Analytics, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		ProgressSvc:   p.ProgressSvc,
		QuizSvc:       p.QuizSvc,
		AnalyticsSvc:  p.AnalyticsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newProgressService))
	must(c.Provide(quiz.NewService))
	must(c.Provide(newAnalyticsService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
