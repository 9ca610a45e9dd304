package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trezcool/elimu/core"
	appfs "github.com/trezcool/elimu/fs"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	migrationsDir = "migrations"
)

func openPostgres(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open("postgres", u.String())
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// Open connects to the configured database engine.
// Postgres goes through lib/pq; gorm and sqlx share the same pool.
func Open(conf *core.Config, std *log.Logger) (*gorm.DB, error) {
	gormConf := &gorm.Config{
		NowFunc: core.Now,
		Logger:  gormlogger.Discard,
	}
	if conf.Debug && std != nil {
		gormConf.Logger = gormlogger.New(std, gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
		})
	}

	var (
		db  *gorm.DB
		err error
	)
	switch conf.Database.Engine {
	case EnginePostgres:
		var sqlDB *sql.DB
		if sqlDB, err = openPostgres(conf.Database.Name, false, conf); err != nil {
			return nil, errors.Wrap(err, "opening postgres")
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConf)
	case EngineSQLite:
		db, err = gorm.Open(sqlite.Open(sqliteDSN(conf.Database.Path)), gormConf)
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	switch {
	case conf.Database.Engine == EngineSQLite && conf.Database.Path == ":memory:":
		// every connection to :memory: is a new database
		sqlDB.SetMaxOpenConns(1)
	case conf.Database.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	return db, nil
}

// SQLX wraps the pool of db for sqlx, with the bind type of engine.
func SQLX(db *gorm.DB, engine string) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	driver := "postgres"
	if engine == EngineSQLite {
		driver = "sqlite3" // sqlx bind type
	}
	return sqlx.NewDb(sqlDB, driver), nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(ctx context.Context, db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// quoteIdent quotes a postgres identifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// CreateIfNotExist creates the application role and database on Postgres. It is a no-op on SQLite.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	adminDB, err := openPostgres("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()
	if err = Ping(ctx, adminDB); err != nil {
		return err
	}

	if conf.Database.User != "" {
		found, err := exists(ctx, adminDB, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			// CREATE USER takes no bind parameters
			q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", quoteIdent(conf.Database.User), conf.Database.Password)
			if _, err = adminDB.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	appDB, err := openPostgres("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	found, err := exists(ctx, appDB, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		if _, err = appDB.ExecContext(ctx, "CREATE DATABASE "+quoteIdent(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate brings the schema up to date: goose migrations on Postgres, gorm auto-migration on SQLite.
func Migrate(ctx context.Context, db *gorm.DB, engine string) error {
	if engine == EngineSQLite {
		return errors.Wrap(gormrepos.AutoMigrate(db.WithContext(ctx)), "migrating database")
	}
	return RunMigrations(ctx, db, "up")
}

// RunMigrations runs a goose command (up, down, status, version, redo, reset...) against Postgres.
func RunMigrations(ctx context.Context, db *gorm.DB, command string, args ...string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(appfs.FS)
	if err = goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err = goose.RunContext(ctx, command, sqlDB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %q", command)
	}
	return nil
}
