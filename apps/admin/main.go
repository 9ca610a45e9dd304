package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	defer appLogger.Close()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(conf, logger)
	errAndDie(err)
	sqlDB, err := db.DB()
	errAndDie(err)
	defer sqlDB.Close()
	errAndDie(database.Ping(ctx, sqlDB))
	if conf.Database.Engine == database.EngineSQLite {
		errAndDie(database.Migrate(ctx, db, conf.Database.Engine))
	}

	var usrRepo user.Repository = gormrepos.NewUserRepository(db)
	if conf.Database.Repository != "gorm" {
		sdb, err := database.SQLX(db, conf.Database.Engine)
		errAndDie(err)
		usrRepo = sqlxrepos.NewUserRepository(sdb)
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		engine:     conf.Database.Engine,
		usrSvc:     user.NewService(usrRepo, emailsvc.New(conf, logger, appLogger)),
		validate:   validate,
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		sqlDB.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
