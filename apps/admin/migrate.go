package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/storage/database"
)

var errSQLiteMigrations = errors.New("migrations only run on postgres; sqlite is auto-migrated on start")

// migrate runs the goose command in args[0] with the remaining args.
func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.engine == database.EngineSQLite {
		return errSQLiteMigrations
	}
	return runMigrationsFunc(ctx, cli.db, args[0], args[1:]...)
}
