package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/storage/database"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

const strongPassword = "Sup3r$ecret!"

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = gormrepos.NewUserRepository(db)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	// start CLI
	return &commandLine{
		db:         db,
		engine:     database.EnginePostgres,
		usrSvc:     user.NewService(usrRepo, emailsvc.NewOutbox(conf, testutil.NopLogger{})),
		validate:   validate,
		translator: translator,
	}
}

// mockPasswords makes the password prompts return pwds in order, then empty passwords.
func mockPasswords(pwds ...string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	passwords  []string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(ctx context.Context, db *gorm.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = database.RunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("sqlite", func(t *testing.T) {
		cli.engine = database.EngineSQLite
		defer func() { cli.engine = database.EnginePostgres }()
		assert.Equal(t, errSQLiteMigrations, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "taken", user.RoleStudent, true)
	existing := testutil.CreateUser(t, usrRepo, "sleepy", user.RoleStudent, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{
			name: "passwords do not match", args: []string{"adduser", "-username", "boss", "-email", "boss@example.com"},
			passwords: []string{strongPassword, "other"}, wantErr: errPasswordMismatch,
		},
		{
			name: "weak password", args: []string{"adduser", "-username", "boss", "-email", "boss@example.com"},
			passwords: []string{"12345678", "12345678"}, wantErrStr: "password: password cannot be entirely numeric",
		},
		{
			name: "invalid role", args: []string{"adduser", "-username", "boss", "-email", "boss@example.com", "-role", "god"},
			passwords: []string{strongPassword, strongPassword}, wantErrStr: "role: invalid role",
		},
		{
			name: "email taken", args: []string{"adduser", "-username", "boss", "-email", "taken@example.com"},
			passwords: []string{strongPassword, strongPassword}, wantErrStr: "a user with this email already exists",
		},
		{
			name: "create admin", args: []string{"adduser", "-username", "Boss", "-email", "boss@example.com", "-staff"},
			passwords: []string{strongPassword, strongPassword},
		},
		{
			name: "promote existing", args: []string{"adduser", "-username", existing.Username, "-role", "instructor"},
			passwords: []string{strongPassword, strongPassword},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(tt.passwords...)
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	boss, err := usrRepo.Get(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, boss.Role)
	assert.True(t, boss.IsStaff)
	assert.True(t, boss.IsActive)
	assert.NoError(t, boss.CheckPassword(strongPassword))

	promoted, err := usrRepo.Get(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, user.RoleInstructor, promoted.Role)
	assert.Equal(t, existing.Email, promoted.Email, "email is kept when not provided")
	assert.True(t, promoted.IsActive, "adduser reactivates the account")
	assert.NoError(t, promoted.CheckPassword(strongPassword))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "awe", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, passwords: []string{strongPassword}, wantErr: user.ErrNotFound},
		{
			name: "too short", args: []string{"resetpassword", "-username", usr.Username}, passwords: []string{"Sh0rt!"},
			wantErrStr: "password: password must contain at least 8 characters",
		},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, passwords: []string{strongPassword}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, passwords: []string{"An0ther$ecret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(tt.passwords...)
			before, err := usrRepo.Get(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)

			err = cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}
			after, err := usrRepo.Get(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			if bytes.Equal(after.PasswordHash, before.PasswordHash) {
				t.Error("failed to update new password")
			}
		})
	}
}
