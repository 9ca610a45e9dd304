package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	gormrepos "github.com/trezcool/elimu/storage/database/gorm"
	"github.com/trezcool/elimu/tests"
)

func newValidator() *validator.Validate {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate
}

func TestService(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := gormrepos.NewUserRepository(db)
	outbox := emailsvc.NewOutbox(core.NewTestConfig(), testutil.NopLogger{})
	svc := user.NewService(repo, outbox)
	validate := newValidator()

	existing := testutil.CreateUser(t, repo, "existing", user.RoleInstructor, true)

	t.Run("register", func(t *testing.T) {
		nu := user.NewUser{
			Username:        "  Jane_Doe ",
			Email:           "JANE@example.com",
			Password:        "Sup3r$ecret!",
			PasswordConfirm: "Sup3r$ecret!",
			Role:            user.RoleAdmin,
			IsStaff:         true,
		}
		require.NoError(t, nu.Validate(ctx, validate, svc))
		usr, err := svc.Register(ctx, nu)
		require.NoError(t, err)
		assert.Equal(t, "jane_doe", usr.Username)
		assert.Equal(t, "jane@example.com", usr.Email)
		assert.Equal(t, user.RoleStudent, usr.Role, "self registration is always a student")
		assert.False(t, usr.IsStaff)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("Sup3r$ecret!"))

		sent := outbox.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Welcome!", sent[0].Subject)

		got, err := svc.GetByUsernameOrEmail(ctx, " JANE@EXAMPLE.COM")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
	})

	t.Run("create", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{Username: "staffer", Email: "staffer@example.com", Password: "Sup3r$ecret!", IsStaff: true})
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.True(t, usr.IsStaff)
		assert.True(t, usr.IsAdmin())
	})

	t.Run("uniqueness", func(t *testing.T) {
		err := svc.CheckUniqueness(ctx, "existing", "other@example.com")
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "username", verr.Fields[0].Field)

		err = svc.CheckUniqueness(ctx, "newcomer", "existing@example.com")
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "email", verr.Fields[0].Field)
	})

	t.Run("update", func(t *testing.T) {
		staff := true
		uu := user.UpdateUser{LastName: "Smith", IsStaff: &staff}
		require.NoError(t, uu.Validate(ctx, existing, validate, svc))
		assert.True(t, uu.HasAdminFields())

		updated, err := svc.Update(ctx, existing, uu)
		require.NoError(t, err)
		assert.Equal(t, "existing", updated.Username)
		assert.Equal(t, "Smith", updated.LastName)
		assert.True(t, updated.IsStaff)

		updated, err = svc.SetLastLogin(ctx, updated)
		require.NoError(t, err)
		assert.True(t, updated.LastLogin.Valid)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, existing.ID))
		_, err := svc.GetByID(ctx, existing.ID)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestNewUser_Validate_password(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	svc := user.NewService(gormrepos.NewUserRepository(db), emailsvc.NewOutbox(core.NewTestConfig(), testutil.NopLogger{}))
	validate := newValidator()

	tests := []struct {
		name    string
		pwd     string
		wantErr bool
	}{
		{name: "strong", pwd: "Sup3r$ecret!"},
		{name: "too short", pwd: "Ab1$", wantErr: true},
		{name: "whitespace", pwd: "Sup3r $ecret", wantErr: true},
		{name: "numeric", pwd: "1234567890", wantErr: true},
		{name: "no special char", pwd: "Sup3rSecret", wantErr: true},
		{name: "like the username", pwd: "Learner1$", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := user.NewUser{Username: "learner1", Email: "l@example.com", Password: tt.pwd, PasswordConfirm: tt.pwd}
			err := nu.Validate(ctx, validate, svc)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUser_permissions(t *testing.T) {
	tests := []struct {
		name     string
		usr      user.User
		elevated bool
		admin    bool
	}{
		{name: "student", usr: user.User{Role: user.RoleStudent}},
		{name: "instructor", usr: user.User{Role: user.RoleInstructor}, elevated: true},
		{name: "admin", usr: user.User{Role: user.RoleAdmin}, elevated: true, admin: true},
		{name: "staff student", usr: user.User{Role: user.RoleStudent, IsStaff: true}, elevated: true, admin: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.elevated, tt.usr.IsElevated())
			assert.Equal(t, tt.admin, tt.usr.IsAdmin())
		})
	}
}
