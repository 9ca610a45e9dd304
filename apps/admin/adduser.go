package main

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// addUser updates or creates a user.User, active and with the given role and password.
func (cli *commandLine) addUser(ctx context.Context, uname, email string, role user.Role, isStaff bool, pwd string) (user.User, error) {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	switch {
	case err == nil:
		active := true
		uu := user.UpdateUser{
			Email:           email,
			Role:            &role,
			IsStaff:         &isStaff,
			IsActive:        &active,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if err = uu.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
			return user.User{}, err
		}
		return cli.usrSvc.Update(ctx, usr, uu)

	case core.IsNotFound(err):
		nu := user.NewUser{
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            role,
			IsStaff:         isStaff,
		}
		if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
			return user.User{}, err
		}
		return cli.usrSvc.Create(ctx, nu)

	default:
		return user.User{}, err
	}
}
