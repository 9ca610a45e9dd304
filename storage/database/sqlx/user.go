package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/dberr"
)

const userColumns = `id, username, email, first_name, last_name, role, is_staff, is_active, password_hash,
	created_at, updated_at, last_login`

var userOrderingColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var c conds
	if email != "" {
		c.add("(username = ? OR email = ?)", username, email)
	} else {
		c.add("username = ?", username)
	}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		c.add("id NOT IN (?)", ids)
	}

	var taken []userRow
	if err := selectIn(ctx, repo.db, &taken, "SELECT "+userColumns+" FROM users"+c.where()+" LIMIT 2", c.args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, u := range taken {
		if u.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *UserRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = core.NewID()
	}
	row := toUserRow(usr)
	_, err := sqlx.NamedExecContext(ctx, repo.db, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :email, :first_name, :last_name, :role, :is_staff, :is_active, :password_hash,
			:created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *UserRepository) Get(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var c conds
	switch {
	case filter.ID != "":
		if !core.IsValidID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		c.add("id = ?", filter.ID)
	case filter.Username != "":
		c.add("username = ?", filter.Username)
	case filter.Email != "":
		c.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		c.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := get(ctx, repo.db, &row, "SELECT "+userColumns+" FROM users"+c.where()+" LIMIT 1", c.args...); err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo *UserRepository) Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var c conds
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			c.add(
				"(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)",
				pattern, pattern, pattern, pattern,
			)
		}
		if len(filter.Roles) > 0 {
			c.add("role IN (?)", filter.Roles)
		}
		if filter.IsActive != nil {
			c.add("is_active = ?", *filter.IsActive)
		}
		if filter.IsStaff != nil {
			c.add("is_staff = ?", *filter.IsStaff)
		}
		if !filter.CreatedFrom.IsZero() {
			c.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			c.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	query := "SELECT " + userColumns + " FROM users" + c.where() +
		" ORDER BY " + core.OrderingClause(ordering, userOrderingColumns, "created_at DESC")
	var rows []userRow
	if err := selectIn(ctx, repo.db, &rows, query, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *UserRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	res, err := sqlx.NamedExecContext(ctx, repo.db, `
		UPDATE users SET username = :username, email = :email, first_name = :first_name, last_name = :last_name,
			role = :role, is_staff = :is_staff, is_active = :is_active, password_hash = :password_hash,
			created_at = :created_at, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, row)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if found, err := affected(res); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if !found {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), nil
}

func (repo *UserRepository) Delete(ctx context.Context, ids ...string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := exec(ctx, repo.db, "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
