package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/dberr"
)

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
	db *gorm.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := repo.db.WithContext(ctx).Model(&userModel{})
	if email != "" {
		q = q.Where("username = ? OR email = ?", username, email)
	} else {
		q = q.Where("username = ?", username)
	}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var taken []userModel
	if err := q.Select("username", "email").Limit(2).Find(&taken).Error; err != nil {
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
	m := toUserModel(usr)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return m.toUser(), nil
}

func (repo *UserRepository) Get(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := repo.db.WithContext(ctx)
	switch {
	case filter.ID != "":
		if !core.IsValidID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.Username != "":
		q = q.Where("username = ?", filter.Username)
	case filter.Email != "":
		q = q.Where("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		q = q.Where("username = ? OR email = ?", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var m userModel
	if err := q.Take(&m).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "finding user")
	}
	return m.toUser(), nil
}

func (repo *UserRepository) Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := repo.db.WithContext(ctx).Model(&userModel{})
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			q = q.Where(
				"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
				pattern, pattern, pattern, pattern,
			)
		}
		if len(filter.Roles) > 0 {
			q = q.Where("role IN ?", filter.Roles)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.IsStaff != nil {
			q = q.Where("is_staff = ?", *filter.IsStaff)
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var models []userModel
	if err := q.Order(core.OrderingClause(ordering, userOrderingColumns, "created_at DESC")).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].toUser())
	}
	return users, nil
}

func (repo *UserRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	m := toUserModel(usr)
	found, err := updateAll(ctx, repo.db, m)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return m.toUser(), nil
}

func (repo *UserRepository) Delete(ctx context.Context, ids ...string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := repo.db.WithContext(ctx).Where("id IN ?", ids).Delete(&userModel{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting users")
	}
	return int(res.RowsAffected), nil
}
