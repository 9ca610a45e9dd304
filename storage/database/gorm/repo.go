package gormrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/elimu/core"
)

// trapNotFound maps gorm's "record not found" to notFound.
func trapNotFound(err error, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// likePattern returns a case-insensitive LIKE pattern for s, portable across Postgres and SQLite.
func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// updateAll writes every column of m, a pointer to a table model with its ID set,
// and reports whether a row matched.
func updateAll(ctx context.Context, db *gorm.DB, m interface{}) (bool, error) {
	res := db.WithContext(ctx).Model(m).Select("*").Omit(clause.Associations).Updates(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// deleteByID deletes the row of model identified by id and reports whether it existed.
func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, id string) (bool, error) {
	if !core.IsValidID(id) {
		return false, nil
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if core.IsValidID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}
