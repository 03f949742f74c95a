package persistence

import (
	"errors"
	"strings"

	"github.com/flowdesk/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translateError maps driver errors to domain errors. The database is opened
// with TranslateError so both drivers report gorm.ErrDuplicatedKey; the string
// checks cover connections opened without it.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "duplicate key value"),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return shared.ErrAlreadyExists
	}
	return err
}

// requireAffected turns an update that touched nothing into ErrNotFound
func requireAffected(result *gorm.DB) error {
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// updateAll writes every column of a live row identified by the model's
// primary key. Unlike Save it never falls back to an insert.
func updateAll(db *gorm.DB, model any) error {
	return requireAffected(db.Model(model).Select("*").Omit("id", "created_at", clause.Associations).Updates(model))
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
