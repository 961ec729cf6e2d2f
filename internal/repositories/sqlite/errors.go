package sqlite

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"caritauyuk.id/catalog/internal/repositories"
)

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.NewError(op, repositories.KindNotFound, err)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch {
		case sqlErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return repositories.NewError(op, repositories.KindNotFound, err)
		case sqlErr.Code == sqlite3.ErrConstraint:
			return repositories.NewError(op, repositories.KindConflict, err)
		case sqlErr.Code == sqlite3.ErrBusy, sqlErr.Code == sqlite3.ErrLocked:
			return repositories.NewError(op, repositories.KindUnavailable, err)
		}
	}
	return repositories.NewError(op, repositories.KindUnknown, err)
}
