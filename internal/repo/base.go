package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// Base carries the connection shared by the domain repositories.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx. A nil ctx returns the bare connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Transaction runs fn in one transaction scoped to ctx; any error or panic rolls back.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// MapError types a read or delete failure: missing rows are CodeNotFound with
// notFoundMsg, anything else is a dependency failure. Typed errors pass through.
func MapError(err error, notFoundMsg, failureMsg string) error {
	return mapStorageError(err, notFoundMsg, "", failureMsg)
}

// MapWriteError types an insert or update failure. Unique violations become
// CodeConflict with conflictMsg and the constraint name in the details.
func MapWriteError(err error, conflictMsg, failureMsg string) error {
	return mapStorageError(err, "", conflictMsg, failureMsg)
}

func mapStorageError(err error, notFoundMsg, conflictMsg, failureMsg string) error {
	switch {
	case err == nil:
		return nil
	case pkgerrors.As(err) != nil:
		return err
	case notFoundMsg != "" && errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	case conflictMsg != "" && db.IsUniqueViolation(err, ""):
		conflict := pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflictMsg)
		if name := db.ConstraintName(err); name != "" {
			return conflict.WithDetails(map[string]any{"constraint": name})
		}
		return conflict
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, failureMsg)
	}
}
