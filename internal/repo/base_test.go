package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

type note struct {
	ID   uint
	Body string `gorm:"uniqueIndex"`
}

func openBase(t *testing.T) Base {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&note{}))
	return NewBase(conn)
}

type ctxKey struct{}

func TestDBScopesContext(t *testing.T) {
	base := openBase(t)
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	scoped := base.DB(ctx)
	require.NotNil(t, scoped.Statement)
	assert.Equal(t, ctx, scoped.Statement.Context)
	assert.Same(t, base.conn, base.DB(nil))
}

func TestTransactionRollsBackOnError(t *testing.T) {
	base := openBase(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := base.Transaction(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&note{Body: "discarded"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, base.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&note{Body: "kept"}).Error
	}))

	var count int64
	require.NoError(t, base.DB(ctx).Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "x", "y"))

	notFound := MapError(fmt.Errorf("first: %w", gorm.ErrRecordNotFound), "price list not found", "load price list")
	assert.True(t, pkgerrors.IsCode(notFound, pkgerrors.CodeNotFound))
	assert.Equal(t, "price list not found", pkgerrors.As(notFound).Message())

	dep := MapError(errors.New("connection refused"), "price list not found", "load price list")
	assert.True(t, pkgerrors.IsCode(dep, pkgerrors.CodeDependency))

	typed := pkgerrors.New(pkgerrors.CodeStateConflict, "busy")
	assert.Same(t, typed, MapError(typed, "a", "b"))
}

func TestMapWriteErrorTurnsDuplicatesIntoConflicts(t *testing.T) {
	base := openBase(t)
	ctx := context.Background()
	require.NoError(t, base.DB(ctx).Create(&note{Body: "dup"}).Error)

	err := MapWriteError(base.DB(ctx).Create(&note{Body: "dup"}).Error, "note already exists", "create note")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, map[string]any{"constraint": "notes.body"}, typed.Details())

	pg := MapWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "notes_body_key"}, "note already exists", "create note")
	assert.Equal(t, map[string]any{"constraint": "notes_body_key"}, pkgerrors.As(pg).Details())

	// Write paths never report missing rows as not found.
	missing := MapWriteError(gorm.ErrRecordNotFound, "note already exists", "update note")
	assert.True(t, pkgerrors.IsCode(missing, pkgerrors.CodeDependency))
}
