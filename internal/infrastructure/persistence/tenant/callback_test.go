package tenant

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestModel struct {
	ID       int
	TenantID uuid.UUID
	Name     string
}

type GlobalModel struct {
	ID   int
	Name string
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, Enable(db))
	return db, mock
}

func tenantContext(tenantID string) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID)
	return ctx
}

func TestGuard_Query(t *testing.T) {
	tenantID := uuid.New()

	t.Run("adds the tenant filter", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE "test_models"."tenant_id" = \$1`).
			WithArgs(tenantID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []TestModel
		require.NoError(t, db.WithContext(tenantContext(tenantID.String())).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps an explicit tenant condition", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE "test_models"."tenant_id" = \$1$`).
			WithArgs(tenantID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []TestModel
		err := db.WithContext(tenantContext(tenantID.String())).
			Where(&TestModel{TenantID: tenantID}).
			Find(&rows).Error
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no tenant in context", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "test_models"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []TestModel
		require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("model without tenant column", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "global_models"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		var rows []GlobalModel
		require.NoError(t, db.WithContext(tenantContext(tenantID.String())).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unscoped statements pass through", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "test_models"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var rows []TestModel
		require.NoError(t, db.WithContext(tenantContext(tenantID.String())).Unscoped().Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid tenant id", func(t *testing.T) {
		db, _ := setupMockDB(t)

		var rows []TestModel
		err := db.WithContext(tenantContext("not-a-uuid")).Find(&rows).Error
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})
}

func TestGuard_Update(t *testing.T) {
	db, mock := setupMockDB(t)
	tenantID := uuid.New()

	mock.ExpectExec(`UPDATE "test_models" SET "name"=\$1 WHERE id = \$2 AND "test_models"."tenant_id" = \$3`).
		WithArgs("renamed", 7, tenantID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.WithContext(tenantContext(tenantID.String())).
		Model(&TestModel{}).
		Where("id = ?", 7).
		Update("name", "renamed").Error
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisable(t *testing.T) {
	db, mock := setupMockDB(t)
	require.NoError(t, Disable(db))

	mock.ExpectQuery(`SELECT \* FROM "test_models"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []TestModel
	require.NoError(t, db.WithContext(tenantContext(uuid.NewString())).Find(&rows).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewGuard_DefaultColumn(t *testing.T) {
	assert.Equal(t, DefaultColumn, NewGuard("").column)
	assert.Equal(t, "org_id", NewGuard("org_id").column)
}

