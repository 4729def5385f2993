package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuuVinh0901/shoe-store-backend/internal/database"
	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := database.Open("sqlite", "file::memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	for _, model := range []any{&models.Order{}, &models.OrderStatusHistory{}, &models.ProductVariant{}, &models.Promotion{}, &models.Voucher{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "", nil)
	assert.Error(t, err)
}
