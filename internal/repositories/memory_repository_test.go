package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
)

func TestMemoryUnitOfWork_RestoresEveryRepository(t *testing.T) {
	ctx := context.Background()
	orders := repositories.NewMockOrderRepository()
	histories := repositories.NewMockHistoryRepository()
	variants := repositories.NewMockVariantRepository()
	uow := repositories.NewMemoryUnitOfWork(orders, histories, variants)

	variant := &models.ProductVariant{StockQuantity: 2}
	require.NoError(t, variants.Create(ctx, variant))
	order := &models.Order{Status: models.OrderStatusPending}
	require.NoError(t, orders.Create(ctx, order))

	boom := errors.New("boom")
	err := uow.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := variants.AdjustStock(ctx, variant.ID, 3); err != nil {
			return err
		}
		loaded, err := orders.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		loaded.Status = models.OrderStatusCanceled
		if err := orders.Save(ctx, loaded); err != nil {
			return err
		}
		if err := histories.Append(ctx, &models.OrderStatusHistory{OrderID: order.ID, Status: models.OrderStatusCanceled}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := variants.FindByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StockQuantity)
	loaded, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, loaded.Status)
	rows, err := histories.FindByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryUnitOfWork_RestoresOnPanic(t *testing.T) {
	ctx := context.Background()
	variants := repositories.NewMockVariantRepository()
	uow := repositories.NewMemoryUnitOfWork(variants)
	variant := &models.ProductVariant{StockQuantity: 1}
	require.NoError(t, variants.Create(ctx, variant))

	assert.Panics(t, func() {
		_ = uow.RunInTx(ctx, func(ctx context.Context) error {
			_, _ = variants.AdjustStock(ctx, variant.ID, 1)
			panic("unexpected")
		})
	})

	stored, err := variants.FindByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.StockQuantity)
}

func TestMockOrderRepository_SaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockOrderRepository()
	order := &models.Order{Status: models.OrderStatusPending}
	require.NoError(t, repo.Create(ctx, order))

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	first.Status = models.OrderStatusConfirmed
	require.NoError(t, repo.Save(ctx, first))
	second.Status = models.OrderStatusCanceled
	assert.ErrorIs(t, repo.Save(ctx, second), repositories.ErrConflict)
}

func TestCachedPromotionRepository_FallsBackWhenCacheIsDown(t *testing.T) {
	ctx := context.Background()
	primary := repositories.NewMockPromotionRepository()
	promo := &models.Promotion{ID: "p1", Type: models.PromotionTypeFixed, Status: models.PromotionStatusActive}
	require.NoError(t, primary.Create(ctx, promo))

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	cached := repositories.NewCachedPromotionRepository(primary, client, time.Minute, nil)

	found, err := cached.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)

	_, err = cached.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

	require.NoError(t, cached.Create(ctx, &models.Promotion{ID: "p2", Status: models.PromotionStatusActive}))
	active, err := cached.FindActive(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, active, "zero-dated promotions are not running")
}
