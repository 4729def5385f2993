package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
)

func TestVoucherService_EligibleVouchers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	users := repositories.NewMockUserRepository()
	vouchers := repositories.NewMockVoucherRepository()

	gold := &models.User{Username: "gold", Email: "gold@example.com", CustomerGroup: "GOLD"}
	require.NoError(t, users.Create(ctx, gold))

	window := func(v models.Voucher) *models.Voucher {
		if v.StartDate.IsZero() {
			v.StartDate = now.Add(-24 * time.Hour)
		}
		if v.EndDate.IsZero() {
			v.EndDate = now.Add(24 * time.Hour)
		}
		return &v
	}
	for _, v := range []*models.Voucher{
		window(models.Voucher{Code: "GOLD50", MinOrderValue: dec("500"), Status: true, CustomerGroup: "GOLD"}),
		window(models.Voucher{Code: "GOLD10", MinOrderValue: dec("100"), Status: true, CustomerGroup: "GOLD"}),
		window(models.Voucher{Code: "GOLD-OFF", MinOrderValue: dec("0"), Status: false, CustomerGroup: "GOLD"}),
		window(models.Voucher{Code: "GOLD-BIG", MinOrderValue: dec("900"), Status: true, CustomerGroup: "GOLD"}),
		window(models.Voucher{Code: "SILVER", MinOrderValue: dec("0"), Status: true, CustomerGroup: "SILVER"}),
		window(models.Voucher{Code: "GOLD-STARTS-NOW", MinOrderValue: dec("0"), Status: true, CustomerGroup: "GOLD", StartDate: now}),
		window(models.Voucher{Code: "GOLD-ENDED", MinOrderValue: dec("0"), Status: true, CustomerGroup: "GOLD", EndDate: now}),
	} {
		require.NoError(t, vouchers.Create(ctx, v))
	}

	svc, err := services.NewVoucherService(vouchers, users, func() time.Time { return now })
	require.NoError(t, err)

	got, err := svc.EligibleVouchers(ctx, gold.ID, dec("500"))
	require.NoError(t, err)
	codes := make([]string, 0, len(got))
	for _, v := range got {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []string{"GOLD50", "GOLD10"}, codes)

	got, err = svc.EligibleVouchers(ctx, gold.ID, dec("50"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = svc.EligibleVouchers(ctx, "stranger", dec("500"))
	assert.ErrorIs(t, err, services.ErrNotFound)
}
