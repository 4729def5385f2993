package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
)

// VoucherService answers which vouchers a customer may use on an order.
type VoucherService struct {
	vouchers repositories.VoucherRepository
	users    repositories.UserRepository
	clock    Clock
}

// NewVoucherService creates a new VoucherService.
func NewVoucherService(vouchers repositories.VoucherRepository, users repositories.UserRepository, clock Clock) (*VoucherService, error) {
	if vouchers == nil || users == nil {
		return nil, errors.New("voucher service: voucher and user repositories are required")
	}
	return &VoucherService{vouchers: vouchers, users: users, clock: clock.orDefault()}, nil
}

// EligibleVouchers returns the enabled, running vouchers of the user's customer group
// whose minimum order value orderValue reaches.
func (s *VoucherService) EligibleVouchers(ctx context.Context, userID string, orderValue decimal.Decimal) ([]models.Voucher, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	vouchers, err := s.vouchers.FindEligible(ctx, orderValue, s.clock(), user.CustomerGroup)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if vouchers == nil {
		vouchers = []models.Voucher{}
	}
	return vouchers, nil
}
