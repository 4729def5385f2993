package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// VoucherRepository defines the interface for voucher data access.
type VoucherRepository interface {
	// FindEligible lists enabled vouchers of group whose minimum order value is at most
	// orderValue and whose window strictly contains now.
	FindEligible(ctx context.Context, orderValue decimal.Decimal, now time.Time, group string) ([]models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
}

// GORMVoucherRepository is a GORM implementation of VoucherRepository.
type GORMVoucherRepository struct {
	db *gorm.DB
}

// NewGORMVoucherRepository creates a new instance of GORMVoucherRepository.
func NewGORMVoucherRepository(db *gorm.DB) *GORMVoucherRepository {
	return &GORMVoucherRepository{db: db}
}

// FindEligible runs the eligibility filter in the database.
func (r *GORMVoucherRepository) FindEligible(ctx context.Context, orderValue decimal.Decimal, now time.Time, group string) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := conn(ctx, r.db).
		Where("status = ? AND min_order_value <= ? AND start_date < ? AND end_date > ? AND customer_group = ?",
			true, orderValue, now, now, group).
		Order("min_order_value DESC, code").
		Find(&vouchers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find eligible vouchers: %w", err)
	}
	return vouchers, nil
}

// Create inserts a voucher.
func (r *GORMVoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	if voucher.ID == "" {
		voucher.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(voucher).Error; err != nil {
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// MockVoucherRepository is an in-memory implementation of VoucherRepository.
type MockVoucherRepository struct {
	vouchers map[string]models.Voucher
	mu       sync.RWMutex
}

// NewMockVoucherRepository creates a new instance of MockVoucherRepository.
func NewMockVoucherRepository() *MockVoucherRepository {
	return &MockVoucherRepository{
		vouchers: make(map[string]models.Voucher),
	}
}

// FindEligible applies the eligibility filter in memory.
func (r *MockVoucherRepository) FindEligible(_ context.Context, orderValue decimal.Decimal, now time.Time, group string) ([]models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Voucher
	for _, v := range r.vouchers {
		if v.Status &&
			v.MinOrderValue.LessThanOrEqual(orderValue) &&
			v.StartDate.Before(now) && v.EndDate.After(now) &&
			v.CustomerGroup == group {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].MinOrderValue.Equal(result[j].MinOrderValue) {
			return result[i].MinOrderValue.GreaterThan(result[j].MinOrderValue)
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

// Create adds a voucher.
func (r *MockVoucherRepository) Create(_ context.Context, voucher *models.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if voucher.ID == "" {
		voucher.ID = uuid.New().String()
	}
	r.vouchers[voucher.ID] = *voucher
	return nil
}
