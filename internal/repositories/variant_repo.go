package repositories

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// VariantRepository defines the interface for product variant stock access.
type VariantRepository interface {
	FindByID(ctx context.Context, id string) (*models.ProductVariant, error)
	Create(ctx context.Context, variant *models.ProductVariant) error
	// Save overwrites the variant. Negative stock is rejected.
	Save(ctx context.Context, variant *models.ProductVariant) error
	// AdjustStock adds delta to the variant's stock as one atomic step and returns the
	// updated variant. It fails with ErrNegativeStock when the result would drop below zero.
	AdjustStock(ctx context.Context, id string, delta int) (*models.ProductVariant, error)
}

// GORMVariantRepository is a GORM implementation of VariantRepository.
type GORMVariantRepository struct {
	db *gorm.DB
}

// NewGORMVariantRepository creates a new instance of GORMVariantRepository.
func NewGORMVariantRepository(db *gorm.DB) *GORMVariantRepository {
	return &GORMVariantRepository{db: db}
}

// FindByID retrieves a variant by its ID.
func (r *GORMVariantRepository) FindByID(ctx context.Context, id string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := conn(ctx, r.db).First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("variant with ID %s not found: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get variant by ID %s: %w", id, err)
	}
	return &variant, nil
}

// Create inserts a new variant.
func (r *GORMVariantRepository) Create(ctx context.Context, variant *models.ProductVariant) error {
	if variant.StockQuantity < 0 {
		return fmt.Errorf("variant %s: %w", variant.ID, ErrNegativeStock)
	}
	if variant.ID == "" {
		variant.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(variant).Error; err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

// Save overwrites the stored variant.
func (r *GORMVariantRepository) Save(ctx context.Context, variant *models.ProductVariant) error {
	if variant.StockQuantity < 0 {
		return fmt.Errorf("variant %s: %w", variant.ID, ErrNegativeStock)
	}
	if err := conn(ctx, r.db).Save(variant).Error; err != nil {
		return fmt.Errorf("failed to save variant %s: %w", variant.ID, err)
	}
	return nil
}

// AdjustStock runs a conditional update so concurrent adjustments never lose writes.
func (r *GORMVariantRepository) AdjustStock(ctx context.Context, id string, delta int) (*models.ProductVariant, error) {
	db := conn(ctx, r.db)
	res := db.Model(&models.ProductVariant{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to adjust stock of variant %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.ProductVariant{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check variant %s: %w", id, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("variant with ID %s not found: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("variant %s cannot take %+d units: %w", id, delta, ErrNegativeStock)
	}
	return r.FindByID(ctx, id)
}

// MockVariantRepository is an in-memory implementation of VariantRepository.
type MockVariantRepository struct {
	variants map[string]models.ProductVariant
	mu       sync.RWMutex
}

// NewMockVariantRepository creates a new instance of MockVariantRepository.
func NewMockVariantRepository() *MockVariantRepository {
	return &MockVariantRepository{
		variants: make(map[string]models.ProductVariant),
	}
}

// FindByID returns a variant by its ID.
func (r *MockVariantRepository) FindByID(_ context.Context, id string) (*models.ProductVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	variant, ok := r.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant with ID %s not found: %w", id, ErrRecordNotFound)
	}
	return &variant, nil
}

// Create adds a new variant.
func (r *MockVariantRepository) Create(_ context.Context, variant *models.ProductVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if variant.StockQuantity < 0 {
		return fmt.Errorf("variant %s: %w", variant.ID, ErrNegativeStock)
	}
	if variant.ID == "" {
		variant.ID = uuid.New().String()
	}
	variant.UpdatedAt = time.Now()
	r.variants[variant.ID] = *variant
	return nil
}

// Save overwrites an existing variant.
func (r *MockVariantRepository) Save(_ context.Context, variant *models.ProductVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.variants[variant.ID]; !ok {
		return fmt.Errorf("variant with ID %s not found for update: %w", variant.ID, ErrRecordNotFound)
	}
	if variant.StockQuantity < 0 {
		return fmt.Errorf("variant %s: %w", variant.ID, ErrNegativeStock)
	}
	variant.UpdatedAt = time.Now()
	r.variants[variant.ID] = *variant
	return nil
}

// AdjustStock adds delta under the write lock.
func (r *MockVariantRepository) AdjustStock(_ context.Context, id string, delta int) (*models.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	variant, ok := r.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant with ID %s not found: %w", id, ErrRecordNotFound)
	}
	if variant.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("variant %s cannot take %+d units: %w", id, delta, ErrNegativeStock)
	}
	variant.StockQuantity += delta
	variant.UpdatedAt = time.Now()
	r.variants[id] = variant
	return &variant, nil
}

func (r *MockVariantRepository) snapshot() func() {
	r.mu.RLock()
	saved := maps.Clone(r.variants)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.variants = saved
		r.mu.Unlock()
	}
}
