package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// PromotionRepository defines the interface for promotion data access.
type PromotionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Promotion, error)
	// FindActive returns ACTIVE promotions whose window [StartDate, EndDate) contains now,
	// ordered by ascending ID with their scope sets loaded.
	FindActive(ctx context.Context, now time.Time) ([]models.Promotion, error)
	Create(ctx context.Context, promo *models.Promotion) error
}

// GORMPromotionRepository is a GORM implementation of PromotionRepository.
type GORMPromotionRepository struct {
	db *gorm.DB
}

// NewGORMPromotionRepository creates a new instance of GORMPromotionRepository.
func NewGORMPromotionRepository(db *gorm.DB) *GORMPromotionRepository {
	return &GORMPromotionRepository{db: db}
}

// FindByID retrieves a promotion with its scope sets.
func (r *GORMPromotionRepository) FindByID(ctx context.Context, id string) (*models.Promotion, error) {
	var promo models.Promotion
	err := conn(ctx, r.db).Preload("Categories").Preload("Products").First(&promo, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("promotion with ID %s not found: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get promotion by ID %s: %w", id, err)
	}
	return &promo, nil
}

// FindActive lists the promotions running at now.
func (r *GORMPromotionRepository) FindActive(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := conn(ctx, r.db).Preload("Categories").Preload("Products").
		Where("status = ? AND start_date <= ? AND end_date > ?", models.PromotionStatusActive, now, now).
		Order("id").
		Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active promotions: %w", err)
	}
	return promos, nil
}

// Create inserts a promotion together with its scope sets.
func (r *GORMPromotionRepository) Create(ctx context.Context, promo *models.Promotion) error {
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	for i := range promo.Categories {
		promo.Categories[i].PromotionID = promo.ID
	}
	for i := range promo.Products {
		promo.Products[i].PromotionID = promo.ID
	}
	if err := conn(ctx, r.db).Create(promo).Error; err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	return nil
}

// MockPromotionRepository is an in-memory implementation of PromotionRepository.
type MockPromotionRepository struct {
	promos map[string]models.Promotion
	mu     sync.RWMutex
}

// NewMockPromotionRepository creates a new instance of MockPromotionRepository.
func NewMockPromotionRepository() *MockPromotionRepository {
	return &MockPromotionRepository{
		promos: make(map[string]models.Promotion),
	}
}

func clonePromotion(p models.Promotion) models.Promotion {
	p.Categories = slices.Clone(p.Categories)
	p.Products = slices.Clone(p.Products)
	return p
}

// FindByID returns a promotion by its ID.
func (r *MockPromotionRepository) FindByID(_ context.Context, id string) (*models.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promo, ok := r.promos[id]
	if !ok {
		return nil, fmt.Errorf("promotion with ID %s not found: %w", id, ErrRecordNotFound)
	}
	promo = clonePromotion(promo)
	return &promo, nil
}

// FindActive lists the promotions running at now, ordered by ID.
func (r *MockPromotionRepository) FindActive(_ context.Context, now time.Time) ([]models.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Promotion
	for _, p := range r.promos {
		if p.Status == models.PromotionStatusActive && !p.StartDate.After(now) && p.EndDate.After(now) {
			result = append(result, clonePromotion(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Create adds a promotion.
func (r *MockPromotionRepository) Create(_ context.Context, promo *models.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	for i := range promo.Categories {
		promo.Categories[i].PromotionID = promo.ID
	}
	for i := range promo.Products {
		promo.Products[i].PromotionID = promo.ID
	}
	r.promos[promo.ID] = clonePromotion(*promo)
	return nil
}
