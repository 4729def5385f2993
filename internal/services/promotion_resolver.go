package services

import (
	"context"
	"time"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
)

// PromotionResolver decides which promotions apply to a product at a point in time.
type PromotionResolver struct {
	promotions repositories.PromotionRepository
}

// NewPromotionResolver creates a new PromotionResolver.
func NewPromotionResolver(promotions repositories.PromotionRepository) *PromotionResolver {
	return &PromotionResolver{promotions: promotions}
}

// IsActive reports whether promo is ACTIVE and now falls inside [StartDate, EndDate).
func IsActive(promo models.Promotion, now time.Time) bool {
	return promo.Status == models.PromotionStatusActive &&
		!promo.StartDate.After(now) &&
		promo.EndDate.After(now)
}

// ResolveApplicable returns the active promotions whose scope covers product, in
// ascending promotion ID order. Pricing tie-breaks depend on this order.
func (r *PromotionResolver) ResolveApplicable(ctx context.Context, product models.Product, now time.Time) ([]models.Promotion, error) {
	active, err := r.promotions.FindActive(ctx, now)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	applicable := make([]models.Promotion, 0, len(active))
	for _, promo := range active {
		if IsActive(promo, now) && inScope(promo, product) {
			applicable = append(applicable, promo)
		}
	}
	return applicable, nil
}

func inScope(promo models.Promotion, product models.Product) bool {
	switch promo.ApplicableTo {
	case models.PromotionScopeAll:
		return true
	case models.PromotionScopeCategories:
		return promo.CoversCategory(product.CategoryID)
	case models.PromotionScopeProducts:
		return promo.CoversProduct(product.ID)
	default:
		return false
	}
}
