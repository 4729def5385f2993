package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/metrics"
)

// PricingServiceDeps bundles collaborators required to construct the pricing service.
type PricingServiceDeps struct {
	Products   repositories.ProductRepository
	Promotions repositories.PromotionRepository
	Metrics    *metrics.OrderMetrics
	Clock      Clock
	Logger     *zap.Logger
}

// PricedProduct is a product together with its final price.
type PricedProduct struct {
	models.Product
	FinalPrice decimal.Decimal `json:"final_price"`
}

// PricingService turns listed prices into discounted prices.
type PricingService struct {
	products   repositories.ProductRepository
	promotions repositories.PromotionRepository
	resolver   *PromotionResolver
	metrics    *metrics.OrderMetrics
	clock      Clock
	logger     *zap.Logger
}

// NewPricingService wires dependencies into a PricingService.
func NewPricingService(deps PricingServiceDeps) (*PricingService, error) {
	if deps.Products == nil {
		return nil, errors.New("pricing service: product repository is required")
	}
	if deps.Promotions == nil {
		return nil, errors.New("pricing service: promotion repository is required")
	}
	return &PricingService{
		products:   deps.Products,
		promotions: deps.Promotions,
		resolver:   NewPromotionResolver(deps.Promotions),
		metrics:    deps.Metrics,
		clock:      deps.Clock.orDefault(),
		logger:     logging.OrNop(deps.Logger),
	}, nil
}

// SimplePrice prices a product with its directly attached promotion only. Without an
// active attached promotion the listed price is returned unchanged.
func (s *PricingService) SimplePrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	defer s.observe("simple", time.Now())

	product, err := s.product(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	promo, err := s.attachedPromotion(ctx, *product)
	if err != nil {
		return decimal.Zero, err
	}
	if promo == nil || !IsActive(*promo, s.clock()) {
		return product.Price, nil
	}
	return ComputeSimplePrice(product.Price, *promo), nil
}

// FinalPrice prices a product with every applicable promotion.
func (s *PricingService) FinalPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	defer s.observe("final", time.Now())

	product, err := s.product(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	promos, err := s.resolver.ResolveApplicable(ctx, *product, s.clock())
	if err != nil {
		return decimal.Zero, err
	}
	if hasNonStackable(promos) {
		if winner, amount := BestSinglePromotion(product.Price, promos); winner != nil {
			s.logger.Debug("non-stackable pricing picked a single promotion",
				zap.String("product_id", product.ID),
				zap.String("promotion_id", winner.ID),
				zap.String("discount", amount.StringFixed(2)))
		}
	}
	return ComputeFinalPrice(product.Price, promos), nil
}

// AppliedPromotions lists the promotions FinalPrice would consider for a product.
func (s *PricingService) AppliedPromotions(ctx context.Context, productID string) ([]models.Promotion, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveApplicable(ctx, *product, s.clock())
}

// ActivePromotion returns the product's attached promotion if it is currently active.
func (s *PricingService) ActivePromotion(ctx context.Context, productID string) (*models.Promotion, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	promo, err := s.attachedPromotion(ctx, *product)
	if err != nil {
		return nil, err
	}
	if promo == nil || !IsActive(*promo, s.clock()) {
		return nil, fmt.Errorf("%w: product %s has no active promotion", ErrNotFound, productID)
	}
	return promo, nil
}

// ListProducts returns every product with its final price.
func (s *PricingService) ListProducts(ctx context.Context) ([]PricedProduct, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	now := s.clock()
	priced := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		promos, err := s.resolver.ResolveApplicable(ctx, p, now)
		if err != nil {
			return nil, err
		}
		priced = append(priced, PricedProduct{Product: p, FinalPrice: ComputeFinalPrice(p.Price, promos)})
	}
	return priced, nil
}

// ComputeSimplePrice subtracts one promotion's discount from price, floored at 0 and
// rounded to 2 places.
func ComputeSimplePrice(price decimal.Decimal, promo models.Promotion) decimal.Decimal {
	discounted := price.Sub(DiscountAmount(promo, price))
	return decimal.Max(discounted, decimal.Zero).Round(2)
}

// ComputeFinalPrice combines promos, given in resolution order, into one price.
//
// If any promotion is not stackable only the single largest discount against the listed
// price applies, the earliest promotion winning ties. Otherwise promotions are sorted once
// by their discount against the listed price, largest first, and applied in that order to
// the running price until it reaches 0.
func ComputeFinalPrice(price decimal.Decimal, promos []models.Promotion) decimal.Decimal {
	if len(promos) == 0 {
		return price.Round(2)
	}

	var result decimal.Decimal
	if hasNonStackable(promos) {
		_, best := BestSinglePromotion(price, promos)
		result = price.Sub(best)
	} else {
		result = applyStacked(price, promos)
	}
	return decimal.Max(result, decimal.Zero).Round(2)
}

// BestSinglePromotion returns the promotion with the largest discount against price and
// that discount. The earliest promotion wins ties. It returns nil when promos is empty.
func BestSinglePromotion(price decimal.Decimal, promos []models.Promotion) (*models.Promotion, decimal.Decimal) {
	if len(promos) == 0 {
		return nil, decimal.Zero
	}
	bestIdx, best := 0, DiscountAmount(promos[0], price)
	for i := 1; i < len(promos); i++ {
		if amount := DiscountAmount(promos[i], price); amount.GreaterThan(best) {
			bestIdx, best = i, amount
		}
	}
	return &promos[bestIdx], best
}

func hasNonStackable(promos []models.Promotion) bool {
	for _, p := range promos {
		if !p.IsStackable() {
			return true
		}
	}
	return false
}

func applyStacked(price decimal.Decimal, promos []models.Promotion) decimal.Decimal {
	type ranked struct {
		promo  models.Promotion
		amount decimal.Decimal
	}
	order := make([]ranked, len(promos))
	for i, p := range promos {
		order[i] = ranked{promo: p, amount: DiscountAmount(p, price)}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].amount.GreaterThan(order[j].amount)
	})

	running := price
	for _, r := range order {
		if !running.IsPositive() {
			return decimal.Zero
		}
		running = running.Sub(DiscountAmount(r.promo, running))
	}
	if running.IsNegative() {
		return decimal.Zero
	}
	return running
}

func (s *PricingService) product(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return product, nil
}

// attachedPromotion returns nil when the product has no promotion or it no longer exists.
func (s *PricingService) attachedPromotion(ctx context.Context, product models.Product) (*models.Promotion, error) {
	if product.PromotionID == nil || *product.PromotionID == "" {
		return nil, nil
	}
	promo, err := s.promotions.FindByID(ctx, *product.PromotionID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			s.logger.Warn("product references missing promotion",
				zap.String("product_id", product.ID),
				zap.String("promotion_id", *product.PromotionID))
			return nil, nil
		}
		return nil, mapRepositoryError(err)
	}
	return promo, nil
}

func (s *PricingService) observe(mode string, started time.Time) {
	s.metrics.ObservePricing(mode, float64(time.Since(started).Microseconds())/1000)
}
