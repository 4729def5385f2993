package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
)

// InventoryService is the stock ledger. Every change goes through a single conditional
// store update so stock never drops below zero.
type InventoryService struct {
	variants repositories.VariantRepository
	logger   *zap.Logger
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(variants repositories.VariantRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		variants: variants,
		logger:   logging.OrNop(logger),
	}
}

// Adjust adds delta to a variant's stock.
func (s *InventoryService) Adjust(ctx context.Context, variantID string, delta int) (*models.ProductVariant, error) {
	variant, err := s.variants.AdjustStock(ctx, variantID, delta)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return variant, nil
}

// Restore puts the units of every line back on stock, including bonus units of lines that
// carry a gift. Callers run it inside a unit of work so a failure undoes earlier lines.
func (s *InventoryService) Restore(ctx context.Context, lines []models.OrderLine) error {
	for _, line := range lines {
		if _, err := s.Adjust(ctx, line.VariantID, line.Quantity); err != nil {
			return fmt.Errorf("restore variant %s: %w", line.VariantID, err)
		}
		if line.HasGift() {
			if _, err := s.Adjust(ctx, *line.GiftVariantID, line.GiftedQuantity); err != nil {
				return fmt.Errorf("restore gift variant %s: %w", *line.GiftVariantID, err)
			}
		}
		s.logger.Debug("stock restored",
			zap.String("variant_id", line.VariantID),
			zap.Int("quantity", line.Quantity),
			zap.Int("gifted_quantity", line.GiftedQuantity))
	}
	return nil
}
