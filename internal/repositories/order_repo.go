package repositories

import (
	"context"
	"time"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// Save persists the order row (not its lines) and bumps Version. It returns ErrConflict
	// when the stored version no longer matches.
	Save(ctx context.Context, order *models.Order) error
	// FindPendingExpired lists PENDING orders paid with method whose order date is
	// strictly before the given date.
	FindPendingExpired(ctx context.Context, method models.PaymentMethod, before time.Time) ([]models.Order, error)
}

// HistoryRepository is the append-only store of order status history.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.OrderStatusHistory) error
	// FindByOrder returns the entries of one order, oldest first.
	FindByOrder(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error)
}
