package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// FindByID loads an order with its lines. Inside a unit of work the order row is locked
// until commit.
func (r *GORMOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	q := conn(ctx, r.db).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
	if inGORMTx(ctx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s not found: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create inserts the order and its lines.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == "" {
			order.Lines[i].ID = uuid.New().String()
		}
		order.Lines[i].OrderID = order.ID
	}
	if order.Version == 0 {
		order.Version = 1
	}
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Save updates the order row guarded by its version.
func (r *GORMOrderRepository) Save(ctx context.Context, order *models.Order) error {
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":         order.Status,
			"total":          order.Total,
			"shipping_fee":   order.ShippingFee,
			"payment_method": order.PaymentMethod,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s at version %d: %w", order.ID, order.Version, ErrConflict)
	}
	order.Version++
	return nil
}

// FindPendingExpired lists overdue candidates ordered by order date.
func (r *GORMOrderRepository) FindPendingExpired(ctx context.Context, method models.PaymentMethod, before time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := conn(ctx, r.db).Preload("Lines").
		Where("payment_method = ? AND status = ? AND order_date < ?", method, models.OrderStatusPending, before).
		Order("order_date, id").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending %s orders before %s: %w", method, before.Format(time.DateOnly), err)
	}
	return orders, nil
}

var historySeq atomic.Int64

func init() {
	historySeq.Store(time.Now().UnixNano())
}

// GORMHistoryRepository is a GORM implementation of HistoryRepository.
type GORMHistoryRepository struct {
	db *gorm.DB
}

// NewGORMHistoryRepository creates a new instance of GORMHistoryRepository.
func NewGORMHistoryRepository(db *gorm.DB) *GORMHistoryRepository {
	return &GORMHistoryRepository{db: db}
}

// Append inserts one history entry. Entries are never updated afterwards.
func (r *GORMHistoryRepository) Append(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.Seq = historySeq.Add(1)
	if err := conn(ctx, r.db).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append history for order %s: %w", entry.OrderID, err)
	}
	return nil
}

// FindByOrder returns the history of one order, oldest first.
func (r *GORMHistoryRepository) FindByOrder(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	err := conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC, seq ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get history for order %s: %w", orderID, err)
	}
	return entries, nil
}
