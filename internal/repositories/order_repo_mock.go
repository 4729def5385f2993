package repositories

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

// FindByID returns an order by its ID.
func (r *MockOrderRepository) FindByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s not found: %w", id, ErrRecordNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// Save replaces the stored order when the version matches.
func (r *MockOrderRepository) Save(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %s not found for update: %w", order.ID, ErrRecordNotFound)
	}
	if stored.Version != order.Version {
		return fmt.Errorf("order %s at version %d: %w", order.ID, order.Version, ErrConflict)
	}
	order.Version++
	order.UpdatedAt = time.Now()
	updated := cloneOrder(*order)
	updated.Lines = stored.Lines
	r.orders[order.ID] = updated
	return nil
}

// FindPendingExpired lists overdue candidates ordered by order date.
func (r *MockOrderRepository) FindPendingExpired(_ context.Context, method models.PaymentMethod, before time.Time) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Order
	for _, o := range r.orders {
		if o.PaymentMethod == method && o.Status == models.OrderStatusPending && o.OrderDate.Before(before) {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].OrderDate.Before(result[j].OrderDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MockOrderRepository) snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]models.Order, len(r.orders))
	for id, o := range r.orders {
		saved[id] = cloneOrder(o)
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.orders = maps.Clone(saved)
		r.mu.Unlock()
	}
}

// MockHistoryRepository is an in-memory implementation of HistoryRepository.
type MockHistoryRepository struct {
	entries []models.OrderStatusHistory
	seq     int64
	mu      sync.RWMutex
}

// NewMockHistoryRepository creates a new instance of MockHistoryRepository.
func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

// Append stores one history entry.
func (r *MockHistoryRepository) Append(_ context.Context, entry *models.OrderStatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.seq++
	entry.Seq = r.seq
	r.entries = append(r.entries, *entry)
	return nil
}

// FindByOrder returns the entries of one order, oldest first.
func (r *MockHistoryRepository) FindByOrder(_ context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.OrderStatusHistory
	for _, e := range r.entries {
		if e.OrderID == orderID {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (r *MockHistoryRepository) snapshot() func() {
	r.mu.RLock()
	saved := slices.Clone(r.entries)
	seq := r.seq
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.entries = saved
		r.seq = seq
		r.mu.Unlock()
	}
}
