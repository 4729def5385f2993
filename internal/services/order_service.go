package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/metrics"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/rabbitmq"
)

// OverdueCancelReason is recorded on orders canceled by the sweep.
const OverdueCancelReason = "Automatically cancelled due to overdue payment"

const (
	defaultSweepPaymentMethod = models.PaymentMethodVNPay
	defaultSweepGrace         = 12 * time.Hour
)

// OrderEventPublisher publishes order lifecycle events after commit.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event rabbitmq.OrderEvent) error
}

// LinePricer prices one unit of a product at order time.
type LinePricer interface {
	FinalPrice(ctx context.Context, productID string) (decimal.Decimal, error)
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Histories  repositories.HistoryRepository
	Users      repositories.UserRepository
	Inventory  *InventoryService
	Pricing    LinePricer
	UnitOfWork repositories.UnitOfWork
	Events     OrderEventPublisher
	Metrics    *metrics.OrderMetrics
	Clock      Clock
	Logger     *zap.Logger

	// Location is the business time zone order dates and the sweep deadline are
	// reckoned in. Defaults to UTC.
	Location *time.Location

	SweepPaymentMethod models.PaymentMethod
	SweepGrace         time.Duration
}

// OrderLineInput is one requested line. GiftVariantID is required when GiftedQuantity is
// positive.
type OrderLineInput struct {
	VariantID      string
	Quantity       int
	GiftVariantID  string
	GiftedQuantity int
}

// CreateOrderCommand places a new order for UserID.
type CreateOrderCommand struct {
	UserID        string
	PaymentMethod models.PaymentMethod
	ShippingFee   decimal.Decimal
	Lines         []OrderLineInput
}

// UpdateStatusCommand asks for one status transition. TrackingNumber is only recorded for
// SHIPPED and CancelReason only for CANCELED.
type UpdateStatusCommand struct {
	OrderID        string
	Status         string
	ActorID        string
	TrackingNumber string
	CancelReason   string
}

// CancelOrderCommand asks for a manual cancellation with stock restoration.
type CancelOrderCommand struct {
	OrderID string
	ActorID string
	Reason  string
}

// HistoryEntry is a history row joined with its actor. System changes have an empty
// ChangedByID and a nil ChangedByName.
type HistoryEntry struct {
	ID             string             `json:"id"`
	OrderID        string             `json:"order_id"`
	Status         models.OrderStatus `json:"status"`
	ChangedByID    string             `json:"changed_by_id"`
	ChangedByName  *string            `json:"changed_by_name"`
	TrackingNumber *string            `json:"tracking_number,omitempty"`
	CancelReason   *string            `json:"cancel_reason,omitempty"`
	DeliveredAt    *time.Time         `json:"delivered_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// SweepResult summarizes one overdue-payment sweep.
type SweepResult struct {
	Examined    int      `json:"examined"`
	Canceled    int      `json:"canceled"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	CanceledIDs []string `json:"canceled_ids"`
}

// OrderService owns the order lifecycle: status transitions, manual cancellation and the
// overdue-payment sweep.
type OrderService struct {
	orders     repositories.OrderRepository
	histories  repositories.HistoryRepository
	users      repositories.UserRepository
	inventory  *InventoryService
	pricing    LinePricer
	unitOfWork repositories.UnitOfWork
	events     OrderEventPublisher
	metrics    *metrics.OrderMetrics
	clock      Clock
	logger     *zap.Logger
	location   *time.Location

	sweepMethod models.PaymentMethod
	sweepGrace  time.Duration
}

// NewOrderService wires dependencies into an OrderService.
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Histories == nil {
		return nil, errors.New("order service: history repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricer is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	method := deps.SweepPaymentMethod
	if method == "" {
		method = defaultSweepPaymentMethod
	}
	grace := deps.SweepGrace
	if grace <= 0 {
		grace = defaultSweepGrace
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	return &OrderService{
		orders:      deps.Orders,
		histories:   deps.Histories,
		users:       deps.Users,
		inventory:   deps.Inventory,
		pricing:     deps.Pricing,
		unitOfWork:  deps.UnitOfWork,
		events:      deps.Events,
		metrics:     deps.Metrics,
		clock:       deps.Clock.orDefault(),
		logger:      logging.OrNop(deps.Logger),
		location:    loc,
		sweepMethod: method,
		sweepGrace:  grace,
	}, nil
}

// GetOrder returns an order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return order, nil
}

// CreateOrder places a PENDING order dated today. Every line and gift is taken off stock
// and priced inside one unit of work, so an order that cannot be fully reserved leaves
// stock untouched.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*models.Order, error) {
	if err := validateCreateOrder(cmd); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, cmd.UserID); err != nil {
			return mapRepositoryError(err)
		}

		lines := make([]models.OrderLine, 0, len(cmd.Lines))
		subtotal := decimal.Zero
		for _, in := range cmd.Lines {
			variant, err := s.inventory.Adjust(ctx, in.VariantID, -in.Quantity)
			if err != nil {
				return fmt.Errorf("reserve variant %s: %w", in.VariantID, err)
			}
			price, err := s.pricing.FinalPrice(ctx, variant.ProductID)
			if err != nil {
				return fmt.Errorf("price variant %s: %w", in.VariantID, err)
			}

			line := models.OrderLine{VariantID: variant.ID, Quantity: in.Quantity, UnitPrice: price}
			if in.GiftedQuantity > 0 {
				if _, err := s.inventory.Adjust(ctx, in.GiftVariantID, -in.GiftedQuantity); err != nil {
					return fmt.Errorf("reserve gift variant %s: %w", in.GiftVariantID, err)
				}
				giftID := in.GiftVariantID
				line.GiftVariantID = &giftID
				line.GiftedQuantity = in.GiftedQuantity
			}
			subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(in.Quantity))))
			lines = append(lines, line)
		}

		now := s.clock()
		order = &models.Order{
			Code:          newOrderCode(now),
			UserID:        cmd.UserID,
			Status:        models.OrderStatusPending,
			Total:         subtotal.Add(cmd.ShippingFee).Round(2),
			ShippingFee:   cmd.ShippingFee.Round(2),
			OrderDate:     calendarDate(now, s.location),
			PaymentMethod: cmd.PaymentMethod,
			Lines:         lines,
		}
		return mapRepositoryError(s.orders.Create(ctx, order))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("code", order.Code),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.StringFixed(2)))
	s.publish(ctx, rabbitmq.OrderEvent{
		Type:       rabbitmq.EventOrderCreated,
		OrderID:    order.ID,
		To:         models.OrderStatusPending.String(),
		ActorID:    order.UserID,
		OccurredAt: s.clock(),
	})
	return order, nil
}

func validateCreateOrder(cmd CreateOrderCommand) error {
	if !cmd.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unsupported payment method %q", ErrBadRequest, cmd.PaymentMethod)
	}
	if cmd.ShippingFee.IsNegative() {
		return fmt.Errorf("%w: shipping fee must not be negative", ErrBadRequest)
	}
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: an order needs at least one line", ErrBadRequest)
	}
	for i, line := range cmd.Lines {
		switch {
		case line.VariantID == "":
			return fmt.Errorf("%w: line %d has no variant", ErrBadRequest, i)
		case line.Quantity <= 0:
			return fmt.Errorf("%w: line %d quantity must be positive", ErrBadRequest, i)
		case line.GiftedQuantity < 0:
			return fmt.Errorf("%w: line %d gifted quantity must not be negative", ErrBadRequest, i)
		case line.GiftedQuantity > 0 && line.GiftVariantID == "":
			return fmt.Errorf("%w: line %d has gifted units but no gift variant", ErrBadRequest, i)
		}
	}
	return nil
}

func newOrderCode(now time.Time) string {
	return "SO-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// ApplyTransition moves an order along the transition table and appends one history row.
// The order write precedes the history write; both commit together.
func (s *OrderService) ApplyTransition(ctx context.Context, cmd UpdateStatusCommand) (HistoryEntry, error) {
	var (
		entry HistoryEntry
		from  models.OrderStatus
		to    models.OrderStatus
	)
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, cmd.OrderID)
		if err != nil {
			return mapRepositoryError(err)
		}
		next, err := models.ParseOrderStatus(cmd.Status)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
		}
		if !order.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, next)
		}
		actor, err := s.users.GetByID(ctx, cmd.ActorID)
		if err != nil {
			return mapRepositoryError(err)
		}

		from, to = order.Status, next
		history, err := s.writeTransition(ctx, order, next, &actor.ID, cmd.TrackingNumber, cmd.CancelReason)
		if err != nil {
			return err
		}
		entry = toHistoryEntry(*history, actor)
		return nil
	})
	if err != nil {
		return HistoryEntry{}, err
	}

	s.afterTransition(ctx, cmd.OrderID, from, to, cmd.ActorID, cmd.CancelReason)
	return entry, nil
}

// CancelOrder cancels a PENDING order and restores the stock of every line. Stock,
// status and history change together or not at all.
func (s *OrderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) error {
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, cmd.OrderID)
		if err != nil {
			return mapRepositoryError(err)
		}
		actor, err := s.users.GetByID(ctx, cmd.ActorID)
		if err != nil {
			return mapRepositoryError(err)
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order %s is %s, only PENDING orders can be canceled", ErrIllegalState, order.ID, order.Status)
		}
		if len(order.Lines) == 0 {
			return fmt.Errorf("%w: order %s has no lines", ErrBadRequest, order.ID)
		}

		if err := s.inventory.Restore(ctx, order.Lines); err != nil {
			return err
		}
		_, err = s.writeTransition(ctx, order, models.OrderStatusCanceled, &actor.ID, "", cmd.Reason)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("order canceled", zap.String("order_id", cmd.OrderID), zap.String("actor_id", cmd.ActorID))
	s.afterTransition(ctx, cmd.OrderID, models.OrderStatusPending, models.OrderStatusCanceled, cmd.ActorID, cmd.Reason)
	return nil
}

var errSweepSkip = errors.New("order no longer pending")

// CancelOverdueOrders cancels unpaid orders of the swept payment method once their grace
// period has passed. Stock is not restored. Each order commits on its own; a failed order
// stays PENDING for the next run. Only a failing candidate query is returned as an error.
func (s *OrderService) CancelOverdueOrders(ctx context.Context) (SweepResult, error) {
	now := s.clock()
	result := SweepResult{CanceledIDs: []string{}}

	candidates, err := s.orders.FindPendingExpired(ctx, s.sweepMethod, calendarDate(now, s.location))
	if err != nil {
		return result, fmt.Errorf("find overdue orders: %w", mapRepositoryError(err))
	}

	for _, candidate := range candidates {
		result.Examined++
		deadline := midnightIn(candidate.OrderDate, s.location).Add(s.sweepGrace)
		if !deadline.Before(now) {
			result.Skipped++
			continue
		}

		err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
			order, err := s.orders.FindByID(ctx, candidate.ID)
			if err != nil {
				return mapRepositoryError(err)
			}
			if order.Status != models.OrderStatusPending {
				return errSweepSkip
			}
			_, err = s.writeTransition(ctx, order, models.OrderStatusCanceled, nil, "", OverdueCancelReason)
			return err
		})
		switch {
		case errors.Is(err, errSweepSkip):
			result.Skipped++
		case err != nil:
			result.Failed++
			s.logger.Warn("overdue order cancellation failed", zap.String("order_id", candidate.ID), zap.Error(err))
		default:
			result.Canceled++
			result.CanceledIDs = append(result.CanceledIDs, candidate.ID)
			s.afterTransition(ctx, candidate.ID, models.OrderStatusPending, models.OrderStatusCanceled, "", OverdueCancelReason)
		}
	}

	s.metrics.ObserveSweep(result.Canceled, result.Failed)
	s.logger.Info("overdue order sweep finished",
		zap.String("payment_method", string(s.sweepMethod)),
		zap.Int("examined", result.Examined),
		zap.Int("canceled", result.Canceled),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// History returns the audit trail of an order, oldest first.
func (s *OrderService) History(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, mapRepositoryError(err)
	}
	rows, err := s.histories.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	actors := make(map[string]*models.User)
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		var actor *models.User
		if row.ChangedByID != nil {
			id := *row.ChangedByID
			cached, ok := actors[id]
			if !ok {
				user, err := s.users.GetByID(ctx, id)
				if err != nil && !errors.Is(err, repositories.ErrRecordNotFound) {
					return nil, mapRepositoryError(err)
				}
				cached = user
				actors[id] = user
			}
			actor = cached
		}
		entry := toHistoryEntry(row, actor)
		if actor == nil && row.ChangedByID != nil {
			entry.ChangedByID = *row.ChangedByID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// writeTransition saves the new status and then appends the matching history row.
func (s *OrderService) writeTransition(ctx context.Context, order *models.Order, next models.OrderStatus, actorID *string, trackingNumber, cancelReason string) (*models.OrderStatusHistory, error) {
	now := s.clock()
	order.Status = next
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, mapRepositoryError(err)
	}

	history := &models.OrderStatusHistory{
		OrderID:     order.ID,
		Status:      next,
		ChangedByID: actorID,
		CreatedAt:   now,
	}
	switch next {
	case models.OrderStatusShipped:
		history.TrackingNumber = optionalString(trackingNumber)
	case models.OrderStatusCanceled:
		history.CancelReason = optionalString(cancelReason)
	case models.OrderStatusDelivered:
		history.DeliveredAt = &now
	}
	if err := s.histories.Append(ctx, history); err != nil {
		return nil, mapRepositoryError(err)
	}
	return history, nil
}

func (s *OrderService) afterTransition(ctx context.Context, orderID string, from, to models.OrderStatus, actorID, reason string) {
	s.metrics.ObserveTransition(from.String(), to.String())
	s.logger.Debug("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	eventType := rabbitmq.EventOrderStatusChanged
	if to == models.OrderStatusCanceled {
		eventType = rabbitmq.EventOrderCanceled
	}
	event := rabbitmq.OrderEvent{
		Type:       eventType,
		OrderID:    orderID,
		From:       from.String(),
		To:         to.String(),
		ActorID:    actorID,
		OccurredAt: s.clock(),
	}
	if to == models.OrderStatusCanceled {
		event.Reason = reason
	}
	s.publish(ctx, event)
}

func (s *OrderService) publish(ctx context.Context, event rabbitmq.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event", zap.String("order_id", event.OrderID), zap.String("type", event.Type), zap.Error(err))
	}
}

func toHistoryEntry(row models.OrderStatusHistory, actor *models.User) HistoryEntry {
	entry := HistoryEntry{
		ID:             row.ID,
		OrderID:        row.OrderID,
		Status:         row.Status,
		TrackingNumber: row.TrackingNumber,
		CancelReason:   row.CancelReason,
		DeliveredAt:    row.DeliveredAt,
		CreatedAt:      row.CreatedAt,
	}
	if actor != nil {
		entry.ChangedByID = actor.ID
		name := actor.Name
		entry.ChangedByName = &name
	}
	return entry
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
