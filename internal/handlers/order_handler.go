package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/internal/middleware"
	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logging.OrNop(logger),
	}
}

// RegisterRoutes registers the order routes. The router must run AuthRequired first.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Get("/:id/history", h.HandleGetOrderHistory)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
}

// OrderLineRequest is one line of a CreateOrderRequest.
type OrderLineRequest struct {
	VariantID      string `json:"variant_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	GiftVariantID  string `json:"gift_variant_id" validate:"required_with=GiftedQuantity"`
	GiftedQuantity int    `json:"gifted_quantity" validate:"gte=0"`
}

// CreateOrderRequest is the body of POST /orders. The buyer is the authenticated caller.
type CreateOrderRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=COD VNPAY BANK_TRANSFER"`
	ShippingFee   decimal.Decimal      `json:"shipping_fee"`
	Lines         []OrderLineRequest   `json:"lines" validate:"required,min=1,dive"`
}

// UpdateStatusRequest is the body of PATCH /orders/:id/status.
type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	CancelReason   string `json:"cancel_reason" validate:"max=500"`
}

// CancelOrderRequest is the body of POST /orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// HandleCreateOrder places an order for the caller and takes its lines off stock.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	lines := make([]services.OrderLineInput, len(req.Lines))
	for i, line := range req.Lines {
		lines[i] = services.OrderLineInput{
			VariantID:      line.VariantID,
			Quantity:       line.Quantity,
			GiftVariantID:  line.GiftVariantID,
			GiftedQuantity: line.GiftedQuantity,
		}
	}
	order, err := h.service.CreateOrder(c.UserContext(), services.CreateOrderCommand{
		UserID:        middleware.UserID(c),
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingFee,
		Lines:         lines,
	})
	if err != nil {
		h.logger.Info("order creation rejected", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
		return errorResponse(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleGetOrderHistory lists the status history of an order, oldest first.
func (h *OrderHandler) HandleGetOrderHistory(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, "Could not retrieve order history", err)
	}
	return c.JSON(entries)
}

// HandleUpdateOrderStatus moves an order to the requested status on behalf of the caller.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	entry, err := h.service.ApplyTransition(c.UserContext(), services.UpdateStatusCommand{
		OrderID:        orderID,
		Status:         req.Status,
		ActorID:        middleware.UserID(c),
		TrackingNumber: req.TrackingNumber,
		CancelReason:   req.CancelReason,
	})
	if err != nil {
		h.logger.Info("order status update rejected",
			zap.String("order_id", orderID), zap.String("status", req.Status), zap.Error(err))
		return errorResponse(c, "Could not update order status", err)
	}
	return c.JSON(entry)
}

// HandleCancelOrder cancels a pending order and returns its stock.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var req CancelOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequestBody(c, err)
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	err := h.service.CancelOrder(c.UserContext(), services.CancelOrderCommand{
		OrderID: orderID,
		ActorID: middleware.UserID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.Info("order cancellation rejected", zap.String("order_id", orderID), zap.Error(err))
		return errorResponse(c, "Could not cancel order", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order " + orderID + " canceled",
	})
}
