package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/HuuVinh0901/shoe-store-backend/internal/middleware"
	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
)

// VoucherHandler exposes voucher eligibility for the authenticated user.
type VoucherHandler struct {
	service *services.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(service *services.VoucherService) *VoucherHandler {
	return &VoucherHandler{service: service}
}

// RegisterRoutes registers the voucher routes. The router must run AuthRequired first.
func (h *VoucherHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/vouchers/eligible", h.HandleEligibleVouchers)
}

// HandleEligibleVouchers lists vouchers usable on an order of the given value.
func (h *VoucherHandler) HandleEligibleVouchers(c *fiber.Ctx) error {
	value, err := decimal.NewFromString(c.Query("value"))
	if err != nil || value.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'value' must be a non-negative amount",
		})
	}

	vouchers, err := h.service.EligibleVouchers(c.UserContext(), middleware.UserID(c), value)
	if err != nil {
		return errorResponse(c, "Could not retrieve vouchers", err)
	}
	return c.JSON(vouchers)
}
