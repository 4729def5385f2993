package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
)

// PricingHandler exposes product prices and their promotions.
type PricingHandler struct {
	service *services.PricingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(service *services.PricingService) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes registers the product pricing routes.
func (h *PricingHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id/price", h.HandleSimplePrice)
	productRoutes.Get("/:id/final-price", h.HandleFinalPrice)
	productRoutes.Get("/:id/promotions", h.HandleAppliedPromotions)
	productRoutes.Get("/:id/promotion", h.HandleActivePromotion)
}

func priceResponse(productID string, price decimal.Decimal) fiber.Map {
	return fiber.Map{
		"product_id": productID,
		"price":      price.StringFixed(2),
	}
}

// HandleListProducts lists products with their final prices.
func (h *PricingHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return errorResponse(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleSimplePrice returns the price after the directly attached promotion.
func (h *PricingHandler) HandleSimplePrice(c *fiber.Ctx) error {
	productID := c.Params("id")
	price, err := h.service.SimplePrice(c.UserContext(), productID)
	if err != nil {
		return errorResponse(c, "Could not compute price", err)
	}
	return c.JSON(priceResponse(productID, price))
}

// HandleFinalPrice returns the price after every applicable promotion.
func (h *PricingHandler) HandleFinalPrice(c *fiber.Ctx) error {
	productID := c.Params("id")
	price, err := h.service.FinalPrice(c.UserContext(), productID)
	if err != nil {
		return errorResponse(c, "Could not compute final price", err)
	}
	return c.JSON(priceResponse(productID, price))
}

// HandleAppliedPromotions lists the promotions that apply to a product right now.
func (h *PricingHandler) HandleAppliedPromotions(c *fiber.Ctx) error {
	promos, err := h.service.AppliedPromotions(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, "Could not retrieve promotions", err)
	}
	return c.JSON(promos)
}

// HandleActivePromotion returns the product's attached promotion when it is running.
func (h *PricingHandler) HandleActivePromotion(c *fiber.Ctx) error {
	promo, err := h.service.ActivePromotion(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, "No active promotion", err)
	}
	return c.JSON(promo)
}
