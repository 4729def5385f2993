package services

import (
	"github.com/shopspring/decimal"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount is the money promo takes off price. PERCENTAGE rates are capped at 100%
// and rounded to 4 places before use, amounts are rounded to 2 places half-up, and FIXED
// never exceeds price. BUY_X_GET_Y and GIFT reduce nothing. A MaxDiscount clamps the
// amount computed against this price. The result is never negative.
func DiscountAmount(promo models.Promotion, price decimal.Decimal) decimal.Decimal {
	if promo.DiscountValue == nil || !price.IsPositive() {
		return decimal.Zero
	}
	value := *promo.DiscountValue
	if value.IsNegative() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch promo.Type {
	case models.PromotionTypePercentage:
		rate := decimal.Min(value, hundred).DivRound(hundred, 4)
		amount = price.Mul(rate).Round(2)
	case models.PromotionTypeFixed:
		amount = decimal.Min(value, price).Round(2)
	default:
		return decimal.Zero
	}

	if promo.MaxDiscount != nil && !promo.MaxDiscount.IsNegative() && amount.GreaterThan(*promo.MaxDiscount) {
		amount = *promo.MaxDiscount
	}
	return decimal.Max(amount, decimal.Zero)
}
