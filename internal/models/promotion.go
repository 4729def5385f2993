package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromotionType decides how DiscountValue is interpreted.
type PromotionType string

const (
	PromotionTypePercentage PromotionType = "PERCENTAGE"
	PromotionTypeFixed      PromotionType = "FIXED"
	PromotionTypeBuyXGetY   PromotionType = "BUY_X_GET_Y"
	PromotionTypeGift       PromotionType = "GIFT"
)

// PromotionStatus is the administrative state of a promotion.
type PromotionStatus string

const (
	PromotionStatusUpcoming PromotionStatus = "UPCOMING"
	PromotionStatusActive   PromotionStatus = "ACTIVE"
	PromotionStatusExpired  PromotionStatus = "EXPIRED"
	PromotionStatusInactive PromotionStatus = "INACTIVE"
)

// PromotionScope decides which products a promotion applies to.
type PromotionScope string

const (
	PromotionScopeAll        PromotionScope = "ALL"
	PromotionScopeCategories PromotionScope = "CATEGORIES"
	PromotionScopeProducts   PromotionScope = "PRODUCTS"
)

// PromotionCategory links a promotion to one category of its scope.
type PromotionCategory struct {
	PromotionID string `json:"promotion_id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID  string `json:"category_id" gorm:"primaryKey;type:varchar(36)"`
}

// PromotionProduct links a promotion to one product of its scope.
type PromotionProduct struct {
	PromotionID string `json:"promotion_id" gorm:"primaryKey;type:varchar(36)"`
	ProductID   string `json:"product_id" gorm:"primaryKey;type:varchar(36)"`
}

// Promotion is a time-boxed discount rule.
type Promotion struct {
	ID            string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string              `json:"name" gorm:"type:varchar(150)"`
	Type          PromotionType       `json:"type" gorm:"type:varchar(20)"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty" gorm:"type:decimal(12,2)"`
	MaxDiscount   *decimal.Decimal    `json:"max_discount,omitempty" gorm:"type:decimal(12,2)"`
	Status        PromotionStatus     `json:"status" gorm:"index;type:varchar(20)"`
	StartDate     time.Time           `json:"start_date" gorm:"index"`
	EndDate       time.Time           `json:"end_date" gorm:"index"`
	ApplicableTo  PromotionScope      `json:"applicable_to" gorm:"type:varchar(20)"`
	Categories    []PromotionCategory `json:"categories,omitempty" gorm:"foreignKey:PromotionID"`
	Products      []PromotionProduct  `json:"products,omitempty" gorm:"foreignKey:PromotionID"`
	Stackable     *bool               `json:"stackable,omitempty"`
	BuyQuantity   int                 `json:"buy_quantity,omitempty"`
	GetQuantity   int                 `json:"get_quantity,omitempty"`
	GiftVariantID *string             `json:"gift_variant_id,omitempty" gorm:"type:varchar(36)"`
}

// IsStackable treats an unset flag as false.
func (p Promotion) IsStackable() bool {
	return p.Stackable != nil && *p.Stackable
}

// CoversCategory reports whether categoryID is part of the promotion's category set.
func (p Promotion) CoversCategory(categoryID string) bool {
	for _, c := range p.Categories {
		if c.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// CoversProduct reports whether productID is part of the promotion's explicit product set.
func (p Promotion) CoversProduct(productID string) bool {
	for _, pp := range p.Products {
		if pp.ProductID == productID {
			return true
		}
	}
	return false
}
