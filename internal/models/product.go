package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products for promotion scope matching.
type Category struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
}

// Product represents a product in the store.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	CategoryID  string          `json:"category_id" gorm:"index;type:varchar(36)"`
	PromotionID *string         `json:"promotion_id,omitempty" gorm:"type:varchar(36)"` // directly attached promotion
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductVariant is a stocked size/colour of a product. StockQuantity never goes below zero.
type ProductVariant struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID     string    `json:"product_id" gorm:"index;type:varchar(36)"`
	Size          string    `json:"size" gorm:"type:varchar(10)"`
	Color         string    `json:"color" gorm:"type:varchar(30)"`
	StockQuantity int       `json:"stock_quantity" validate:"gte=0"`
	UpdatedAt     time.Time `json:"updated_at"`
}
