package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodVNPay        PaymentMethod = "VNPAY" // deferred online gateway, swept when unpaid
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodVNPay, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// OrderLine represents a single variant within an order.
type OrderLine struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string          `json:"order_id" gorm:"index;type:varchar(36)"`
	VariantID      string          `json:"variant_id" gorm:"type:varchar(36)" validate:"required"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"` // Price at the time of order
	GiftVariantID  *string         `json:"gift_variant_id,omitempty" gorm:"type:varchar(36)"`
	GiftedQuantity int             `json:"gifted_quantity" validate:"gte=0"`
}

// HasGift reports whether the line carries bonus units that were taken from stock.
func (l OrderLine) HasGift() bool {
	return l.GiftVariantID != nil && *l.GiftVariantID != "" && l.GiftedQuantity > 0
}

// Order represents a customer order.
type Order struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code          string          `json:"code" gorm:"uniqueIndex;type:varchar(64)"`
	UserID        string          `json:"user_id" gorm:"index;type:varchar(36)"`
	Status        OrderStatus     `json:"status" gorm:"index;type:varchar(20)"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	ShippingFee   decimal.Decimal `json:"shipping_fee" gorm:"type:decimal(12,2)"`
	OrderDate     time.Time       `json:"order_date" gorm:"index"` // calendar day, stored as UTC midnight
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"index;type:varchar(20)"`
	Lines         []OrderLine     `json:"lines" gorm:"foreignKey:OrderID"`
	Version       int             `json:"version"` // optimistic lock, bumped on every save
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderStatusHistory is the immutable audit record of one accepted status transition.
// A nil ChangedByID means the transition was made by the system.
type OrderStatusHistory struct {
	ID             string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Seq            int64       `json:"-" gorm:"index"` // insertion order, breaks CreatedAt ties
	OrderID        string      `json:"order_id" gorm:"index;type:varchar(36)"`
	Status         OrderStatus `json:"status" gorm:"type:varchar(20)"`
	ChangedByID    *string     `json:"changed_by_id,omitempty" gorm:"type:varchar(36)"`
	TrackingNumber *string     `json:"tracking_number,omitempty" gorm:"type:varchar(100)"`
	CancelReason   *string     `json:"cancel_reason,omitempty" gorm:"type:varchar(500)"`
	DeliveredAt    *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`
}

// TableName keeps the history rows in their own table.
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
