package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is an order-level discount offered to one customer group.
type Voucher struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code          string          `json:"code" gorm:"uniqueIndex;type:varchar(50)"`
	DiscountValue decimal.Decimal `json:"discount_value" gorm:"type:decimal(12,2)"`
	MinOrderValue decimal.Decimal `json:"min_order_value" gorm:"type:decimal(12,2)"`
	Status        bool            `json:"status"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	CustomerGroup string          `json:"customer_group" gorm:"index;type:varchar(30)"`
}
