package models

import "time"

// User represents a user of the store. Users are also the actors recorded on order history.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name          string    `json:"name" gorm:"type:varchar(150)" validate:"omitempty,max=150"`
	Username      string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email         string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password      string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"`
	CustomerGroup string    `json:"customer_group" gorm:"type:varchar(30)"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
