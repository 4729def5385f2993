package models

import (
	"errors"
	"fmt"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// ErrUnknownOrderStatus is returned by ParseOrderStatus for input outside the closed set.
var ErrUnknownOrderStatus = errors.New("unknown order status")

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  nil,
	OrderStatusCanceled:   nil,
}

// ParseOrderStatus maps raw input onto a known status. The match is exact: "confirmed"
// and " SHIPPED" are rejected.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	candidate := OrderStatus(raw)
	if _, ok := orderStatusTransitions[candidate]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOrderStatus, raw)
	}
	return candidate, nil
}

// CanTransition reports whether next is a legal successor of current.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderStatusTransitions[s]) == 0
}

func (s OrderStatus) String() string {
	return string(s)
}
