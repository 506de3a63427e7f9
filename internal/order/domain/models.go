// Package domain contains the order models and engine contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrderStatus is the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusAwaiting   OrderStatus = "awaiting"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusPartial    OrderStatus = "partial"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusFail       OrderStatus = "fail"
)

// Terminal reports whether settlement may still touch the order.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCanceled, OrderStatusFail:
		return true
	}
	return false
}

// PaymentSource records how an order's charge was funded. Fixed at creation;
// every settlement branch keys off this together with SubscriptionID.
type PaymentSource string

const (
	PaymentSourceBalance      PaymentSource = "balance"
	PaymentSourceSubscription PaymentSource = "subscription"
)

// Order is one purchased row. Quantity and ChargeCents are immutable once
// set; refund math always reuses the stored charge, never re-prices.
type Order struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ClientID  snowflake.ID `gorm:"not null;index"`
	ServiceID snowflake.ID `gorm:"not null;index"`
	BatchID   string       `gorm:"type:text;not null;index"`

	Link     string `gorm:"type:text;not null"`
	Quantity int    `gorm:"not null"`

	ChargeCents int64  `gorm:"not null"`
	CostCents   *int64 `gorm:""`

	Delivered int `gorm:"not null;default:0"`
	Remains   int `gorm:"not null"`
	// RefundedUnits is the undelivered count already settled by a refund
	// or quota restore. Later settlements pay only beyond this mark.
	RefundedUnits int `gorm:"not null;default:0"`

	Status         OrderStatus   `gorm:"type:text;not null;index"`
	PaymentSource  PaymentSource `gorm:"type:text;not null"`
	SubscriptionID *snowflake.ID `gorm:"index"`

	CreatedBy string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// activeDuplicateStatuses is the "still active or recently failed" set used
// by the duplicate-link guard.
var ActiveDuplicateStatuses = []OrderStatus{
	OrderStatusAwaiting,
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusProcessing,
	OrderStatusFail,
}
