// Package domain contains subscription quota models.
//
// A quota is a client's pre-paid allotment of order count and/or unit
// quantity for one service under a subscription plan. Nil counters mean
// unlimited and are never decremented or compared numerically.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Quota struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	ClientID       snowflake.ID `gorm:"not null;index:ix_quotas_client_service,priority:1"`
	SubscriptionID snowflake.ID `gorm:"not null;index"`
	ServiceID      snowflake.ID `gorm:"not null;index:ix_quotas_client_service,priority:2"`

	OrdersLeft   *int64 `gorm:""`
	QuantityLeft *int64 `gorm:""`

	// Link binds the quota to a single target link. Empty matches any link.
	Link      string    `gorm:"type:text;not null;default:''"`
	ExpiresAt time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Quota) TableName() string { return "client_service_quotas" }

// Covers reports whether the quota can fund a batch of rows rows totalling
// quantity units against link.
func (q Quota) Covers(rows int, quantity int, link string, now time.Time) bool {
	if !q.ExpiresAt.After(now) {
		return false
	}
	if q.Link != "" && q.Link != link {
		return false
	}
	if q.OrdersLeft != nil && *q.OrdersLeft < int64(rows) {
		return false
	}
	if q.QuantityLeft != nil && *q.QuantityLeft < int64(quantity) {
		return false
	}
	return true
}

var (
	ErrQuotaNotFound = errors.New("quota_not_found")
	ErrQuotaDrained  = errors.New("quota_drained")
)
