// Package domain contains persistence models for the service catalog.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category groups services offered on the panel.
type Category struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Category) TableName() string { return "categories" }

// Service is a purchasable quantity-based service.
type Service struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CategoryID snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`

	MinQuantity int    `gorm:"not null;default:1"`
	MaxQuantity *int   `gorm:""`
	Increment   int    `gorm:"not null;default:0"`

	// RateAmountCents is the default sell rate per 100 units.
	RateAmountCents int64  `gorm:"not null"`
	// CostAmountCents is the provider cost per 100 units, when known.
	CostAmountCents *int64 `gorm:""`

	DenyLinkDuplicates   bool `gorm:"not null;default:false"`
	DuplicateWindowDays  int  `gorm:"not null;default:0"`
	UserCanCancel        bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Service) TableName() string { return "services" }

// ServiceOverride is a per-client override of quantity constraints.
// A nil field inherits the service default.
type ServiceOverride struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ClientID    snowflake.ID `gorm:"not null;uniqueIndex:ux_service_overrides_client_service,priority:1"`
	ServiceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_service_overrides_client_service,priority:2"`
	MinQuantity *int         `gorm:""`
	MaxQuantity *int         `gorm:""`
	Increment   *int         `gorm:""`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServiceOverride) TableName() string { return "client_service_overrides" }

// QuantityRule is the effective min/max/increment for one client+service pair.
type QuantityRule struct {
	Min       int
	Max       *int
	Increment int
}

// Resolve merges a service's defaults with an optional per-client override.
func (s Service) Resolve(override *ServiceOverride) QuantityRule {
	rule := QuantityRule{
		Min:       s.MinQuantity,
		Max:       s.MaxQuantity,
		Increment: s.Increment,
	}
	if override == nil {
		return rule
	}
	if override.MinQuantity != nil {
		rule.Min = *override.MinQuantity
	}
	if override.MaxQuantity != nil {
		rule.Max = override.MaxQuantity
	}
	if override.Increment != nil {
		rule.Increment = *override.Increment
	}
	return rule
}

var (
	ErrServiceNotFound  = errors.New("service_not_found")
	ErrCategoryNotFound = errors.New("category_not_found")
)
