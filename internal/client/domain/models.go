// Package domain contains the client wallet models.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client holds the prepaid wallet for a panel customer.
// BalanceCents is mutated only by the order engine, always under a row lock.
type Client struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Email           string       `gorm:"type:text;not null"`
	BalanceCents    int64        `gorm:"not null;default:0"`
	DiscountPercent float64      `gorm:"not null;default:0"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

// RateType distinguishes the two kinds of per-client rate overrides.
type RateType string

const (
	RateTypeFixed   RateType = "fixed"
	RateTypePercent RateType = "percent"
)

// CustomRate overrides a service's default rate for one client.
// Fixed rates carry UnitAmountCents; percent rates carry Percent of the
// service default.
type CustomRate struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ClientID        snowflake.ID `gorm:"not null;uniqueIndex:ux_custom_rates_client_service,priority:1"`
	ServiceID       snowflake.ID `gorm:"not null;uniqueIndex:ux_custom_rates_client_service,priority:2"`
	RateType        RateType     `gorm:"type:text;not null"`
	UnitAmountCents *int64       `gorm:""`
	Percent         *float64     `gorm:""`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CustomRate) TableName() string { return "client_custom_rates" }

var (
	ErrClientNotFound = errors.New("client_not_found")
)
