package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType tags what a wallet mutation was for.
type EntryType string

const (
	EntryTypeOrderCharge        EntryType = "order_charge"
	EntryTypeRefund             EntryType = "refund"
	EntryTypeSubscriptionCharge EntryType = "subscription_charge"
)

// Entry is an immutable, signed record of a wallet balance change, written
// in the same transaction as the mutation it explains. Batch-level charges
// carry a nil OrderID and the shared BatchID.
type Entry struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	ClientID    snowflake.ID  `gorm:"not null;index"`
	OrderID     *snowflake.ID `gorm:"index"`
	BatchID     *string       `gorm:"type:text;index"`
	AmountCents int64         `gorm:"not null"`
	Type        EntryType     `gorm:"type:text;not null;index"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "client_transactions" }

var (
	ErrInvalidClient = errors.New("invalid_client")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidType   = errors.New("invalid_entry_type")
)
