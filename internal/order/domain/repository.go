package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DuplicateProbe is one service's slice of the batched duplicate-link check.
// A nil Since means no lookback bound.
type DuplicateProbe struct {
	ServiceID snowflake.ID
	Links     []string
	Since     *time.Time
}

// DuplicateHit identifies the first link already used on a still-active
// order.
type DuplicateHit struct {
	ServiceID snowflake.ID
	Link      string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, orders []*Order) error
	FindByID(ctx context.Context, db *gorm.DB, clientID, id snowflake.ID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]Order, error)

	// FindActiveDuplicate runs the whole duplicate-link guard as ONE
	// existence query covering every probe, and returns the first hit.
	FindActiveDuplicate(ctx context.Context, db *gorm.DB, probes []DuplicateProbe) (*DuplicateHit, error)

	// UpdateSettlement persists the mutable settlement fields of a locked
	// order row.
	UpdateSettlement(ctx context.Context, db *gorm.DB, order *Order) error

	CountForBulk(ctx context.Context, db *gorm.DB, req BulkCancelRequest) (int64, error)
	// ListIDsForBulk pages through the bulk-eligible set by keyset on id.
	ListIDsForBulk(ctx context.Context, db *gorm.DB, req BulkCancelRequest, afterID snowflake.ID, limit int) ([]snowflake.ID, error)
}
