package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindEligibleForUpdate locks and returns one quota able to fund a batch
	// of rows orders totalling quantity units against link, or nil.
	FindEligibleForUpdate(ctx context.Context, db *gorm.DB, clientID, serviceID snowflake.ID, rows, quantity int, link string, now time.Time) (*Quota, error)

	// Consume decrements the non-nil counters of a previously locked quota.
	Consume(ctx context.Context, db *gorm.DB, quota *Quota, rows, quantity int) error

	// Restore credits counters back on the still-active quota for the
	// subscription, skipping nil counters. Returns false when no active
	// quota row remains.
	Restore(ctx context.Context, db *gorm.DB, clientID, subscriptionID, serviceID snowflake.ID, orders, quantity int, now time.Time) (bool, error)
}
