package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	// FindByIDForUpdate locks the client row for the remainder of the
	// enclosing transaction. Every balance mutation goes through this.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	FindCustomRate(ctx context.Context, db *gorm.DB, clientID, serviceID snowflake.ID) (*CustomRate, error)
	// SaveCustomRate inserts the override, replacing an existing row for
	// the same (client, service) pair.
	SaveCustomRate(ctx context.Context, db *gorm.DB, rate *CustomRate) error
	AddBalance(ctx context.Context, db *gorm.DB, clientID snowflake.ID, deltaCents int64) error
}
