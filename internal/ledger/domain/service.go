package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// PostTx appends an entry using the caller's open transaction, so the
	// entry commits or rolls back together with the balance mutation it
	// explains.
	PostTx(ctx context.Context, tx *gorm.DB, entry Entry) error

	ListByClient(ctx context.Context, clientID snowflake.ID) ([]Entry, error)
}
