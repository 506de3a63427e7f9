// Package events implements a transactional outbox. Rows are written with
// the caller's open transaction and only become visible to the relay after
// that transaction commits, so a rolled-back order can never trigger
// external work.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	EventOrderCreated = "order.created"
)

const (
	StatusPending    = "pending"
	StatusDelivering = "delivering"
	StatusDispatched = "dispatched"
)

// OutboxEvent is one deferred notification.
type OutboxEvent struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Type         string       `gorm:"type:text;not null;index"`
	Payload      []byte       `gorm:"type:jsonb"`
	Status       string       `gorm:"type:text;not null;index;default:'pending'"`
	Attempts     int          `gorm:"not null;default:0"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DispatchedAt *time.Time   `gorm:""`
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "outbox_events" }

// Event is the publish-side view.
type Event struct {
	Type    string
	Payload map[string]any
}

type Outbox struct {
	log   *zap.Logger
	genID *snowflake.Node
}

func NewOutbox(log *zap.Logger, genID *snowflake.Node) *Outbox {
	return &Outbox{
		log:   log.Named("events.outbox"),
		genID: genID,
	}
}

// PublishTx enqueues an event using the caller's open transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (id, type, payload, status, attempts, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		o.genID.Generate(),
		event.Type,
		payload,
		StatusPending,
		time.Now().UTC(),
	).Error
}
