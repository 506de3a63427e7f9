package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderway/internal/config"
	"github.com/smallbiznis/orderway/internal/dispatch"
	obsmetrics "github.com/smallbiznis/orderway/internal/observability/metrics"
	"github.com/smallbiznis/orderway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RelayParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Ordering   *config.OrderingConfigHolder
	Dispatcher dispatch.Dispatcher
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Relay delivers committed outbox events to the fulfillment dispatcher.
// Delivery is fire-and-forget per event: a failed attempt bumps the attempt
// counter and the row stays pending for the next tick.
type Relay struct {
	db         *gorm.DB
	log        *zap.Logger
	ordering   *config.OrderingConfigHolder
	dispatcher dispatch.Dispatcher
	metrics    *obsmetrics.Metrics
}

func NewRelay(p RelayParams) *Relay {
	return &Relay{
		db:         p.DB,
		log:        p.Log.Named("events.relay"),
		ordering:   p.Ordering,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

func (r *Relay) RunForever(ctx context.Context) {
	interval := r.ordering.Current().OutboxPollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Warn("outbox relay run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims a batch of pending events and delivers them. Returns how
// many events were dispatched.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	rows, err := r.claim(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	dispatched := 0
	for _, row := range rows {
		if err := r.deliver(ctx, row); err != nil {
			r.recordOutcome("failed")
			r.log.Warn("outbox delivery failed",
				zap.Error(err),
				zap.String("event_id", row.ID.String()),
				zap.String("type", row.Type),
			)
			if err := r.db.WithContext(ctx).Exec(
				`UPDATE outbox_events SET status = ?, attempts = attempts + 1 WHERE id = ?`,
				StatusPending,
				row.ID,
			).Error; err != nil {
				r.log.Warn("outbox requeue failed", zap.Error(err))
			}
			continue
		}

		now := time.Now().UTC()
		if err := r.db.WithContext(ctx).Exec(
			`UPDATE outbox_events
			 SET status = ?, attempts = attempts + 1, dispatched_at = ?
			 WHERE id = ?`,
			StatusDispatched,
			now,
			row.ID,
		).Error; err != nil {
			return dispatched, err
		}
		r.recordOutcome("dispatched")
		dispatched++
	}

	return dispatched, nil
}

// claim flips a batch of pending rows to delivering before the claiming
// transaction commits. The row lock keeps concurrent claimers off the same
// batch while it runs, and the status flip keeps them off once it commits,
// so two relay replicas can never deliver the same event.
func (r *Relay) claim(ctx context.Context) ([]OutboxEvent, error) {
	limit := r.ordering.Current().OutboxBatchSize

	var rows []OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(
			`SELECT * FROM outbox_events
			 WHERE status = ?
			 ORDER BY id ASC
			 LIMIT ?`+db.RowLockSuffix(tx, true),
			StatusPending,
			limit,
		).Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]snowflake.ID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		return tx.Exec(
			`UPDATE outbox_events SET status = ? WHERE id IN ?`,
			StatusDelivering,
			ids,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Relay) deliver(ctx context.Context, row OutboxEvent) error {
	var payload map[string]any
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return err
		}
	}

	switch row.Type {
	case EventOrderCreated:
		orderID, _ := payload["order_id"].(string)
		return r.dispatcher.DispatchOrder(ctx, orderID)
	default:
		r.log.Warn("unknown outbox event type", zap.String("type", row.Type))
		return nil
	}
}

func (r *Relay) recordOutcome(status string) {
	if r.metrics != nil {
		r.metrics.RecordOutboxDispatch(status)
	}
}

var Module = fx.Module("events",
	fx.Provide(
		NewOutbox,
		NewRelay,
	),
	fx.Invoke(runRelay),
)

func runRelay(lc fx.Lifecycle, relay *Relay) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go relay.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
