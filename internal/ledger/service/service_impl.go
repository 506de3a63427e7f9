package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/orderway/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) error {
	if entry.ClientID == 0 {
		return ledgerdomain.ErrInvalidClient
	}
	if entry.AmountCents == 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	switch entry.Type {
	case ledgerdomain.EntryTypeOrderCharge, ledgerdomain.EntryTypeRefund, ledgerdomain.EntryTypeSubscriptionCharge:
	default:
		return ledgerdomain.ErrInvalidType
	}

	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := tx.WithContext(ctx).Exec(
		`INSERT INTO client_transactions (
			id, client_id, order_id, batch_id, amount_cents, type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ClientID,
		entry.OrderID,
		entry.BatchID,
		entry.AmountCents,
		string(entry.Type),
		entry.CreatedAt,
	).Error
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordLedgerEntry(string(entry.Type))
	}
	return nil
}

func (s *Service) ListByClient(ctx context.Context, clientID snowflake.ID) ([]ledgerdomain.Entry, error) {
	if clientID == 0 {
		return nil, ledgerdomain.ErrInvalidClient
	}

	var entries []ledgerdomain.Entry
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
