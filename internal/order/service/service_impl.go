package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/internal/clock"
	"github.com/smallbiznis/orderway/internal/config"
	"github.com/smallbiznis/orderway/internal/events"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/orderway/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	pricingdomain "github.com/smallbiznis/orderway/internal/pricing/domain"
	quotadomain "github.com/smallbiznis/orderway/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Ordering *config.OrderingConfigHolder

	Repo        orderdomain.Repository
	CatalogRepo catalogdomain.Repository
	ClientRepo  clientdomain.Repository
	QuotaRepo   quotadomain.Repository

	Pricing pricingdomain.Service
	Ledger  ledgerdomain.Service
	Outbox  *events.Outbox
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Service implements both order allocation and settlement. Every financial
// mutation runs in one short transaction holding the client row lock (and
// the quota row lock when a subscription funds or refunds the order).
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	ordering *config.OrderingConfigHolder

	repo        orderdomain.Repository
	catalogRepo catalogdomain.Repository
	clientRepo  clientdomain.Repository
	quotaRepo   quotadomain.Repository

	pricing pricingdomain.Service
	ledger  ledgerdomain.Service
	outbox  *events.Outbox
	metrics *obsmetrics.Metrics
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		ordering: p.Ordering,

		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		clientRepo:  p.ClientRepo,
		quotaRepo:   p.QuotaRepo,

		pricing: p.Pricing,
		ledger:  p.Ledger,
		outbox:  p.Outbox,
		metrics: p.Metrics,
	}
}

func (s *Service) GetByID(ctx context.Context, clientID, orderID snowflake.ID) (orderdomain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, clientID, orderID)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if order == nil {
		return orderdomain.Order{}, orderdomain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID snowflake.ID) ([]orderdomain.Order, error) {
	return s.repo.ListByClient(ctx, s.db, clientID)
}

// validateTargets applies the batch shape checks: non-empty, no blank link,
// quantity at least 1.
func validateTargets(targets []orderdomain.Target) error {
	if len(targets) == 0 {
		return orderdomain.Validation(-1, orderdomain.ErrEmptyBatch)
	}
	for i, target := range targets {
		if strings.TrimSpace(target.Link) == "" {
			return orderdomain.Validation(i, orderdomain.ErrBlankLink)
		}
		if target.Quantity < 1 {
			return orderdomain.Validation(i, orderdomain.ErrInvalidQuantity)
		}
	}
	return nil
}

// checkQuantityRule enforces effective min/max/increment for one target.
func checkQuantityRule(rule catalogdomain.QuantityRule, quantity, idx int) error {
	if quantity < rule.Min {
		return orderdomain.Validation(idx, orderdomain.ErrQuantityBelowMin)
	}
	if rule.Max != nil && quantity > *rule.Max {
		return orderdomain.Validation(idx, orderdomain.ErrQuantityAboveMax)
	}
	if rule.Increment > 0 && quantity%rule.Increment != 0 {
		return orderdomain.Validation(idx, orderdomain.ErrQuantityIncrement)
	}
	return nil
}

func (s *Service) recordCreated(source orderdomain.PaymentSource, count int) {
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(string(source), count)
	}
}

func (s *Service) recordRefund(kind string, cents int64) {
	if s.metrics != nil {
		s.metrics.RecordRefund(kind, cents)
	}
}
