package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/orderway/internal/catalog/repository"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	clientrepo "github.com/smallbiznis/orderway/internal/client/repository"
	"github.com/smallbiznis/orderway/internal/clock"
	"github.com/smallbiznis/orderway/internal/config"
	"github.com/smallbiznis/orderway/internal/events"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	ledgersvc "github.com/smallbiznis/orderway/internal/ledger/service"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	orderrepo "github.com/smallbiznis/orderway/internal/order/repository"
	pricingsvc "github.com/smallbiznis/orderway/internal/pricing/service"
	quotadomain "github.com/smallbiznis/orderway/internal/quota/domain"
	quotarepo "github.com/smallbiznis/orderway/internal/quota/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int64

type fixture struct {
	t    *testing.T
	db   *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
	svc  orderdomain.Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, config.DefaultOrderingConfig())
}

func newFixtureWithConfig(t *testing.T, ordering config.OrderingConfig) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:orderway_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&clientdomain.CustomRate{},
		&catalogdomain.Category{},
		&catalogdomain.Service{},
		&catalogdomain.ServiceOverride{},
		&orderdomain.Order{},
		&quotadomain.Quota{},
		&ledgerdomain.Entry{},
		&events.OutboxEvent{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Ordering: config.NewStaticOrderingConfigHolder(ordering),

		Repo:        orderrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		ClientRepo:  clientrepo.Provide(),
		QuotaRepo:   quotarepo.Provide(),

		Pricing: pricingsvc.NewService(),
		Ledger:  ledgersvc.NewService(ledgersvc.Params{DB: db, Log: log, GenID: node}),
		Outbox:  events.NewOutbox(log, node),
	})

	return &fixture{t: t, db: db, node: node, clk: clk, svc: svc}
}

func (f *fixture) seedClient(balanceCents int64, discountPercent float64) clientdomain.Client {
	f.t.Helper()
	client := clientdomain.Client{
		ID:              f.node.Generate(),
		Email:           "client@example.com",
		BalanceCents:    balanceCents,
		DiscountPercent: discountPercent,
	}
	require.NoError(f.t, f.db.Create(&client).Error)
	return client
}

func (f *fixture) seedCategory(name string) catalogdomain.Category {
	f.t.Helper()
	category := catalogdomain.Category{ID: f.node.Generate(), Name: name}
	require.NoError(f.t, f.db.Create(&category).Error)
	return category
}

func (f *fixture) seedService(mutate func(*catalogdomain.Service)) catalogdomain.Service {
	f.t.Helper()
	category := f.seedCategory("social")
	svc := catalogdomain.Service{
		ID:              f.node.Generate(),
		CategoryID:      category.ID,
		Name:            "followers",
		MinQuantity:     1,
		RateAmountCents: 500,
	}
	if mutate != nil {
		mutate(&svc)
	}
	require.NoError(f.t, f.db.Create(&svc).Error)
	return svc
}

func (f *fixture) seedQuota(clientID, serviceID snowflake.ID, mutate func(*quotadomain.Quota)) quotadomain.Quota {
	f.t.Helper()
	quota := quotadomain.Quota{
		ID:             f.node.Generate(),
		ClientID:       clientID,
		SubscriptionID: f.node.Generate(),
		ServiceID:      serviceID,
		ExpiresAt:      f.clk.Now().Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(&quota)
	}
	require.NoError(f.t, f.db.Create(&quota).Error)
	return quota
}

func (f *fixture) clientBalance(id snowflake.ID) int64 {
	f.t.Helper()
	var client clientdomain.Client
	require.NoError(f.t, f.db.First(&client, "id = ?", id).Error)
	return client.BalanceCents
}

func (f *fixture) reloadOrder(id snowflake.ID) orderdomain.Order {
	f.t.Helper()
	var order orderdomain.Order
	require.NoError(f.t, f.db.First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) reloadQuota(id snowflake.ID) quotadomain.Quota {
	f.t.Helper()
	var quota quotadomain.Quota
	require.NoError(f.t, f.db.First(&quota, "id = ?", id).Error)
	return quota
}

func (f *fixture) ledgerEntries(clientID snowflake.ID) []ledgerdomain.Entry {
	f.t.Helper()
	var entries []ledgerdomain.Entry
	require.NoError(f.t, f.db.Where("client_id = ?", clientID).Order("id ASC").Find(&entries).Error)
	return entries
}

func (f *fixture) outboxEvents() []events.OutboxEvent {
	f.t.Helper()
	var rows []events.OutboxEvent
	require.NoError(f.t, f.db.Order("id ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) countOrders() int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&orderdomain.Order{}).Count(&n).Error)
	return n
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
