package service

import (
	"context"
	"errors"
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/internal/events"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	quotadomain "github.com/smallbiznis/orderway/internal/quota/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBalanceFunded(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(5000, 0)
	svc := f.seedService(nil)

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets: []orderdomain.Target{
			{Link: "https://example.com/a", Quantity: 500},
			{Link: "https://example.com/b", Quantity: 500},
		},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	for _, order := range orders {
		assert.Equal(t, orderdomain.OrderStatusAwaiting, order.Status)
		assert.Equal(t, orderdomain.PaymentSourceBalance, order.PaymentSource)
		assert.Equal(t, int64(2500), order.ChargeCents)
		assert.Equal(t, 0, order.Delivered)
		assert.Equal(t, 500, order.Remains)
		assert.Equal(t, orders[0].BatchID, order.BatchID)
		assert.Nil(t, order.SubscriptionID)
	}

	assert.Equal(t, int64(0), f.clientBalance(client.ID))

	entries := f.ledgerEntries(client.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-5000), entries[0].AmountCents)
	assert.Equal(t, ledgerdomain.EntryTypeOrderCharge, entries[0].Type)
	assert.Nil(t, entries[0].OrderID)
	require.NotNil(t, entries[0].BatchID)
	assert.Equal(t, orders[0].BatchID, *entries[0].BatchID)

	rows := f.outboxEvents()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, events.EventOrderCreated, row.Type)
		assert.Equal(t, events.StatusPending, row.Status)
	}
}

func TestCreateQuotaFunded(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(10000, 0)
	svc := f.seedService(nil)
	quota := f.seedQuota(client.ID, svc.ID, func(q *quotadomain.Quota) {
		q.OrdersLeft = int64Ptr(5)
		q.QuantityLeft = int64Ptr(2000)
	})

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets: []orderdomain.Target{
			{Link: "https://example.com/a", Quantity: 600},
			{Link: "https://example.com/b", Quantity: 400},
		},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	for _, order := range orders {
		assert.Equal(t, orderdomain.PaymentSourceSubscription, order.PaymentSource)
		require.NotNil(t, order.SubscriptionID)
		assert.Equal(t, quota.SubscriptionID, *order.SubscriptionID)
	}

	// Wallet untouched, no ledger entry.
	assert.Equal(t, int64(10000), f.clientBalance(client.ID))
	assert.Empty(t, f.ledgerEntries(client.ID))

	reloaded := f.reloadQuota(quota.ID)
	require.NotNil(t, reloaded.OrdersLeft)
	require.NotNil(t, reloaded.QuantityLeft)
	assert.Equal(t, int64(3), *reloaded.OrdersLeft)
	assert.Equal(t, int64(1000), *reloaded.QuantityLeft)
}

func TestCreateQuotaUnlimitedCountersStayNil(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(0, 0)
	svc := f.seedService(nil)
	quota := f.seedQuota(client.ID, svc.ID, nil)

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100000}},
	})
	require.NoError(t, err)

	reloaded := f.reloadQuota(quota.ID)
	assert.Nil(t, reloaded.OrdersLeft)
	assert.Nil(t, reloaded.QuantityLeft)
}

func TestCreateDrainedQuotaFallsBackToBalance(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(2500, 0)
	svc := f.seedService(nil)
	f.seedQuota(client.ID, svc.ID, func(q *quotadomain.Quota) {
		q.QuantityLeft = int64Ptr(100)
	})

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.PaymentSourceBalance, orders[0].PaymentSource)
	assert.Equal(t, int64(0), f.clientBalance(client.ID))
}

func TestCreateExpiredQuotaIgnored(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(2500, 0)
	svc := f.seedService(nil)
	f.seedQuota(client.ID, svc.ID, func(q *quotadomain.Quota) {
		q.ExpiresAt = f.clk.Now().Add(-time.Hour)
	})

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.PaymentSourceBalance, orders[0].PaymentSource)
}

func TestCreateLinkBoundQuota(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(5000, 0)
	svc := f.seedService(nil)
	f.seedQuota(client.ID, svc.ID, func(q *quotadomain.Quota) {
		q.Link = "https://example.com/bound"
	})

	// Mixed-link batch cannot use the bound quota.
	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets: []orderdomain.Target{
			{Link: "https://example.com/bound", Quantity: 100},
			{Link: "https://example.com/other", Quantity: 100},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.PaymentSourceBalance, orders[0].PaymentSource)

	// A uniform batch on the bound link can.
	orders, err = f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/bound", Quantity: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.PaymentSourceSubscription, orders[0].PaymentSource)
}

func TestCreateInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(2499, 0)
	svc := f.seedService(nil)

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 500}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderdomain.ErrInsufficientBalance))

	var vErr *orderdomain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, -1, vErr.TargetIndex)

	// Nothing persisted.
	assert.Equal(t, int64(2499), f.clientBalance(client.ID))
	assert.Equal(t, int64(0), f.countOrders())
	assert.Empty(t, f.ledgerEntries(client.ID))
	assert.Empty(t, f.outboxEvents())
}

func TestCreateUnknownClient(t *testing.T) {
	f := newFixture(t)
	svc := f.seedService(nil)

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  f.node.Generate(),
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, clientdomain.ErrClientNotFound))
	assert.Equal(t, int64(0), f.countOrders())

	_, err = f.svc.CreateMultiService(context.Background(), orderdomain.CreateMultiServiceRequest{
		ClientID:   f.node.Generate(),
		CategoryID: svc.CategoryID,
		Link:       "https://example.com/a",
		Items:      []orderdomain.MultiServiceItem{{ServiceID: svc.ID, Quantity: 100}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, clientdomain.ErrClientNotFound))
	assert.Equal(t, int64(0), f.countOrders())
}

func TestCreateValidationIndices(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.MinQuantity = 100
		s.MaxQuantity = intPtr(1000)
		s.Increment = 50
	})

	cases := []struct {
		name     string
		targets  []orderdomain.Target
		index    int
		sentinel error
	}{
		{
			name:     "empty batch",
			targets:  nil,
			index:    -1,
			sentinel: orderdomain.ErrEmptyBatch,
		},
		{
			name: "blank link",
			targets: []orderdomain.Target{
				{Link: "https://example.com/a", Quantity: 100},
				{Link: "   ", Quantity: 100},
			},
			index:    1,
			sentinel: orderdomain.ErrBlankLink,
		},
		{
			name:     "below min",
			targets:  []orderdomain.Target{{Link: "https://example.com/a", Quantity: 50}},
			index:    0,
			sentinel: orderdomain.ErrQuantityBelowMin,
		},
		{
			name: "above max",
			targets: []orderdomain.Target{
				{Link: "https://example.com/a", Quantity: 100},
				{Link: "https://example.com/b", Quantity: 1500},
			},
			index:    1,
			sentinel: orderdomain.ErrQuantityAboveMax,
		},
		{
			name:     "not a multiple of increment",
			targets:  []orderdomain.Target{{Link: "https://example.com/a", Quantity: 125}},
			index:    0,
			sentinel: orderdomain.ErrQuantityIncrement,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
				ClientID:  client.ID,
				ServiceID: svc.ID,
				Targets:   tc.targets,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.sentinel))

			var vErr *orderdomain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.index, vErr.TargetIndex)
		})
	}

	assert.Equal(t, int64(0), f.countOrders())
}

func TestCreateOverrideRelaxesQuantityRule(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.MinQuantity = 100
	})
	require.NoError(t, f.db.Create(&catalogdomain.ServiceOverride{
		ID:          f.node.Generate(),
		ClientID:    client.ID,
		ServiceID:   svc.ID,
		MinQuantity: intPtr(10),
	}).Error)

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 10}},
	})
	require.NoError(t, err)
}

func TestCreateDuplicateLink(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.DenyLinkDuplicates = true
	})

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets: []orderdomain.Target{
			{Link: "https://example.com/b", Quantity: 100},
			{Link: "https://example.com/a", Quantity: 100},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderdomain.ErrDuplicateLink))

	var vErr *orderdomain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 1, vErr.TargetIndex)
}

func TestCreateDuplicateLinkWithinBatch(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.DenyLinkDuplicates = true
	})

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets: []orderdomain.Target{
			{Link: "https://example.com/a", Quantity: 100},
			{Link: "https://example.com/a", Quantity: 200},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderdomain.ErrDuplicateLink))
}

func TestCreateDuplicateLinkOutsideWindow(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.DenyLinkDuplicates = true
		s.DuplicateWindowDays = 7
	})

	_, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.NoError(t, err)

	// Ten days later the earlier order falls out of the lookback window.
	f.clk.Advance(10 * 24 * time.Hour)
	require.NoError(t, f.db.Exec(
		`UPDATE orders SET created_at = ?`,
		f.clk.Now().Add(-10*24*time.Hour),
	).Error)

	_, err = f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.NoError(t, err)
}

func TestCreateDuplicateIgnoresSettledOrders(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(func(s *catalogdomain.Service) {
		s.DenyLinkDuplicates = true
	})

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`UPDATE orders SET status = ? WHERE id = ?`,
		orderdomain.OrderStatusCompleted, orders[0].ID,
	).Error)

	_, err = f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 100}},
	})
	require.NoError(t, err)
}

func TestCreateMultiServiceMixedFunding(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(5000, 0)

	category := f.seedCategory("social")
	covered := catalogdomain.Service{
		ID: f.node.Generate(), CategoryID: category.ID, Name: "likes",
		MinQuantity: 1, RateAmountCents: 1000,
	}
	paid := catalogdomain.Service{
		ID: f.node.Generate(), CategoryID: category.ID, Name: "views",
		MinQuantity: 1, RateAmountCents: 500,
	}
	require.NoError(t, f.db.Create(&covered).Error)
	require.NoError(t, f.db.Create(&paid).Error)

	quota := f.seedQuota(client.ID, covered.ID, func(q *quotadomain.Quota) {
		q.OrdersLeft = int64Ptr(1)
		q.QuantityLeft = int64Ptr(1000)
	})

	orders, err := f.svc.CreateMultiService(context.Background(), orderdomain.CreateMultiServiceRequest{
		ClientID:   client.ID,
		CategoryID: category.ID,
		Link:       "https://example.com/post",
		Items: []orderdomain.MultiServiceItem{
			{ServiceID: covered.ID, Quantity: 1000},
			{ServiceID: paid.ID, Quantity: 1000},
		},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	bySvc := map[string]orderdomain.Order{}
	for _, order := range orders {
		bySvc[order.ServiceID.String()] = order
		assert.Equal(t, orders[0].BatchID, order.BatchID)
		assert.Equal(t, "https://example.com/post", order.Link)
	}
	assert.Equal(t, orderdomain.PaymentSourceSubscription, bySvc[covered.ID.String()].PaymentSource)
	assert.Equal(t, orderdomain.PaymentSourceBalance, bySvc[paid.ID.String()].PaymentSource)

	// Only the balance-funded slice was debited, with a single ledger entry.
	assert.Equal(t, int64(0), f.clientBalance(client.ID))
	entries := f.ledgerEntries(client.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-5000), entries[0].AmountCents)

	reloaded := f.reloadQuota(quota.ID)
	assert.Equal(t, int64(0), *reloaded.OrdersLeft)
	assert.Equal(t, int64(0), *reloaded.QuantityLeft)
}

func TestCreateMultiServiceMergesRepeatedServices(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(10000, 0)

	category := f.seedCategory("social")
	likes := catalogdomain.Service{
		ID: f.node.Generate(), CategoryID: category.ID, Name: "likes",
		MinQuantity: 1, RateAmountCents: 1000,
	}
	views := catalogdomain.Service{
		ID: f.node.Generate(), CategoryID: category.ID, Name: "views",
		MinQuantity: 1, RateAmountCents: 500,
	}
	require.NoError(t, f.db.Create(&likes).Error)
	require.NoError(t, f.db.Create(&views).Error)

	orders, err := f.svc.CreateMultiService(context.Background(), orderdomain.CreateMultiServiceRequest{
		ClientID:   client.ID,
		CategoryID: category.ID,
		Link:       "https://example.com/post",
		Items: []orderdomain.MultiServiceItem{
			{ServiceID: likes.ID, Quantity: 300},
			{ServiceID: views.ID, Quantity: 1000},
			{ServiceID: likes.ID, Quantity: 200},
		},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	bySvc := map[string]orderdomain.Order{}
	for _, order := range orders {
		bySvc[order.ServiceID.String()] = order
	}
	assert.Equal(t, 500, bySvc[likes.ID.String()].Quantity)
	assert.Equal(t, 1000, bySvc[views.ID.String()].Quantity)

	// 500 likes at 1000c/100 plus 1000 views at 500c/100.
	assert.Equal(t, int64(5000), bySvc[likes.ID.String()].ChargeCents)
	assert.Equal(t, int64(5000), bySvc[views.ID.String()].ChargeCents)
	assert.Equal(t, int64(0), f.clientBalance(client.ID))

	entries := f.ledgerEntries(client.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-10000), entries[0].AmountCents)
}

func TestCreateMultiServiceCategoryMismatch(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(nil)
	other := f.seedCategory("video")

	_, err := f.svc.CreateMultiService(context.Background(), orderdomain.CreateMultiServiceRequest{
		ClientID:   client.ID,
		CategoryID: other.ID,
		Link:       "https://example.com/post",
		Items:      []orderdomain.MultiServiceItem{{ServiceID: svc.ID, Quantity: 100}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderdomain.ErrServiceCategoryMismatch))

	var vErr *orderdomain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 0, vErr.TargetIndex)
}

func TestCreateMultiServiceBlankLink(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 0)
	svc := f.seedService(nil)

	_, err := f.svc.CreateMultiService(context.Background(), orderdomain.CreateMultiServiceRequest{
		ClientID:   client.ID,
		CategoryID: svc.CategoryID,
		Link:       "  ",
		Items:      []orderdomain.MultiServiceItem{{ServiceID: svc.ID, Quantity: 100}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, orderdomain.ErrBlankLink))
}

func TestCreateDiscountedPricing(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(100000, 50)
	svc := f.seedService(nil) // 500 cents per 100 units

	orders, err := f.svc.Create(context.Background(), orderdomain.CreateOrdersRequest{
		ClientID:  client.ID,
		ServiceID: svc.ID,
		Targets:   []orderdomain.Target{{Link: "https://example.com/a", Quantity: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), orders[0].ChargeCents)
}
