package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/internal/events"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	"github.com/smallbiznis/orderway/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Create allocates a batch of orders for one service. All rows share one
// batch and one funding decision: a subscription quota able to cover the
// whole batch, otherwise the client's wallet balance. Nothing is persisted
// unless every row passes validation.
func (s *Service) Create(ctx context.Context, req orderdomain.CreateOrdersRequest) ([]orderdomain.Order, error) {
	if err := validateTargets(req.Targets); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var created []orderdomain.Order
	var source orderdomain.PaymentSource

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc, err := s.catalogRepo.FindServiceByID(ctx, tx, req.ServiceID)
		if err != nil {
			return err
		}
		if svc == nil {
			return catalogdomain.ErrServiceNotFound
		}

		override, err := s.catalogRepo.FindOverride(ctx, tx, req.ClientID, req.ServiceID)
		if err != nil {
			return err
		}
		rule := svc.Resolve(override)
		for i, target := range req.Targets {
			if err := checkQuantityRule(rule, target.Quantity, i); err != nil {
				return err
			}
		}

		if svc.DenyLinkDuplicates {
			if err := s.guardDuplicates(ctx, tx, req.Targets, *svc, now); err != nil {
				return err
			}
		}

		client, err := s.clientRepo.FindByIDForUpdate(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrClientNotFound
		}

		custom, err := s.clientRepo.FindCustomRate(ctx, tx, req.ClientID, req.ServiceID)
		if err != nil {
			return err
		}
		rateCents := s.pricing.PriceForClient(*svc, *client, custom)

		batchID := uuid.NewString()
		totalQuantity := 0
		var totalCharge int64
		orders := make([]*orderdomain.Order, 0, len(req.Targets))
		for _, target := range req.Targets {
			totalQuantity += target.Quantity
			charge := money.ChargeCents(target.Quantity, rateCents)
			totalCharge += charge

			order := &orderdomain.Order{
				ID:          s.genID.Generate(),
				ClientID:    req.ClientID,
				ServiceID:   req.ServiceID,
				BatchID:     batchID,
				Link:        strings.TrimSpace(target.Link),
				Quantity:    target.Quantity,
				ChargeCents: charge,
				Delivered:   0,
				Remains:     target.Quantity,
				Status:      orderdomain.OrderStatusAwaiting,
				CreatedBy:   req.CreatedBy,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if svc.CostAmountCents != nil {
				cost := money.ChargeCents(target.Quantity, *svc.CostAmountCents)
				order.CostCents = &cost
			}
			orders = append(orders, order)
		}

		quota, err := s.quotaRepo.FindEligibleForUpdate(
			ctx, tx, req.ClientID, req.ServiceID,
			len(orders), totalQuantity, commonLink(req.Targets), now,
		)
		if err != nil {
			return err
		}

		if quota != nil {
			if err := s.quotaRepo.Consume(ctx, tx, quota, len(orders), totalQuantity); err != nil {
				return err
			}
			source = orderdomain.PaymentSourceSubscription
			for _, order := range orders {
				order.PaymentSource = orderdomain.PaymentSourceSubscription
				subID := quota.SubscriptionID
				order.SubscriptionID = &subID
			}
		} else {
			if client.BalanceCents < totalCharge {
				return orderdomain.Validation(-1, orderdomain.ErrInsufficientBalance)
			}
			if err := s.clientRepo.AddBalance(ctx, tx, req.ClientID, -totalCharge); err != nil {
				return err
			}
			if err := s.ledger.PostTx(ctx, tx, ledgerdomain.Entry{
				ClientID:    req.ClientID,
				BatchID:     &batchID,
				AmountCents: -totalCharge,
				Type:        ledgerdomain.EntryTypeOrderCharge,
			}); err != nil {
				return err
			}
			source = orderdomain.PaymentSourceBalance
			for _, order := range orders {
				order.PaymentSource = orderdomain.PaymentSourceBalance
			}
		}

		if err := s.repo.Insert(ctx, tx, orders); err != nil {
			return err
		}

		for _, order := range orders {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type: events.EventOrderCreated,
				Payload: map[string]any{
					"order_id":  order.ID.String(),
					"client_id": order.ClientID.String(),
					"batch_id":  order.BatchID,
				},
			}); err != nil {
				return err
			}
			created = append(created, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordCreated(source, len(created))
	s.log.Info("orders created",
		zap.String("client_id", req.ClientID.String()),
		zap.String("source", string(source)),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// CreateMultiService allocates one order per distinct service, all against a
// single link within one category. Repeated service ids are merged into one
// order with the summed quantity. Funding is decided per service: each
// slice a quota covers is subscription-funded, the rest are charged to the
// wallet together with a single ledger entry.
func (s *Service) CreateMultiService(ctx context.Context, req orderdomain.CreateMultiServiceRequest) ([]orderdomain.Order, error) {
	if len(req.Items) == 0 {
		return nil, orderdomain.Validation(-1, orderdomain.ErrEmptyBatch)
	}
	link := strings.TrimSpace(req.Link)
	if link == "" {
		return nil, orderdomain.Validation(-1, orderdomain.ErrBlankLink)
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, orderdomain.Validation(i, orderdomain.ErrInvalidQuantity)
		}
	}

	// Repeated service ids collapse into one order carrying the summed
	// quantity.
	items := mergeServiceItems(req.Items)

	now := s.clock.Now()
	var created []orderdomain.Order
	var balanceFunded, quotaFunded int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := s.catalogRepo.FindCategoryByID(ctx, tx, req.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return catalogdomain.ErrCategoryNotFound
		}

		serviceIDs := make([]snowflake.ID, 0, len(items))
		for _, item := range items {
			serviceIDs = append(serviceIDs, item.ServiceID)
		}
		services, err := s.catalogRepo.FindServicesByIDs(ctx, tx, serviceIDs)
		if err != nil {
			return err
		}

		var probes []orderdomain.DuplicateProbe
		for _, item := range items {
			svc, ok := services[item.ServiceID]
			if !ok {
				return orderdomain.Validation(item.idx, catalogdomain.ErrServiceNotFound)
			}
			if svc.CategoryID != req.CategoryID {
				return orderdomain.Validation(item.idx, orderdomain.ErrServiceCategoryMismatch)
			}

			override, err := s.catalogRepo.FindOverride(ctx, tx, req.ClientID, item.ServiceID)
			if err != nil {
				return err
			}
			if err := checkQuantityRule(svc.Resolve(override), item.Quantity, item.idx); err != nil {
				return err
			}

			if svc.DenyLinkDuplicates {
				probes = append(probes, orderdomain.DuplicateProbe{
					ServiceID: item.ServiceID,
					Links:     []string{link},
					Since:     duplicateSince(svc, now),
				})
			}
		}

		if len(probes) > 0 {
			hit, err := s.repo.FindActiveDuplicate(ctx, tx, probes)
			if err != nil {
				return err
			}
			if hit != nil {
				for _, item := range items {
					if item.ServiceID == hit.ServiceID {
						return orderdomain.Validation(item.idx, orderdomain.ErrDuplicateLink)
					}
				}
				return orderdomain.Validation(-1, orderdomain.ErrDuplicateLink)
			}
		}

		client, err := s.clientRepo.FindByIDForUpdate(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrClientNotFound
		}

		batchID := uuid.NewString()
		var balanceTotal int64
		orders := make([]*orderdomain.Order, 0, len(items))
		for _, item := range items {
			svc := services[item.ServiceID]
			custom, err := s.clientRepo.FindCustomRate(ctx, tx, req.ClientID, item.ServiceID)
			if err != nil {
				return err
			}
			charge := money.ChargeCents(item.Quantity, s.pricing.PriceForClient(svc, *client, custom))

			order := &orderdomain.Order{
				ID:          s.genID.Generate(),
				ClientID:    req.ClientID,
				ServiceID:   item.ServiceID,
				BatchID:     batchID,
				Link:        link,
				Quantity:    item.Quantity,
				ChargeCents: charge,
				Delivered:   0,
				Remains:     item.Quantity,
				Status:      orderdomain.OrderStatusAwaiting,
				CreatedBy:   req.CreatedBy,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if svc.CostAmountCents != nil {
				cost := money.ChargeCents(item.Quantity, *svc.CostAmountCents)
				order.CostCents = &cost
			}

			quota, err := s.quotaRepo.FindEligibleForUpdate(
				ctx, tx, req.ClientID, item.ServiceID, 1, item.Quantity, link, now,
			)
			if err != nil {
				return err
			}
			if quota != nil {
				if err := s.quotaRepo.Consume(ctx, tx, quota, 1, item.Quantity); err != nil {
					return err
				}
				order.PaymentSource = orderdomain.PaymentSourceSubscription
				subID := quota.SubscriptionID
				order.SubscriptionID = &subID
				quotaFunded++
			} else {
				order.PaymentSource = orderdomain.PaymentSourceBalance
				balanceTotal += charge
				balanceFunded++
			}
			orders = append(orders, order)
		}

		if balanceTotal > 0 {
			if client.BalanceCents < balanceTotal {
				return orderdomain.Validation(-1, orderdomain.ErrInsufficientBalance)
			}
			if err := s.clientRepo.AddBalance(ctx, tx, req.ClientID, -balanceTotal); err != nil {
				return err
			}
			if err := s.ledger.PostTx(ctx, tx, ledgerdomain.Entry{
				ClientID:    req.ClientID,
				BatchID:     &batchID,
				AmountCents: -balanceTotal,
				Type:        ledgerdomain.EntryTypeOrderCharge,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.Insert(ctx, tx, orders); err != nil {
			return err
		}

		for _, order := range orders {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type: events.EventOrderCreated,
				Payload: map[string]any{
					"order_id":  order.ID.String(),
					"client_id": order.ClientID.String(),
					"batch_id":  order.BatchID,
				},
			}); err != nil {
				return err
			}
			created = append(created, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if balanceFunded > 0 {
		s.recordCreated(orderdomain.PaymentSourceBalance, balanceFunded)
	}
	if quotaFunded > 0 {
		s.recordCreated(orderdomain.PaymentSourceSubscription, quotaFunded)
	}
	s.log.Info("multi-service orders created",
		zap.String("client_id", req.ClientID.String()),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// guardDuplicates runs the duplicate-link check for a single-service batch
// as one existence query covering every target link.
func (s *Service) guardDuplicates(ctx context.Context, tx *gorm.DB, targets []orderdomain.Target, svc catalogdomain.Service, now time.Time) error {
	links := make([]string, 0, len(targets))
	seen := make(map[string]int, len(targets))
	for i, target := range targets {
		link := strings.TrimSpace(target.Link)
		if _, ok := seen[link]; ok {
			return orderdomain.Validation(i, orderdomain.ErrDuplicateLink)
		}
		seen[link] = i
		links = append(links, link)
	}

	hit, err := s.repo.FindActiveDuplicate(ctx, tx, []orderdomain.DuplicateProbe{{
		ServiceID: svc.ID,
		Links:     links,
		Since:     duplicateSince(svc, now),
	}})
	if err != nil {
		return err
	}
	if hit == nil {
		return nil
	}
	if idx, ok := seen[hit.Link]; ok {
		return orderdomain.Validation(idx, orderdomain.ErrDuplicateLink)
	}
	return orderdomain.Validation(-1, orderdomain.ErrDuplicateLink)
}

// mergedItem is one distinct service of a multi-service batch. idx points
// at the service's first position in the request so validation errors
// target something the caller actually sent.
type mergedItem struct {
	ServiceID snowflake.ID
	Quantity  int
	idx       int
}

func mergeServiceItems(items []orderdomain.MultiServiceItem) []mergedItem {
	merged := make([]mergedItem, 0, len(items))
	byService := make(map[snowflake.ID]int, len(items))
	for i, item := range items {
		if pos, ok := byService[item.ServiceID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		byService[item.ServiceID] = len(merged)
		merged = append(merged, mergedItem{ServiceID: item.ServiceID, Quantity: item.Quantity, idx: i})
	}
	return merged
}

// duplicateSince derives the lookback bound for the duplicate guard.
// A window of zero or less means the guard is unbounded in time.
func duplicateSince(svc catalogdomain.Service, now time.Time) *time.Time {
	if svc.DuplicateWindowDays <= 0 {
		return nil
	}
	since := now.AddDate(0, 0, -svc.DuplicateWindowDays)
	return &since
}

// commonLink returns the link shared by every target, or empty when the
// batch mixes links. A link-bound quota can only fund a uniform batch.
func commonLink(targets []orderdomain.Target) string {
	link := strings.TrimSpace(targets[0].Link)
	for _, target := range targets[1:] {
		if strings.TrimSpace(target.Link) != link {
			return ""
		}
	}
	return link
}
