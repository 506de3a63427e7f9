package service

import (
	"context"

	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	"github.com/smallbiznis/orderway/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CancelFull cancels an order that has not delivered anything yet, reversing
// the whole charge. Client-facing: the service must allow cancellation.
func (s *Service) CancelFull(ctx context.Context, req orderdomain.CancelRequest) (orderdomain.Order, error) {
	var settled orderdomain.Order
	var refunded int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockClientOrder(ctx, tx, req)
		if err != nil {
			return err
		}

		svc, err := s.catalogRepo.FindServiceByID(ctx, tx, order.ServiceID)
		if err != nil {
			return err
		}
		if svc == nil {
			return catalogdomain.ErrServiceNotFound
		}
		if !svc.UserCanCancel {
			return orderdomain.Validation(-1, orderdomain.ErrCancelNotAllowed)
		}

		switch order.Status {
		case orderdomain.OrderStatusAwaiting, orderdomain.OrderStatusPending, orderdomain.OrderStatusProcessing:
		default:
			return orderdomain.Validation(-1, orderdomain.ErrInvalidStatus)
		}

		refunded, err = s.settleTx(ctx, tx, order, settleOutcome{
			delivered:        0,
			status:           orderdomain.OrderStatusCanceled,
			undelivered:      order.Quantity,
			restoreOrderSlot: true,
		})
		if err != nil {
			return err
		}
		settled = *order
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.recordRefund("cancel_full", refunded)
	s.log.Info("order canceled",
		zap.String("order_id", settled.ID.String()),
		zap.Int64("refund_cents", refunded),
	)
	return settled, nil
}

// CancelPartial closes a partially delivered order, refunding only the
// undelivered portion of the charge.
func (s *Service) CancelPartial(ctx context.Context, req orderdomain.CancelRequest) (orderdomain.Order, error) {
	var settled orderdomain.Order
	var refunded int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.lockClientOrder(ctx, tx, req)
		if err != nil {
			return err
		}

		switch order.Status {
		case orderdomain.OrderStatusInProgress, orderdomain.OrderStatusProcessing:
		default:
			return orderdomain.Validation(-1, orderdomain.ErrInvalidStatus)
		}

		refunded, err = s.settleTx(ctx, tx, order, settleOutcome{
			delivered:        order.Delivered,
			status:           orderdomain.OrderStatusPartial,
			undelivered:      order.Quantity - order.Delivered,
			restoreOrderSlot: false,
		})
		if err != nil {
			return err
		}
		settled = *order
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.recordRefund("cancel_partial", refunded)
	s.log.Info("order partially canceled",
		zap.String("order_id", settled.ID.String()),
		zap.Int64("refund_cents", refunded),
	)
	return settled, nil
}

// Refund is the low-level settlement primitive behind externally driven
// status updates. The supplied delivered count may never move backwards:
// a value below the stored count is rejected rather than over-refunded.
func (s *Service) Refund(ctx context.Context, req orderdomain.RefundRequest) (orderdomain.Order, error) {
	if req.Status != orderdomain.OrderStatusPartial && req.Status != orderdomain.OrderStatusCanceled {
		return orderdomain.Order{}, orderdomain.Validation(-1, orderdomain.ErrInvalidTargetStatus)
	}

	var settled orderdomain.Order
	var refunded int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrOrderNotFound
		}
		if order.Status.Terminal() {
			return orderdomain.Validation(-1, orderdomain.ErrInvalidStatus)
		}
		if req.Delivered < order.Delivered {
			return orderdomain.Validation(-1, orderdomain.ErrDeliveredRegression)
		}

		if _, err := s.clientRepo.FindByIDForUpdate(ctx, tx, order.ClientID); err != nil {
			return err
		}

		delivered := req.Delivered
		if delivered > order.Quantity {
			delivered = order.Quantity
		}

		outcome := settleOutcome{
			delivered:        delivered,
			status:           req.Status,
			undelivered:      order.Quantity - delivered,
			restoreOrderSlot: false,
		}
		if req.Status == orderdomain.OrderStatusCanceled {
			outcome.undelivered = order.Quantity
			outcome.restoreOrderSlot = true
		}

		refunded, err = s.settleTx(ctx, tx, order, outcome)
		if err != nil {
			return err
		}
		settled = *order
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	s.recordRefund("refund", refunded)
	s.log.Info("order refunded",
		zap.String("order_id", settled.ID.String()),
		zap.String("status", string(settled.Status)),
		zap.Int64("refund_cents", refunded),
	)
	return settled, nil
}

// lockClientOrder locks the order row, verifies ownership, then locks the
// client row for the balance mutation to come.
func (s *Service) lockClientOrder(ctx context.Context, tx *gorm.DB, req orderdomain.CancelRequest) (*orderdomain.Order, error) {
	order, err := s.repo.FindByIDForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.ClientID != req.ClientID {
		return nil, orderdomain.ErrOrderNotFound
	}
	if _, err := s.clientRepo.FindByIDForUpdate(ctx, tx, req.ClientID); err != nil {
		return nil, err
	}
	return order, nil
}

// settleOutcome is the resolved shape of one settlement: the new delivered
// count and status, how many undelivered units drive the refund or quota
// restore, and whether the order slot itself is handed back.
type settleOutcome struct {
	delivered        int
	status           orderdomain.OrderStatus
	undelivered      int
	restoreOrderSlot bool
}

// settleTx applies an outcome to a locked order: credit the wallet or
// restore the quota, write the refund ledger entry, persist the new order
// state. Returns the credited cents (zero for subscription-funded orders).
//
// An order already settled to partial has had its undelivered portion
// refunded once; only the portion beyond that earlier settlement is paid
// out, so a replayed status update settles to zero instead of minting a
// second refund.
func (s *Service) settleTx(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, outcome settleOutcome) (int64, error) {
	var refund int64

	alreadyRefunded := order.RefundedUnits

	switch order.PaymentSource {
	case orderdomain.PaymentSourceSubscription:
		if order.SubscriptionID == nil {
			s.log.Warn("subscription-funded order without subscription id",
				zap.String("order_id", order.ID.String()),
			)
			break
		}
		ordersBack := 0
		if outcome.restoreOrderSlot {
			ordersBack = 1
		}
		restoreUnits := outcome.undelivered - alreadyRefunded
		if restoreUnits < 0 {
			restoreUnits = 0
		}
		found, err := s.quotaRepo.Restore(
			ctx, tx, order.ClientID, *order.SubscriptionID, order.ServiceID,
			ordersBack, restoreUnits, s.clock.Now(),
		)
		if err != nil {
			return 0, err
		}
		if !found {
			s.log.Warn("no active quota left to restore",
				zap.String("order_id", order.ID.String()),
				zap.String("subscription_id", order.SubscriptionID.String()),
			)
		}
	default:
		refund = money.ProportionalRefundCents(order.ChargeCents, outcome.undelivered, order.Quantity) -
			money.ProportionalRefundCents(order.ChargeCents, alreadyRefunded, order.Quantity)
		if refund < 0 {
			refund = 0
		}
		if refund > 0 {
			if err := s.clientRepo.AddBalance(ctx, tx, order.ClientID, refund); err != nil {
				return 0, err
			}
			orderID := order.ID
			if err := s.ledger.PostTx(ctx, tx, ledgerdomain.Entry{
				ClientID:    order.ClientID,
				OrderID:     &orderID,
				AmountCents: refund,
				Type:        ledgerdomain.EntryTypeRefund,
			}); err != nil {
				return 0, err
			}
		}
	}

	order.Delivered = outcome.delivered
	order.Remains = order.Quantity - outcome.delivered
	if outcome.undelivered > order.RefundedUnits {
		order.RefundedUnits = outcome.undelivered
	}
	order.Status = outcome.status
	order.UpdatedAt = s.clock.Now()
	return refund, s.repo.UpdateSettlement(ctx, tx, order)
}
