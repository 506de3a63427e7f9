package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BulkCancel walks a filtered order set and cancels each row in its own
// transaction, so one bad row never rolls back the rest. The eligible set
// is counted up front and rejected when above the configured cap, before
// any row is touched. Staff operation: the per-service UserCanCancel gate
// does not apply.
func (s *Service) BulkCancel(ctx context.Context, req orderdomain.BulkCancelRequest) (orderdomain.BulkCancelResult, error) {
	cfg := s.ordering.Current()
	result := orderdomain.BulkCancelResult{}

	total, err := s.repo.CountForBulk(ctx, s.db, req)
	if err != nil {
		return result, err
	}
	if total == 0 {
		return result, nil
	}
	if total > int64(cfg.BulkCancelMaxBatch) {
		return result, orderdomain.Validation(-1, orderdomain.ErrBulkBatchTooLarge)
	}

	var afterID snowflake.ID
	for {
		ids, err := s.repo.ListIDsForBulk(ctx, s.db, req, afterID, cfg.BulkCancelPageSize)
		if err != nil {
			return result, err
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			result.Processed++
			if err := s.bulkSettleOne(ctx, id); err != nil {
				result.Failed++
				if len(result.Failures) < cfg.BulkFailureCap {
					result.Failures = append(result.Failures, orderdomain.BulkFailure{
						OrderID: id.String(),
						Reason:  err.Error(),
					})
				}
				continue
			}
			result.Succeeded++
		}

		afterID = ids[len(ids)-1]
		if len(ids) < cfg.BulkCancelPageSize {
			break
		}
	}

	s.log.Info("bulk cancel finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// bulkSettleOne cancels one order in its own transaction, choosing full or
// partial settlement from the row's current status. Rows that moved to a
// terminal status between listing and locking fail the status guard here.
func (s *Service) bulkSettleOne(ctx context.Context, id snowflake.ID) error {
	var refunded int64
	var kind string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return orderdomain.ErrOrderNotFound
		}
		if _, err := s.clientRepo.FindByIDForUpdate(ctx, tx, order.ClientID); err != nil {
			return err
		}

		var outcome settleOutcome
		switch order.Status {
		case orderdomain.OrderStatusAwaiting, orderdomain.OrderStatusPending:
			outcome = settleOutcome{
				status:           orderdomain.OrderStatusCanceled,
				undelivered:      order.Quantity,
				restoreOrderSlot: true,
			}
			kind = "bulk_full"
		case orderdomain.OrderStatusProcessing, orderdomain.OrderStatusInProgress:
			if order.Delivered > 0 {
				outcome = settleOutcome{
					delivered:   order.Delivered,
					status:      orderdomain.OrderStatusPartial,
					undelivered: order.Quantity - order.Delivered,
				}
				kind = "bulk_partial"
			} else {
				outcome = settleOutcome{
					status:           orderdomain.OrderStatusCanceled,
					undelivered:      order.Quantity,
					restoreOrderSlot: true,
				}
				kind = "bulk_full"
			}
		default:
			return orderdomain.Validation(-1, orderdomain.ErrInvalidStatus)
		}

		refunded, err = s.settleTx(ctx, tx, order, outcome)
		return err
	})
	if err != nil {
		return err
	}

	s.recordRefund(kind, refunded)
	return nil
}
