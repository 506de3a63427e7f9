package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	"github.com/smallbiznis/orderway/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() orderdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, orders []*orderdomain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(orders).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, clientID, id snowflake.ID) (*orderdomain.Order, error) {
	var order orderdomain.Order
	err := conn.WithContext(ctx).
		Where("id = ? AND client_id = ?", id, clientID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*orderdomain.Order, error) {
	var order orderdomain.Order
	err := db.WithRowLock(conn.WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListByClient(ctx context.Context, conn *gorm.DB, clientID snowflake.ID) ([]orderdomain.Order, error) {
	var orders []orderdomain.Order
	err := conn.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repo) FindActiveDuplicate(ctx context.Context, conn *gorm.DB, probes []orderdomain.DuplicateProbe) (*orderdomain.DuplicateHit, error) {
	if len(probes) == 0 {
		return nil, nil
	}

	statuses := make([]string, 0, len(orderdomain.ActiveDuplicateStatuses))
	for _, s := range orderdomain.ActiveDuplicateStatuses {
		statuses = append(statuses, string(s))
	}

	var groups []string
	var args []any
	args = append(args, statuses)
	for _, probe := range probes {
		if len(probe.Links) == 0 {
			continue
		}
		group := "(service_id = ? AND link IN ?"
		args = append(args, probe.ServiceID, probe.Links)
		if probe.Since != nil {
			group += " AND created_at >= ?"
			args = append(args, *probe.Since)
		}
		group += ")"
		groups = append(groups, group)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	query := `SELECT service_id, link FROM orders
		 WHERE status IN ? AND (` + strings.Join(groups, " OR ") + `) LIMIT 1`

	var hits []orderdomain.DuplicateHit
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&hits).Error; err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

func (r *repo) UpdateSettlement(ctx context.Context, conn *gorm.DB, order *orderdomain.Order) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, delivered = ?, remains = ?, refunded_units = ?, updated_at = ?
		 WHERE id = ?`,
		string(order.Status),
		order.Delivered,
		order.Remains,
		order.RefundedUnits,
		time.Now().UTC(),
		order.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return orderdomain.ErrOrderNotFound
	}
	return nil
}

func (r *repo) CountForBulk(ctx context.Context, conn *gorm.DB, req orderdomain.BulkCancelRequest) (int64, error) {
	var count int64
	err := bulkScope(conn.WithContext(ctx).Model(&orderdomain.Order{}), req).
		Count(&count).Error
	return count, err
}

func (r *repo) ListIDsForBulk(ctx context.Context, conn *gorm.DB, req orderdomain.BulkCancelRequest, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := bulkScope(conn.WithContext(ctx).Model(&orderdomain.Order{}), req).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func bulkScope(stmt *gorm.DB, req orderdomain.BulkCancelRequest) *gorm.DB {
	if req.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *req.ClientID)
	}
	if req.ServiceID != nil {
		stmt = stmt.Where("service_id = ?", *req.ServiceID)
	}
	if len(req.OrderIDs) > 0 {
		stmt = stmt.Where("id IN ?", req.OrderIDs)
	}
	if len(req.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", req.Statuses)
	} else {
		stmt = stmt.Where("status IN ?", []orderdomain.OrderStatus{
			orderdomain.OrderStatusAwaiting,
			orderdomain.OrderStatusPending,
			orderdomain.OrderStatusProcessing,
			orderdomain.OrderStatusInProgress,
		})
	}
	return stmt
}
