package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/smallbiznis/orderway/internal/quota/domain"
	"github.com/smallbiznis/orderway/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() quotadomain.Repository {
	return &repo{}
}

func (r *repo) FindEligibleForUpdate(
	ctx context.Context,
	conn *gorm.DB,
	clientID, serviceID snowflake.ID,
	rows, quantity int,
	link string,
	now time.Time,
) (*quotadomain.Quota, error) {
	var quotas []quotadomain.Quota
	err := conn.WithContext(ctx).Raw(
		`SELECT * FROM client_service_quotas
		 WHERE client_id = ? AND service_id = ?
		   AND expires_at > ?
		   AND (link = '' OR link = ?)
		   AND (orders_left IS NULL OR orders_left >= ?)
		   AND (quantity_left IS NULL OR quantity_left >= ?)
		 ORDER BY expires_at ASC
		 LIMIT 1`+db.RowLockSuffix(conn, false),
		clientID,
		serviceID,
		now,
		link,
		rows,
		quantity,
	).Scan(&quotas).Error
	if err != nil {
		return nil, err
	}
	if len(quotas) == 0 {
		return nil, nil
	}
	return &quotas[0], nil
}

func (r *repo) Consume(ctx context.Context, conn *gorm.DB, quota *quotadomain.Quota, rows, quantity int) error {
	if quota.OrdersLeft == nil && quota.QuantityLeft == nil {
		return nil
	}

	query := `UPDATE client_service_quotas SET updated_at = ?`
	args := []any{time.Now().UTC()}

	if quota.OrdersLeft != nil {
		query += `, orders_left = orders_left - ?`
		args = append(args, rows)
	}
	if quota.QuantityLeft != nil {
		query += `, quantity_left = quantity_left - ?`
		args = append(args, quantity)
	}

	// The row is already locked; the guards keep the counters from ever
	// crossing zero if a caller raced past eligibility.
	query += ` WHERE id = ?`
	args = append(args, quota.ID)
	if quota.OrdersLeft != nil {
		query += ` AND orders_left >= ?`
		args = append(args, rows)
	}
	if quota.QuantityLeft != nil {
		query += ` AND quantity_left >= ?`
		args = append(args, quantity)
	}

	result := conn.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return quotadomain.ErrQuotaDrained
	}
	return nil
}

func (r *repo) Restore(
	ctx context.Context,
	conn *gorm.DB,
	clientID, subscriptionID, serviceID snowflake.ID,
	orders, quantity int,
	now time.Time,
) (bool, error) {
	var quotas []quotadomain.Quota
	err := conn.WithContext(ctx).Raw(
		`SELECT * FROM client_service_quotas
		 WHERE client_id = ? AND subscription_id = ? AND service_id = ?
		   AND expires_at > ?
		 LIMIT 1`+db.RowLockSuffix(conn, false),
		clientID,
		subscriptionID,
		serviceID,
		now,
	).Scan(&quotas).Error
	if err != nil {
		return false, err
	}
	if len(quotas) == 0 {
		return false, nil
	}
	quota := quotas[0]

	if quota.OrdersLeft == nil && quota.QuantityLeft == nil {
		return true, nil
	}

	query := `UPDATE client_service_quotas SET updated_at = ?`
	args := []any{now}
	if quota.OrdersLeft != nil && orders > 0 {
		query += `, orders_left = orders_left + ?`
		args = append(args, orders)
	}
	if quota.QuantityLeft != nil && quantity > 0 {
		query += `, quantity_left = quantity_left + ?`
		args = append(args, quantity)
	}
	query += ` WHERE id = ?`
	args = append(args, quota.ID)

	if err := conn.WithContext(ctx).Exec(query, args...).Error; err != nil {
		return false, err
	}
	return true, nil
}
