package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() clientdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*clientdomain.Client, error) {
	var client clientdomain.Client
	err := conn.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*clientdomain.Client, error) {
	var client clientdomain.Client
	err := db.WithRowLock(conn.WithContext(ctx)).
		Where("id = ?", id).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) FindCustomRate(ctx context.Context, conn *gorm.DB, clientID, serviceID snowflake.ID) (*clientdomain.CustomRate, error) {
	var rate clientdomain.CustomRate
	err := conn.WithContext(ctx).
		Where("client_id = ? AND service_id = ?", clientID, serviceID).
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repo) SaveCustomRate(ctx context.Context, conn *gorm.DB, rate *clientdomain.CustomRate) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO client_custom_rates (
			id, client_id, service_id, rate_type, unit_amount_cents, percent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.ClientID,
		rate.ServiceID,
		string(rate.RateType),
		rate.UnitAmountCents,
		rate.Percent,
		rate.CreatedAt,
	).Error
	if err == nil {
		return nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return err
	}

	// A rate for this pair already exists; replace it in place.
	return conn.WithContext(ctx).Exec(
		`UPDATE client_custom_rates
		 SET rate_type = ?, unit_amount_cents = ?, percent = ?
		 WHERE client_id = ? AND service_id = ?`,
		string(rate.RateType),
		rate.UnitAmountCents,
		rate.Percent,
		rate.ClientID,
		rate.ServiceID,
	).Error
}

func (r *repo) AddBalance(ctx context.Context, conn *gorm.DB, clientID snowflake.ID, deltaCents int64) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE clients
		 SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE id = ?`,
		deltaCents,
		time.Now().UTC(),
		clientID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return clientdomain.ErrClientNotFound
	}
	return nil
}
