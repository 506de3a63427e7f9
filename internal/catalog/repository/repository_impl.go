package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Service, error) {
	var svc catalogdomain.Service
	err := db.WithContext(ctx).Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &svc, nil
}

func (r *repo) FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]catalogdomain.Service, error) {
	if len(ids) == 0 {
		return map[snowflake.ID]catalogdomain.Service{}, nil
	}

	var rows []catalogdomain.Service
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID]catalogdomain.Service, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repo) FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Category, error) {
	var category catalogdomain.Category
	err := db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *repo) FindOverride(ctx context.Context, db *gorm.DB, clientID, serviceID snowflake.ID) (*catalogdomain.ServiceOverride, error) {
	var override catalogdomain.ServiceOverride
	err := db.WithContext(ctx).
		Where("client_id = ? AND service_id = ?", clientID, serviceID).
		First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}
