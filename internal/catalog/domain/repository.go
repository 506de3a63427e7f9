package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Service, error)
	FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Service, error)
	FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Category, error)
	FindOverride(ctx context.Context, db *gorm.DB, clientID, serviceID snowflake.ID) (*ServiceOverride, error)
}
