package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        clientdomain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        clientdomain.Repository
	catalogRepo catalogdomain.Repository
}

func NewService(p Params) clientdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("client.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

// SetCustomRate implements domain.Service.
func (s *Service) SetCustomRate(ctx context.Context, clientID, serviceID snowflake.ID, in clientdomain.SetCustomRateInput) (*clientdomain.CustomRate, error) {
	switch in.RateType {
	case clientdomain.RateTypeFixed:
		if in.UnitAmountCents == nil || *in.UnitAmountCents < 0 {
			return nil, clientdomain.ErrInvalidRate
		}
	case clientdomain.RateTypePercent:
		if in.Percent == nil || *in.Percent < 0 {
			return nil, clientdomain.ErrInvalidRate
		}
	default:
		return nil, clientdomain.ErrInvalidRate
	}

	client, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, clientdomain.ErrClientNotFound
	}

	svc, err := s.catalogRepo.FindServiceByID(ctx, s.db, serviceID)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, catalogdomain.ErrServiceNotFound
	}

	rate := &clientdomain.CustomRate{
		ID:        s.genID.Generate(),
		ClientID:  clientID,
		ServiceID: serviceID,
		RateType:  in.RateType,
		CreatedAt: s.clock.Now(),
	}
	if in.RateType == clientdomain.RateTypeFixed {
		rate.UnitAmountCents = in.UnitAmountCents
	} else {
		rate.Percent = in.Percent
	}

	if err := s.repo.SaveCustomRate(ctx, s.db, rate); err != nil {
		return nil, err
	}

	s.log.Info("custom rate set",
		zap.Int64("client_id", clientID.Int64()),
		zap.Int64("service_id", serviceID.Int64()),
		zap.String("rate_type", string(in.RateType)),
	)

	return rate, nil
}
