package service

import (
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	pricingdomain "github.com/smallbiznis/orderway/internal/pricing/domain"
	"github.com/smallbiznis/orderway/pkg/money"
)

type Service struct{}

func NewService() pricingdomain.Service {
	return &Service{}
}

// PriceForClient implements domain.Service.
//
// Resolution order: per-client custom rate, then the client's percentage
// discount, then the service default. The result is clamped at zero so a
// misconfigured override can never produce a negative charge.
func (s *Service) PriceForClient(svc catalogdomain.Service, client clientdomain.Client, custom *clientdomain.CustomRate) int64 {
	base := svc.RateAmountCents

	if custom != nil {
		switch custom.RateType {
		case clientdomain.RateTypeFixed:
			if custom.UnitAmountCents == nil {
				break
			}
			if *custom.UnitAmountCents < 0 {
				return 0
			}
			return *custom.UnitAmountCents
		case clientdomain.RateTypePercent:
			if custom.Percent == nil {
				break
			}
			return money.RoundCents(float64(base) * *custom.Percent / 100)
		}
	}

	discount := client.DiscountPercent
	if discount <= 0 {
		if base < 0 {
			return 0
		}
		return base
	}
	if discount >= 100 {
		return 0
	}
	return money.RoundCents(float64(base) * (1 - discount/100))
}
