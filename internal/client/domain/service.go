package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidRate = errors.New("invalid_rate")
)

// SetCustomRateInput carries the fields an operator may set on a
// per-client rate override. Exactly one of UnitAmountCents or Percent
// must be present, matching RateType.
type SetCustomRateInput struct {
	RateType        RateType
	UnitAmountCents *int64
	Percent         *float64
}

type Service interface {
	// SetCustomRate creates or replaces the override for the
	// (client, service) pair.
	SetCustomRate(ctx context.Context, clientID, serviceID snowflake.ID, in SetCustomRateInput) (*CustomRate, error)
}
