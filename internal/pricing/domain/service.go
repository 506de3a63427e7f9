package domain

import (
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
)

// Service resolves the effective per-client rate for a catalog service.
// Pure: no locking, callable outside any transaction.
type Service interface {
	// PriceForClient returns the effective sell rate per 100 units, in
	// cents, never negative.
	PriceForClient(svc catalogdomain.Service, client clientdomain.Client, custom *clientdomain.CustomRate) int64
}
