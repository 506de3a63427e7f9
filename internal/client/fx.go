package client

import (
	"github.com/smallbiznis/orderway/internal/client/repository"
	"github.com/smallbiznis/orderway/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
