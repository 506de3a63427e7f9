package quota

import (
	"github.com/smallbiznis/orderway/internal/quota/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("quota",
	fx.Provide(repository.Provide),
)
