package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderway/internal/catalog"
	"github.com/smallbiznis/orderway/internal/client"
	"github.com/smallbiznis/orderway/internal/clock"
	"github.com/smallbiznis/orderway/internal/config"
	"github.com/smallbiznis/orderway/internal/dispatch"
	"github.com/smallbiznis/orderway/internal/events"
	"github.com/smallbiznis/orderway/internal/ledger"
	"github.com/smallbiznis/orderway/internal/logger"
	"github.com/smallbiznis/orderway/internal/migration"
	obsmetrics "github.com/smallbiznis/orderway/internal/observability/metrics"
	"github.com/smallbiznis/orderway/internal/order"
	"github.com/smallbiznis/orderway/internal/pricing"
	"github.com/smallbiznis/orderway/internal/quota"
	"github.com/smallbiznis/orderway/internal/server"
	"github.com/smallbiznis/orderway/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		obsmetrics.Module,
		migration.Module,

		// Functional domains
		catalog.Module,
		client.Module,
		pricing.Module,
		quota.Module,
		ledger.Module,
		order.Module,

		// Outbound delivery
		dispatch.Module,
		events.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
