package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	"github.com/smallbiznis/orderway/internal/config"
	ledgerdomain "github.com/smallbiznis/orderway/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}

func registerGin(reg *prometheus.Registry) *gin.Engine {
	return NewEngine(reg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	orderSvc  orderdomain.Service
	ledgerSvc ledgerdomain.Service
	clientSvc clientdomain.Service
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	OrderSvc  orderdomain.Service
	LedgerSvc ledgerdomain.Service
	ClientSvc clientdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		orderSvc:  p.OrderSvc,
		ledgerSvc: p.LedgerSvc,
		clientSvc: p.ClientSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.POST("/orders", s.CreateOrders)
	api.POST("/orders/multi", s.CreateMultiServiceOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.GET("/orders", s.ListOrders)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.POST("/orders/:id/cancel-partial", s.CancelOrderPartial)

	api.GET("/transactions", s.ListTransactions)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/v1")

	admin.POST("/orders/:id/refund", s.RefundOrder)
	admin.POST("/orders/bulk-cancel", s.BulkCancelOrders)
	admin.PUT("/clients/:id/rates/:service_id", s.SetClientRate)
}
