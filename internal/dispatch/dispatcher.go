// Package dispatch holds the client for the external fulfillment service.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/orderway/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dispatcher hands a created order to the external delivery worker.
// Failures must never affect allocation outcome; callers retry via the outbox.
type Dispatcher interface {
	DispatchOrder(ctx context.Context, orderID string) error
}

type httpDispatcher struct {
	client *resty.Client
	log    *zap.Logger
}

func NewHTTPDispatcher(cfg config.Config, log *zap.Logger) Dispatcher {
	if cfg.FulfillmentURL == "" {
		return &logDispatcher{log: log.Named("dispatch.log")}
	}

	client := resty.New().
		SetBaseURL(cfg.FulfillmentURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	if cfg.FulfillmentToken != "" {
		client.SetAuthToken(cfg.FulfillmentToken)
	}

	return &httpDispatcher{
		client: client,
		log:    log.Named("dispatch.http"),
	}
}

func (d *httpDispatcher) DispatchOrder(ctx context.Context, orderID string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"order_id": orderID}).
		Post("/v1/fulfillment/orders")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("fulfillment dispatch: unexpected status %d", resp.StatusCode())
	}

	d.log.Debug("order dispatched", zap.String("order_id", orderID))
	return nil
}

// logDispatcher is the no-endpoint fallback used in development.
type logDispatcher struct {
	log *zap.Logger
}

func (d *logDispatcher) DispatchOrder(_ context.Context, orderID string) error {
	d.log.Info("order ready for fulfillment", zap.String("order_id", orderID))
	return nil
}

var Module = fx.Module("dispatch",
	fx.Provide(NewHTTPDispatcher),
)
