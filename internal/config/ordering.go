package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// OrderingConfig holds operational limits for order processing.
type OrderingConfig struct {
	// BulkCancelMaxBatch caps how many orders a single bulk cancellation
	// request may touch. Enforced before any row is settled.
	BulkCancelMaxBatch int `mapstructure:"bulkCancelMaxBatch"`
	// BulkCancelPageSize is the chunk size used when paging through the
	// eligible order set.
	BulkCancelPageSize int `mapstructure:"bulkCancelPageSize"`
	// BulkFailureCap bounds the per-row failure reasons echoed back to the
	// caller of a bulk cancellation.
	BulkFailureCap int `mapstructure:"bulkFailureCap"`

	OutboxPollInterval time.Duration `mapstructure:"outboxPollInterval"`
	OutboxBatchSize    int           `mapstructure:"outboxBatchSize"`
}

func DefaultOrderingConfig() OrderingConfig {
	return OrderingConfig{
		BulkCancelMaxBatch: 1000,
		BulkCancelPageSize: 100,
		BulkFailureCap:     50,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    50,
	}
}

// OrderingConfigHolder serves the current OrderingConfig and hot-reloads it
// when the backing file changes.
type OrderingConfigHolder struct {
	current atomic.Value // holds OrderingConfig
}

func NewOrderingConfigHolder() (*OrderingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ordering")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/orderway")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORDERWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultOrderingConfig()
	v.SetDefault("ordering.bulkCancelMaxBatch", defaults.BulkCancelMaxBatch)
	v.SetDefault("ordering.bulkCancelPageSize", defaults.BulkCancelPageSize)
	v.SetDefault("ordering.bulkFailureCap", defaults.BulkFailureCap)
	v.SetDefault("ordering.outboxPollInterval", defaults.OutboxPollInterval)
	v.SetDefault("ordering.outboxBatchSize", defaults.OutboxBatchSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg OrderingConfig
	if err := v.UnmarshalKey("ordering", &cfg); err != nil {
		return nil, err
	}
	if err := validateOrderingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &OrderingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OrderingConfig
		if err := v.UnmarshalKey("ordering", &updated); err != nil {
			log.Printf("[ordering-config] reload failed: %v", err)
			return
		}
		if err := validateOrderingConfig(updated); err != nil {
			log.Printf("[ordering-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ordering-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticOrderingConfigHolder wraps a fixed config, with no file watching.
func NewStaticOrderingConfigHolder(cfg OrderingConfig) *OrderingConfigHolder {
	holder := &OrderingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *OrderingConfigHolder) Current() OrderingConfig {
	return h.current.Load().(OrderingConfig)
}

func validateOrderingConfig(cfg OrderingConfig) error {
	if cfg.BulkCancelMaxBatch <= 0 {
		return errors.New("ordering.bulkCancelMaxBatch must be positive")
	}
	if cfg.BulkCancelPageSize <= 0 || cfg.BulkCancelPageSize > cfg.BulkCancelMaxBatch {
		return errors.New("ordering.bulkCancelPageSize must be in (0, bulkCancelMaxBatch]")
	}
	if cfg.BulkFailureCap < 0 {
		return errors.New("ordering.bulkFailureCap must not be negative")
	}
	if cfg.OutboxBatchSize <= 0 {
		return errors.New("ordering.outboxBatchSize must be positive")
	}
	return nil
}
