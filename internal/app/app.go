// Package app assembles the PostgreSQL-backed services shared by the
// server and the reconciliation tool.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicstock/internal/config"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/finance"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/internal/domain/settings"
	"clinicstock/internal/infrastructure/cache"
	"clinicstock/internal/infrastructure/http/v1/handlers"
	"clinicstock/internal/infrastructure/numerator"
	"clinicstock/internal/infrastructure/storage/postgres"
	"clinicstock/internal/infrastructure/storage/postgres/document_repo"
	"clinicstock/internal/infrastructure/storage/postgres/register_repo"
	"clinicstock/internal/infrastructure/storage/postgres/settings_repo"
	"clinicstock/pkg/logger"
)

// Container holds the wired services and the resources they own.
type Container struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Redis     *redis.Client

	Settings *settings.Service
	Costing  *costing.Engine
	Finance  *finance.Engine
	Audit    *postgres.AuditService

	listener *cache.NotifyListener
}

// Build connects to PostgreSQL (and Redis when configured) and wires the
// engines.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	pool, err := postgres.NewPool(ctx, cfg.Pool())
	if err != nil {
		return nil, err
	}
	c := &Container{Pool: pool}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.TxManager = postgres.NewTxManager(pool, cfg.Tx())
	c.Audit, err = postgres.NewAuditService(c.TxManager)
	if err != nil {
		c.Close()
		return nil, err
	}

	var settingsCache settings.Cache
	if cfg.CacheEnabled() {
		c.Redis, err = newRedis(ctx, cfg.RedisAddr)
		if err != nil {
			c.Close()
			return nil, err
		}
		settingsCache = cache.NewSettingsCache(c.Redis, cfg.SettingsCacheTTL)
	}
	c.Settings = settings.NewService(settings_repo.NewSettingsRepo(c.TxManager), settingsCache)
	if settingsCache != nil {
		c.listener = cache.NewNotifyListener(pool.Pool, c.Settings)
	}

	numbers := numerator.New(pool, func(ctx context.Context) numerator.Querier {
		return c.TxManager.GetQuerier(ctx)
	})
	ledgerSvc := ledger.NewService(register_repo.NewLedgerRepo(c.TxManager))
	c.Costing = costing.NewEngine(costing.Config{
		TxManager: c.TxManager,
		Ledger:    ledgerSvc,
		Lots:      lots.NewService(register_repo.NewLotRepo(c.TxManager)),
		Settings:  c.Settings,
		Receipts:  document_repo.NewGoodsReceiptRepo(c.TxManager),
		WriteOffs: document_repo.NewWriteOffRepo(c.TxManager),
		Audit:     c.Audit,
		Numbers:   numbers,
	})
	c.Finance = finance.NewEngine(finance.Config{
		TxManager: c.TxManager,
		Costing:   c.Costing,
		Ledger:    ledgerSvc,
		Sales:     document_repo.NewServiceSaleRepo(c.TxManager),
		Audit:     c.Audit,
		Numbers:   numbers,
	})

	logger.Info(ctx, "services wired", "settings_cache", cfg.CacheEnabled())
	return c, nil
}

// StartListeners begins background cache invalidation, if enabled.
func (c *Container) StartListeners(ctx context.Context) {
	if c.listener != nil {
		c.listener.Start(ctx)
	}
}

// Close releases every resource in reverse order of acquisition.
func (c *Container) Close() {
	if c.listener != nil {
		c.listener.Stop()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

func newRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// redisPinger adapts the Redis client to a health check.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// HealthChecks returns the pingable dependencies by name.
func (c *Container) HealthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"database": c.Pool}
	if c.Redis != nil {
		checks["redis"] = redisPinger{client: c.Redis}
	}
	return checks
}
