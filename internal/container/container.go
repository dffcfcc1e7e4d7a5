// Package container builds the shared infrastructure and services once at startup so
// the router and the workers can be wired from a single place.
package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/config"
	"github.com/oksasatya/go-ddd-billing/internal/application"
	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/archive"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-ddd-billing/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-billing/pkg/helpers"
	"github.com/oksasatya/go-ddd-billing/pkg/mailer"
	"github.com/oksasatya/go-ddd-billing/pkg/mailer/templates"
)

// Container owns every long-lived client. Optional integrations (Elasticsearch, GCS,
// mail) stay nil when they are not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	Rabbit    *helpers.RabbitPublisher
	ES        *elasticsearch.Client
	GCS       *storage.Client
	Topology  messaging.Topology
	Publisher *messaging.Publisher

	UserIndex *search.UserIndex
	Receipts  *archive.ReceiptStore
	MailQueue *mailer.Queue

	Users    *application.UserService[pgx.Tx]
	Invoices *application.InvoiceService[pgx.Tx]

	closers []func()
}

// New connects Postgres, Redis and RabbitMQ, declares the event topology and builds
// the services. Failing optional integrations are logged and left nil.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:             cfg.PostgresDSN(),
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.PGPool = pool
	c.onClose(pool.Close)

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	c.onClose(func() { _ = c.Redis.Close() })
	if err := helpers.PingRedis(ctx, c.Redis); err != nil {
		logger.WithError(err).Warn("redis unavailable; rate limiting and event dedupe will fail open")
	}

	c.Rabbit, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	c.onClose(c.Rabbit.Close)

	c.Topology = messaging.Topology{
		Exchange:      cfg.EventExchange,
		RetryExchange: cfg.EventRetryExchange,
		QueuePrefix:   cfg.EventQueuePrefix,
		RetryDelay:    cfg.EventRetryDelay,
	}
	if err := c.Topology.Declare(c.Rabbit.Channel(), event.Types()); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare event topology: %w", err)
	}
	c.Publisher = messaging.NewPublisher(c.Rabbit, cfg.EventExchange, logger)

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else {
			if err := helpers.PingES(ctx, es); err != nil {
				logger.WithError(err).Warn("elasticsearch not reachable yet")
			}
			c.ES = es
			c.UserIndex = search.NewUserIndex(es, cfg.ESUsersIndex, logger)
		}
	}

	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("receipt archive disabled")
		} else {
			c.GCS = gcs
			c.onClose(func() { _ = gcs.Close() })
			c.Receipts = archive.NewReceiptStore(gcs, cfg.GCSBucket, cfg.GCSReceiptsPrefix)
		}
	}

	c.MailQueue = mailer.NewQueue(c.Rabbit, cfg.RabbitMQEmailQueue, cfg.MailSendEnabled)
	if c.MailQueue != nil {
		if err := c.Rabbit.DeclareQueue(cfg.RabbitMQEmailQueue, nil); err != nil {
			c.Close()
			return nil, fmt.Errorf("declare email queue: %w", err)
		}
	}

	tx := pginfra.NewTxManager(pool, logger)
	users := pginfra.NewUserRepository()
	invoices := pginfra.NewInvoiceRepository()
	c.Invoices = application.NewInvoiceService[pgx.Tx](tx, invoices, users, c.Publisher, logger)
	c.Users = application.NewUserService[pgx.Tx](tx, users, c.Invoices, c.Publisher, logger)

	logger.WithFields(logrus.Fields{
		"search":   c.UserIndex != nil,
		"receipts": c.Receipts != nil,
		"mail":     c.MailQueue != nil,
	}).Info("container ready")
	return c, nil
}

func (c *Container) onClose(fn func()) { c.closers = append(c.closers, fn) }

// Close releases clients in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// RateLimitStore returns the Redis client as a nil interface when rate limiting is off.
func (c *Container) RateLimitStore() redis.Scripter {
	if c.Redis == nil || !c.Config.RateLimitEnabled {
		return nil
	}
	return c.Redis
}

// Deduper returns the Redis-backed processed-event store for consumers.
func (c *Container) Deduper() messaging.Deduper {
	return messaging.NewRedisDeduper(c.Redis, c.Config.EventQueuePrefix, c.Config.EventDedupeTTL)
}

func (c *Container) Brand() templates.Brand {
	return templates.Brand{
		AppName:        c.Config.AppName,
		CompanyName:    c.Config.CompanyName,
		CompanyAddress: c.Config.CompanyAddress,
		LogoURL:        c.Config.LogoURL,
		SupportURL:     c.Config.SupportURL,
		InvoiceURL:     c.Config.InvoiceURL,
	}
}
