package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-billing/config"
	"github.com/oksasatya/go-ddd-billing/internal/container"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/messaging"
	"github.com/oksasatya/go-ddd-billing/internal/interface/consumer"
	"github.com/oksasatya/go-ddd-billing/pkg/helpers"
)

// The event worker consumes one queue per domain event type and runs the reactions
// registered in consumer.Handlers.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()

	h := &consumer.Handlers{
		Users:    c.Users,
		Invoices: c.Invoices,
		Brand:    c.Brand(),
		Logger:   logger,
	}
	if c.UserIndex != nil {
		h.Index = c.UserIndex
	}
	if c.Receipts != nil {
		h.Receipts = c.Receipts
	}
	if c.MailQueue != nil {
		h.Mail = c.MailQueue
	}

	dispatcher := messaging.NewDispatcher(c.Deduper(), logger)
	h.Register(dispatcher)

	worker := messaging.NewConsumer(c.Rabbit, c.Rabbit, c.Topology, dispatcher, cfg.EventMaxRetries, logger)
	logger.WithField("exchange", c.Topology.Exchange).Info("event worker starting")
	if err := worker.Run(ctx); err != nil {
		logger.Errorf("event worker stopped: %v", err)
		return
	}
	logger.Info("event worker exited properly")
}
