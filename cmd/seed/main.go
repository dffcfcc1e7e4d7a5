package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/config"
	"github.com/oksasatya/go-ddd-billing/internal/application"
	"github.com/oksasatya/go-ddd-billing/internal/container"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/pkg/helpers"
)

type seedUser struct {
	email    string
	name     string
	age      int
	invoices []string
}

var seedUsers = []seedUser{
	{"ada@example.com", "Ada Lovelace", 36, []string{"120.00", "75.50"}},
	{"grace@example.com", "Grace Hopper", 85, []string{"999.99"}},
	{"alan@example.com", "Alan Turing", 41, nil},
}

// Seeds demo users and invoices through the services, so the usual domain events
// are published. Existing users are skipped.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()

	for _, su := range seedUsers {
		age := su.age
		u, err := c.Users.CreateUser(ctx, application.CreateUserInput{Email: su.email, Name: su.name, Age: &age})
		switch {
		case errors.Is(err, errs.ErrConflict):
			logger.WithField("email", su.email).Info("user exists, skipping")
			continue
		case err != nil && u == nil:
			logger.Fatalf("failed to seed user %s: %v", su.email, err)
		case err != nil:
			logger.WithError(err).Warn("user stored but event not published")
		}
		logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("seeded user")

		for _, amount := range su.invoices {
			inv, err := c.Invoices.CreateInvoice(ctx, u.ID, decimal.RequireFromString(amount))
			if err != nil && inv == nil {
				logger.Fatalf("failed to seed invoice for %s: %v", su.email, err)
			}
			logger.WithFields(logrus.Fields{
				"invoice_id": inv.ID,
				"amount":     inv.Amount.StringFixed(2),
				"status":     inv.Status,
			}).Info("seeded invoice")
		}
	}
}
