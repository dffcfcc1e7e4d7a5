package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-billing/config"
	pginfra "github.com/oksasatya/go-ddd-billing/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-billing/pkg/helpers"
)

// Usage: migrate [up|down]. Defaults to up.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-migrate", cfg.Env, cfg.LogLevel)

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if err := pginfra.Migrate(cfg.PostgresDSN(), direction, logger); err != nil {
		logger.Fatalf("migrate %s: %v", direction, err)
	}
	logger.WithField("direction", direction).Info("migrations complete")
}
