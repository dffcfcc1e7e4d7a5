package router

import (
	"github.com/oksasatya/go-ddd-billing/internal/container"
	handlers "github.com/oksasatya/go-ddd-billing/internal/interface/http"
	"github.com/oksasatya/go-ddd-billing/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-billing/internal/router/modules"
)

// InitModules wires every HTTP module from the container.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	var searcher handlers.UserSearcher
	if c.UserIndex != nil {
		searcher = c.UserIndex
	}

	r.Use(middleware.RateLimit(
		c.RateLimitStore(),
		cfg.RateLimitMax,
		cfg.RateLimitWindow,
		middleware.KeyByIP(cfg.AppName),
		middleware.AllowPaths("/health"),
		c.Logger,
	))

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(c.PGPool, c.Logger)))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(c.Users, searcher, c.Logger)))
	r.Add(modules.NewInvoiceModule(handlers.NewInvoiceHandler(c.Invoices, c.Logger)))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
