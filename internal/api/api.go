// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/aitorress/delve-taxonomy/internal/config"
	"github.com/aitorress/delve-taxonomy/internal/infrastructure"
	"github.com/aitorress/delve-taxonomy/pkg/middleware"
	"github.com/aitorress/delve-taxonomy/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))
	m.Use(middleware.MaxBody(cfg.API.MaxBodySizeBytes()))

	return m, nil
}
