package api

import (
	"net/http"

	"github.com/aitorress/delve-taxonomy/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Runs.Handler().Routes(),
		domain.Prompts.Handler().Routes(),
	)
}
