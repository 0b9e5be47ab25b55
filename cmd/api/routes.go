package main

import (
	"net/http"

	httphandlers "finpull/internal/interfaces/http"
	"finpull/internal/shared/config"
	"finpull/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Link flow
	mux.HandleFunc("/api/create_link_token", deps.LinkHandler.HandleCreateLinkToken)
	mux.HandleFunc("/api/exchange_public_token", deps.LinkHandler.HandleExchangePublicToken)

	// Apply global middleware
	return middleware.Logging(middleware.Tracing(middleware.CORS(cfg.Server.AllowedHosts)(mux)))
}
