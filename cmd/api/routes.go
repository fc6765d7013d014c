package main

import (
	"log"
	"net/http"

	httphandlers "budgetrelay/internal/interfaces/http"
	"budgetrelay/internal/shared/config"
	"budgetrelay/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Never authenticated
	mux.HandleFunc("/health", httphandlers.HandleHealth)
	mux.HandleFunc("/plaid-webhook", deps.WebhookHandler.HandleWebhook)

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if deps.Verifier != nil {
		authMiddleware := middleware.Auth(deps.Verifier)
		protect = func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	}

	relayRoutes := map[string]http.HandlerFunc{
		"/create_link_token":     deps.LinkHandler.HandleCreateLinkToken,
		"/exchange_public_token": deps.LinkHandler.HandleExchangePublicToken,
		"/transactions":          deps.TransactionHandler.HandleGetTransactions,
		"/balance":               deps.LinkHandler.HandleBalance,
		"/link_status":           deps.LinkHandler.HandleLinkStatus,
		"/devices":               deps.DeviceHandler.HandleRegisterDevice,
	}
	routes := []string{"/health", "/plaid-webhook"}
	for path, h := range relayRoutes {
		mux.Handle(path, protect(h))
		routes = append(routes, path)
	}

	// Apply global middleware, innermost first
	handler := middleware.NoStore(middleware.JSON(mux))
	handler = middleware.CORS(cfg.Server.AllowedHosts)(handler)
	handler = middleware.Logging(handler)
	if cfg.Telemetry.Enabled {
		handler = middleware.Tracing(routes...)(handler)
	}
	handler = middleware.RequestID(handler)

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	return handler
}
