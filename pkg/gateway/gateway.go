// Package gateway exposes the ledger, the content store and the ledger event
// stream over HTTP. Every ledger route needs a bearer token from the wallet
// sign-in flow; the token's wallet is the caller identity.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeBrosOfficial/wavechat/pkg/auth"
	"github.com/DeBrosOfficial/wavechat/pkg/content"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/observability"
)

// Config holds the HTTP limits.
type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// HealthCheck reports on one dependency for /health.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators a Gateway serves.
type Deps struct {
	Ledger        *ledger.Ledger
	Content       content.Store
	Auth          *auth.Service
	Broker        *ledger.Broker
	Observability *observability.Provider
	Logger        *logging.ColoredLogger
	HealthChecks  map[string]HealthCheck
}

// Gateway is the HTTP surface.
type Gateway struct {
	cfg     Config
	ledger  *ledger.Ledger
	content content.Store
	auth    *auth.Service
	broker  *ledger.Broker
	obs     *observability.Provider
	logger  *logging.ColoredLogger
	checks  map[string]HealthCheck
}

// New creates a Gateway. Broker may be nil, which disables the event stream.
func New(cfg Config, deps Deps) *Gateway {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = content.DefaultMaxSize
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoopProvider()
	}
	return &Gateway{
		cfg:     cfg,
		ledger:  deps.Ledger,
		content: deps.Content,
		auth:    deps.Auth,
		broker:  deps.Broker,
		obs:     deps.Observability,
		logger:  deps.Logger,
		checks:  deps.HealthChecks,
	}
}

// Routes returns the http.Handler with all routes and middleware configured
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(g.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(g.obs.Tracer, g.obs.Meter))

	r.Get("/health", g.healthHandler)

	// The event stream is long-lived and must not get the request timeout.
	r.With(g.authMiddleware).Get("/v1/events/ws", g.eventsWebsocketHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(g.cfg.RequestTimeout))

		r.Post("/v1/auth/challenge", g.challengeHandler)
		r.Post("/v1/auth/verify", g.verifyHandler)

		r.Group(func(r chi.Router) {
			r.Use(g.authMiddleware)

			r.Put("/v1/profile", g.registerProfileHandler)
			r.Get("/v1/profile", g.getProfileHandler)

			r.Post("/v1/contacts", g.addContactHandler)
			r.Get("/v1/contacts", g.listContactsHandler)

			r.Post("/v1/conversations", g.createConversationHandler)
			r.Get("/v1/conversations", g.listConversationsHandler)
			r.Get("/v1/conversations/{id}", g.getConversationHandler)
			r.Post("/v1/conversations/{id}/messages", g.sendMessageHandler)
			r.Get("/v1/conversations/{id}/messages", g.fetchMessagesHandler)

			r.Post("/v1/content", g.putContentHandler)
			r.Get("/v1/content/{ref}", g.getContentHandler)
		})
	})

	return r
}
