// ABOUTME: Gateway orchestrator that wires the store, live feed and HTTP server
// ABOUTME: Manages component construction, the serve loop and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2389/wadash/internal/auth"
	"github.com/2389/wadash/internal/config"
	"github.com/2389/wadash/internal/conversation"
	"github.com/2389/wadash/internal/dedupe"
	"github.com/2389/wadash/internal/ingest"
	"github.com/2389/wadash/internal/provider"
	"github.com/2389/wadash/internal/relay"
	"github.com/2389/wadash/internal/store"
)

// Provider is the outbound side of the WhatsApp Cloud API.
// *provider.Client satisfies it.
type Provider interface {
	SendText(ctx context.Context, st store.Settings, to, body string) (string, error)
	BusinessProfile(ctx context.Context, st store.Settings) (map[string]any, error)
	VerifyWebhook(ctx context.Context, webhookURL, verifyToken string) error
}

// Gateway owns every long-lived component of the dashboard server.
type Gateway struct {
	config     *config.Config
	store      *store.Store
	hub        *conversation.Hub
	pipeline   *ingest.Pipeline
	dedupe     *dedupe.Window
	relay      relay.Relay
	provider   Provider
	issuer     *auth.JWTIssuer
	auth       *auth.Authenticator
	httpServer *http.Server
	logger     *slog.Logger

	// baseCtx is the parent of every request context; cancelling it ends
	// hijacked websocket connections on shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// openBackend creates the persistence backend named by the storage config.
func openBackend(cfg config.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err := store.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return b, nil
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	default:
		b, err := store.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening file store: %w", err)
		}
		return b, nil
	}
}

// buildRelay connects the configured relays. A relay that cannot connect is
// logged and skipped; nil means no relay is configured.
func buildRelay(cfg config.RelayConfig, logger *slog.Logger) relay.Relay {
	var relays relay.Multi

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		relays = append(relays, relay.NewRedisRelay(rdb, cfg.Redis.Channel))
		logger.Info("redis relay enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	if cfg.AMQP.URL != "" {
		r, err := relay.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, logger)
		if err != nil {
			logger.Warn("amqp relay disabled", "error", err)
		} else {
			relays = append(relays, r)
			logger.Info("amqp relay enabled", "exchange", cfg.AMQP.Exchange, "routing_key", cfg.AMQP.RoutingKey)
		}
	}

	switch len(relays) {
	case 0:
		return nil
	case 1:
		return relays[0]
	default:
		return relays
	}
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(context.Background(), backend, store.Options{Logger: logger})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	issuer, err := auth.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}

	hub := conversation.NewHub(logger)
	window := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	rel := buildRelay(cfg.Relay, logger.With("component", "relay"))

	baseCtx, cancel := context.WithCancel(context.Background())
	gw := &Gateway{
		config: cfg,
		store:  s,
		hub:    hub,
		pipeline: ingest.New(s, hub, ingest.Options{
			Contacts: s,
			Relay:    rel,
			Dedupe:   window,
			Logger:   logger,
		}),
		dedupe: window,
		relay:  rel,
		provider: provider.New(provider.Options{
			GraphURL:   cfg.Provider.GraphURL,
			APIVersion: cfg.Provider.APIVersion,
			Timeout:    cfg.Provider.Timeout,
			Logger:     logger,
		}),
		issuer:     issuer,
		auth:       auth.NewAuthenticator(s, issuer, logger),
		logger:     logger.With("component", "gateway"),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	gw.logger.Info("gateway ready",
		"backend", backend.Name(),
		"relay", rel != nil,
	)
	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, ends live sessions and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	g.cancelBase()
	g.hub.Close()
	g.dedupe.Close()
	if g.relay != nil {
		errs = appendCloseError(errs, "relay close", g.relay.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
