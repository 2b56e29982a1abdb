// ABOUTME: chi route table for the dashboard API, webhook and live feed
// ABOUTME: Everything under /api except login sits behind the JWT middleware

package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/wadash/internal/auth"
)

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.requestLogger)

	r.Get("/health", g.handleHealth)

	r.Get("/webhook", g.handleWebhookVerify)
	r.Post("/webhook", g.handleWebhookEvent)

	r.Get("/ws", g.handleLiveFeed)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", g.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(g.issuer))

			r.Get("/auth/me", g.handleMe)
			r.Post("/auth/change-password", g.handleChangePassword)

			r.Get("/chat/messages", g.handleMessages)
			r.Get("/chat/contacts", g.handleContacts)
			r.Post("/chat/contacts", g.handleSaveContact)
			r.Get("/chat/stats", g.handleStats)
			r.Get("/chat/search", g.handleSearch)

			r.Get("/whatsapp/config", g.handleGetConfig)
			r.Post("/whatsapp/config", g.handleSaveConfig)
			r.Post("/whatsapp/verify-webhook", g.handleVerifyWebhook)
			r.Get("/whatsapp/profile", g.handleProfile)
			r.Post("/whatsapp/send-message", g.handleSendMessage)
		})
	})

	return r
}

// requestLogger logs one line per request at debug level.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		g.logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
