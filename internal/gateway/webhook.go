// ABOUTME: Provider webhook endpoints: subscription handshake and event delivery
// ABOUTME: Deliveries are decoded here and handed to the ingestion pipeline

package gateway

import (
	"errors"
	"net/http"

	"github.com/2389/wadash/internal/ingest"
)

// webhookVerifyToken returns the configured verify token, falling back to
// the one saved through the dashboard.
func (g *Gateway) webhookVerifyToken(r *http.Request) string {
	if g.config.Webhook.VerifyToken != "" {
		return g.config.Webhook.VerifyToken
	}
	return g.store.ReadConfig(r.Context()).VerifyToken
}

func (g *Gateway) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	expected := g.webhookVerifyToken(r)
	if mode != "subscribe" || expected == "" || token != expected {
		g.logger.Warn("webhook verification rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	g.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

func (g *Gateway) handleWebhookEvent(w http.ResponseWriter, r *http.Request) {
	var batch ingest.WebhookBatch
	if err := decodeJSON(w, r, &batch); err != nil {
		g.logger.Warn("undecodable webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, err := g.pipeline.HandleBatch(r.Context(), &batch); err != nil {
		if errors.Is(err, ingest.ErrUnsupportedObject) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		g.logger.Error("webhook processing error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("EVENT_RECEIVED"))
}
