// ABOUTME: HTTP handlers for provider settings, webhook verification, profile and sends
// ABOUTME: Sends reach the provider first and are recorded only once it accepts them

package gateway

import (
	"errors"
	"net/http"

	"github.com/2389/wadash/internal/auth"
	"github.com/2389/wadash/internal/ingest"
	"github.com/2389/wadash/internal/provider"
	"github.com/2389/wadash/internal/store"
)

// redactedSecret is what GET /api/whatsapp/config shows in place of
// secrets. Saving it back leaves the stored secret unchanged.
const redactedSecret = "********"

type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// providerErrorMessage returns the Graph API message when there is one.
func providerErrorMessage(err error) string {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func (g *Gateway) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  g.store.ReadConfig(r.Context()).Redacted(),
	})
}

func (g *Gateway) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.AppSecret != nil && *patch.AppSecret == redactedSecret {
		patch.AppSecret = nil
	}
	if patch.WebhookToken != nil && *patch.WebhookToken == redactedSecret {
		patch.WebhookToken = nil
	}

	op := auth.FromContext(r.Context())
	if _, err := g.store.SaveConfig(r.Context(), patch, op.Username); err != nil {
		g.logger.Error("save config error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}
	writeOK(w, "Configuration saved successfully")
}

func (g *Gateway) handleVerifyWebhook(w http.ResponseWriter, r *http.Request) {
	st := g.store.ReadConfig(r.Context())
	if st.WebhookURL == "" || st.VerifyToken == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Webhook URL and verify token must be configured first")
		return
	}

	if err := g.provider.VerifyWebhook(r.Context(), st.WebhookURL, st.VerifyToken); err != nil {
		message := "Webhook verification failed: " + err.Error()
		if errors.Is(err, provider.ErrChallengeMismatch) {
			message = "Webhook verification failed - invalid response"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  false,
			"message":  message,
			"verified": false,
		})
		return
	}

	if err := g.store.MarkWebhookVerified(r.Context()); err != nil {
		g.logger.Error("mark webhook verified error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to verify webhook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Webhook verified successfully",
		"verified": true,
	})
}

func (g *Gateway) handleProfile(w http.ResponseWriter, r *http.Request) {
	st := g.store.ReadConfig(r.Context())
	if !st.CanReadProfile() {
		g.sendJSONError(w, http.StatusBadRequest, "WhatsApp configuration is incomplete")
		return
	}

	profile, err := g.provider.BusinessProfile(r.Context(), st)
	if err != nil {
		g.logger.Warn("fetch profile error", "error", err)
		g.sendJSONError(w, http.StatusBadRequest, "Failed to fetch profile: "+providerErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
}

func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	st := g.store.ReadConfig(r.Context())
	if !st.CanSend() {
		g.sendJSONError(w, http.StatusBadRequest, "WhatsApp configuration is incomplete")
		return
	}
	if req.To == "" || req.Message == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Phone number and message are required")
		return
	}

	messageID, err := g.provider.SendText(r.Context(), st, req.To, req.Message)
	if err != nil {
		g.logger.Warn("send message error", "to", req.To, "error", err)
		g.sendJSONError(w, http.StatusBadRequest, "Failed to send message: "+providerErrorMessage(err))
		return
	}

	// The provider has accepted the message, so a local write failure is
	// logged rather than reported as a failed send.
	if _, err := g.pipeline.RecordSent(r.Context(), ingest.SentMessage{
		ID:   messageID,
		To:   req.To,
		Text: req.Message,
	}); err != nil {
		g.logger.Error("failed to record sent message", "message_id", messageID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Message sent successfully",
		"messageId": messageID,
	})
}
