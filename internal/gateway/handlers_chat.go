// ABOUTME: HTTP handlers for message history, contacts, stats and search
// ABOUTME: Reads go straight to the store; contact saves go through upsert

package gateway

import (
	"errors"
	"net/http"

	"github.com/2389/wadash/internal/store"
)

const (
	defaultPage  = 1
	defaultLimit = 50
)

type saveContactRequest struct {
	Phone string  `json:"phone"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", defaultLimit)

	result, err := g.store.Paginate(r.Context(), page, limit)
	if err != nil {
		g.logger.Error("get messages error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*store.MessagePage
	}{true, result})
}

func (g *Gateway) handleContacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"contacts": g.store.Contacts(r.Context()),
	})
}

func (g *Gateway) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	var req saveContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Phone == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	c, err := g.store.UpsertContact(r.Context(), store.ContactInput{
		Phone: req.Phone,
		Name:  req.Name,
		Email: req.Email,
		Notes: req.Notes,
	})
	if err != nil {
		g.logger.Error("save contact error", "phone", req.Phone, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to save contact")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contact saved successfully",
		"contact": c,
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := g.store.Stats(r.Context())
	if err != nil {
		g.logger.Error("get stats error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to get statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := g.store.Search(r.Context(), store.SearchQuery{
		Text: q.Get("query"),
		From: q.Get("from"),
		Type: q.Get("type"),
	})
	if errors.Is(err, store.ErrValidation) {
		g.sendJSONError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	if err != nil {
		g.logger.Error("search messages error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to search messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": result.Messages,
		"total":    result.Total,
	})
}
