// ABOUTME: HTTP handlers for operator login, identity and password change
// ABOUTME: Response messages match what the dashboard frontend displays

package gateway

import (
	"errors"
	"net/http"

	"github.com/2389/wadash/internal/auth"
	"github.com/2389/wadash/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, op, err := g.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		g.sendJSONError(w, http.StatusBadRequest, "Username and password are required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		g.sendJSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		g.logger.Error("login error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    op,
	})
}

func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    auth.FromContext(r.Context()),
	})
}

func (g *Gateway) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	op := auth.FromContext(r.Context())
	err := g.auth.ChangePassword(r.Context(), op.Username, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		g.sendJSONError(w, http.StatusBadRequest, "Current password and new password are required")
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		g.sendJSONError(w, http.StatusUnauthorized, "Current password is incorrect")
	case err != nil:
		g.logger.Error("change password error", "username", op.Username, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Failed to update password")
	default:
		writeOK(w, "Password updated successfully")
	}
}
