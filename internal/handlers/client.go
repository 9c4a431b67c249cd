package handlers

import (
	"net/http"
	"strings"

	"worksheet-backend/internal/middleware"
)

type ClientHandler struct {
	auth *middleware.ClientAuth
}

func NewClientHandler(auth *middleware.ClientAuth) *ClientHandler {
	return &ClientHandler{auth: auth}
}

// IssueToken hands out an anonymous client token. A still-valid bearer token
// is renewed for the same client so its quota carries over.
func (h *ClientHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	clientID := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		if id, err := h.auth.ParseToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
			clientID = id
		}
	}

	token, id, expiresAt, err := h.auth.IssueToken(clientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue token", r))
		return
	}

	status := http.StatusCreated
	if clientID != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"token":      token,
		"client_id":  id,
		"expires_at": expiresAt,
	})
}
