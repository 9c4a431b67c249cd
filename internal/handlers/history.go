package handlers

import (
	"context"
	"net/http"
	"strconv"

	"worksheet-backend/internal/middleware"
	"worksheet-backend/internal/models"
)

type HistoryLister interface {
	ListByClient(ctx context.Context, clientID string, limit int) ([]models.GenerationEvent, error)
}

type HistoryHandler struct {
	repo HistoryLister
}

// NewHistoryHandler accepts a nil repo when history is not configured.
func NewHistoryHandler(repo HistoryLister) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Generation history is not enabled", r))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.repo.ListByClient(r.Context(), middleware.GetClientID(r.Context()), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
		return
	}
	if events == nil {
		events = []models.GenerationEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
