package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"worksheet-backend/internal/export"
	"worksheet-backend/internal/flow"
	"worksheet-backend/internal/middleware"
	"worksheet-backend/internal/models"
	"worksheet-backend/internal/session"
)

type SessionHandler struct {
	ctrl *flow.Controller
}

func NewSessionHandler(ctrl *flow.Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	writeJSON(w, http.StatusCreated, h.ctrl.Open(clientID))
}

// respond runs a session operation for the path's session id and writes the snapshot.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, op func(clientID string, id uuid.UUID) (session.Snapshot, error)) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := op(middleware.GetClientID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Snapshot(clientID, id)
	})
}

func (h *SessionHandler) Begin(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Begin(clientID, id)
	})
}

func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var upd flow.SelectionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Select(clientID, id, upd)
	})
}

type quotaExceededResponse struct {
	models.ErrorResponse
	Usage models.UsageView `json:"usage"`
}

func (h *SessionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	res, err := h.ctrl.Generate(r.Context(), middleware.GetClientID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.QuotaExceeded {
		msg := fmt.Sprintf("Daily limit of %d worksheets reached. Please come back tomorrow.", res.Usage.Limit)
		writeJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
			ErrorResponse: errorResp("QUOTA_EXCEEDED", msg, r),
			Usage:         res.Usage,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	qid, ok := questionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Answer(clientID, id, qid, req.Answer)
	})
}

func (h *SessionHandler) Grade(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Grade(clientID, id)
	})
}

func (h *SessionHandler) ToggleSolution(w http.ResponseWriter, r *http.Request) {
	qid, ok := questionID(w, r)
	if !ok {
		return
	}
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.ToggleSolution(clientID, id, qid)
	})
}

func (h *SessionHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.DismissError(clientID, id)
	})
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Reset(clientID, id)
	})
}

func (h *SessionHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(clientID string, id uuid.UUID) (session.Snapshot, error) {
		return h.ctrl.Home(clientID, id)
	})
}

func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}
	withSolutions, _ := strconv.ParseBool(r.URL.Query().Get("solutions"))

	var buf bytes.Buffer
	exp, ws, err := h.ctrl.Export(middleware.GetClientID(r.Context()), id, format,
		export.Options{WithSolutions: withSolutions}, &buf)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(ws, exp.Format())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
