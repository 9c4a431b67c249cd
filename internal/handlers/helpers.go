package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"worksheet-backend/internal/flow"
	"worksheet-backend/internal/models"
	"worksheet-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		forbiddenErr  *services.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbiddenErr.Message, r))
	case errors.Is(err, flow.ErrGenerationInProgress):
		writeJSON(w, http.StatusConflict, errorResp("GENERATION_IN_PROGRESS", "A worksheet is already being generated", r))
	case errors.Is(err, flow.ErrInvalidView):
		writeJSON(w, http.StatusConflict, errorResp("INVALID_VIEW", "That action is not available right now", r))
	case errors.Is(err, flow.ErrUnknownFormat):
		writeJSON(w, http.StatusBadRequest, errorResp("UNSUPPORTED_FORMAT", "Unsupported export format", r))
	case errors.Is(err, services.ErrInvalidResponseFormat):
		writeJSON(w, http.StatusBadGateway, errorResp("INVALID_RESPONSE_FORMAT", "The worksheet came back in an unexpected format. Please try again.", r))
	case errors.Is(err, services.ErrGenerationUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_UNAVAILABLE", "Failed to generate worksheet. Please try again.", r))
	default:
		log.Printf("ERROR: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func questionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "questionId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question ID", r))
		return 0, false
	}
	return id, true
}
