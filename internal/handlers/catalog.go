package handlers

import (
	"net/http"

	"worksheet-backend/internal/catalog"
	"worksheet-backend/internal/flow"
	"worksheet-backend/internal/middleware"
	"worksheet-backend/internal/models"
)

type CatalogHandler struct {
	ctrl       *flow.Controller
	dailyLimit int
}

func NewCatalogHandler(ctrl *flow.Controller, dailyLimit int) *CatalogHandler {
	return &CatalogHandler{ctrl: ctrl, dailyLimit: dailyLimit}
}

type catalogResponse struct {
	Board                string                    `json:"board"`
	SingleSubject        bool                      `json:"single_subject"`
	Grades               []catalog.Grade           `json:"grades"`
	Difficulties         []models.DifficultyOption `json:"difficulties"`
	QuestionCounts       []int                     `json:"question_counts"`
	DefaultQuestionCount int                       `json:"default_question_count"`
	DailyLimit           int                       `json:"daily_limit"`
	ExportFormats        []string                  `json:"export_formats"`
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	cat := h.ctrl.Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{
		Board:                cat.Board,
		SingleSubject:        cat.SingleSubject(),
		Grades:               cat.Grades,
		Difficulties:         models.DifficultyOptions(),
		QuestionCounts:       h.ctrl.QuestionCounts(),
		DefaultQuestionCount: h.ctrl.DefaultQuestionCount(),
		DailyLimit:           h.dailyLimit,
		ExportFormats:        h.ctrl.Formats(),
	})
}

func (h *CatalogHandler) Usage(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	writeJSON(w, http.StatusOK, h.ctrl.Usage(r.Context(), clientID))
}
