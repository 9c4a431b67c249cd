package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"worksheet-backend/internal/handlers"
	"worksheet-backend/internal/middleware"
	"worksheet-backend/internal/websocket"
)

func New(
	clientAuth *middleware.ClientAuth,
	clientHandler *handlers.ClientHandler,
	catalogHandler *handlers.CatalogHandler,
	sessionHandler *handlers.SessionHandler,
	historyHandler *handlers.HistoryHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Token issuing limiter (10 req/min per IP)
	tokenLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Client Token (public) ────
		r.With(tokenLimiter.Middleware).Post("/client-token", clientHandler.IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(clientAuth.Middleware)

			// ──── Catalog & Usage ────
			r.Get("/catalog", catalogHandler.Get)
			r.Get("/usage", catalogHandler.Usage)

			// ──── Session Routes ────
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.Open)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Post("/begin", sessionHandler.Begin)
					r.Put("/selection", sessionHandler.Select)
					r.Post("/generate", sessionHandler.Generate)
					r.Put("/answers/{questionId}", sessionHandler.Answer)
					r.Post("/grade", sessionHandler.Grade)
					r.Post("/solutions/{questionId}/toggle", sessionHandler.ToggleSolution)
					r.Delete("/error", sessionHandler.DismissError)
					r.Post("/reset", sessionHandler.Reset)
					r.Post("/home", sessionHandler.Home)
					r.Get("/export", sessionHandler.Export)
				})
			})

			// ──── History ────
			r.Get("/history", historyHandler.List)
		})

		// ──── WebSocket (authenticates via ?token=) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
