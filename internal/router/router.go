package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"revisia-backend/internal/handlers"
	"revisia-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	assistantHandler *handlers.AssistantHandler,
	documentHandler *handlers.DocumentHandler,
	frontendURL string,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestIDHeader)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Generation limiter (20 req/min per user or IP), independent of the daily quota
	generateLimiter := middleware.NewRateLimiter(20, time.Minute)
	uploadLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Assistant Routes ────
		r.Route("/assistant", func(r chi.Router) {
			// Anonymous callers may reach these; the assistant decides what they get.
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Optional)
				r.With(generateLimiter.Middleware).Post("/generate", assistantHandler.Generate)
				r.Get("/modes", assistantHandler.Modes)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/quota", assistantHandler.Quota)
				r.Get("/history", assistantHandler.History)
				r.Get("/history/{id}", assistantHandler.HistoryEntry)
			})
		})

		// ──── Document Routes ────
		r.Route("/documents", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(uploadLimiter.Middleware)
			r.Post("/extract", documentHandler.Extract)
		})
	})

	return r
}
