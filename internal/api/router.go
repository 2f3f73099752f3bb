package api

import (
	"net/http"

	"github.com/frankjeworrek-lab/yat/internal/config"
	"github.com/frankjeworrek-lab/yat/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(cfg *config.Config, logger *zap.Logger, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	r.Get("/health", h.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", h.ListProviders)
		r.Route("/providers/{id}", func(r chi.Router) {
			r.Get("/models", h.ProviderModels)
			r.Post("/enable", h.EnableProvider)
			r.Post("/disable", h.DisableProvider)
			r.Put("/settings", h.UpdateSettings)
			r.Post("/reload", h.ReloadProvider)
		})

		r.Get("/models", h.ListModels)
		r.Post("/chat/completions", h.ChatCompletions)

		r.Route("/system", func(r chi.Router) {
			r.Get("/connection", h.ConnectionStatus)
			r.Post("/factory-reset", h.FactoryReset)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"message": "Not found", "type": "invalid_request_error"}}`))
	})

	return r
}
