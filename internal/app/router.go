package app

import (
	"database/sql"
	"net/http"
	"time"

	"dynamicsurvey/internal/app/observability"
	"dynamicsurvey/internal/auth"
	"dynamicsurvey/internal/survey"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		SessionTTL: time.Duration(cfg.SessionTTLHours) * time.Hour,
	})
	authHandler := auth.NewHandler(authSvc)

	surveySvc := survey.NewService(db)
	surveyHandler := survey.NewHandler(surveySvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(limited chi.Router) {
			limited.Use(RateLimitMiddleware(authLimiter))
			limited.Post("/auth/register", authHandler.Register)
			limited.Post("/auth/login", authHandler.Login)
		})

		api.Get("/surveys", surveyHandler.ListActive)
		api.Get("/surveys/{id}", surveyHandler.Get)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Post("/surveys/{id}/responses", surveyHandler.Submit)
			secure.Get("/me/responses", surveyHandler.MyHistory)

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles("admin"))
				admin.Get("/admin/surveys", surveyHandler.AdminList)
				admin.Post("/admin/surveys", surveyHandler.Create)
				admin.Put("/admin/surveys/{id}", surveyHandler.Update)
				admin.Delete("/admin/surveys/{id}", surveyHandler.Delete)
				admin.Get("/admin/surveys/{id}/responses", surveyHandler.Responses)
				admin.Get("/admin/surveys/{id}/stats", surveyHandler.Stats)
				admin.Get("/admin/surveys/{id}/stats/export", surveyHandler.ExportStats)
			})
		})
	})

	return r
}
