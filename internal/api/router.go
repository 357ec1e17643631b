package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"lite-drive/internal/metrics"
)

// NewRouter mounts every route of the server. The upload, download, delete
// and preview routes stay at the root; everything else lives under /api/v1.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.AllowAll().Handler)
	r.Use(s.RateLimitMiddleware)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(s.config.AppHost+"/swagger/doc.json"),
	))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("LiteDrive is running. API documentation is available at /swagger/index.html"))
	})

	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/login", s.LoginHandler)
	r.Get("/auth/callback", s.CallbackHandler)

	r.Get("/ws", s.ServeWsHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Use(s.ActiveAccountMiddleware)

		r.Post("/upload", s.UploadHandler)
		r.Get("/download/{id}", s.DownloadHandler)
		r.Delete("/file/{id}", s.DeleteFileHandler)
		r.Get("/preview/{id}", s.PreviewHandler)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/refresh", s.RefreshTokenHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)
			r.Use(s.ActiveAccountMiddleware)

			r.Post("/auth/logout", s.LogoutHandler)

			r.Get("/me", s.GetCurrentUserHandler)
			r.Get("/me/storage", s.GetStorageUsageHandler)
			r.Get("/files", s.ListFilesHandler)

			r.Get("/sessions", s.ListSessionsHandler)
			r.Delete("/sessions/{sessionId}", s.DeleteSessionHandler)
			r.Post("/sessions/terminate_all", s.TerminateAllSessionsHandler)

			r.Get("/events", s.GetEventsHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminMiddleware)
				r.Get("/users", s.ListUsersHandler)
				r.Patch("/users/{userId}", s.UpdateUserHandler)
				r.Delete("/users/{userId}", s.DeleteUserHandler)
			})
		})
	})

	return r
}
