package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/user/finclaw/pkg/httputil"
)

// NewRouter assembles the HTTP API. All /v1 routes require a bearer token
// signed with jwtSecret.
func NewRouter(h *Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(Auth(jwtSecret))

		v1.Post("/chat", h.Chat)

		v1.Route("/threads", func(tr chi.Router) {
			tr.Get("/", h.ListThreads)
			tr.Post("/", h.CreateThread)
			tr.Get("/{threadID}/messages", h.GetThreadMessages)
			tr.Patch("/{threadID}", h.UpdateThread)
			tr.Delete("/{threadID}", h.DeleteThread)
		})
	})

	return r
}
