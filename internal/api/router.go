package api

import (
	"log/slog"
	"net/http"

	"hls-liveness/internal/platform/logger"
	"hls-liveness/internal/platform/metrics"
	"hls-liveness/internal/platform/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every endpoint. m and limiter may be nil.
func NewRouter(h *Handler, log *slog.Logger, m *metrics.Metrics, limiter *ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	if m != nil {
		r.Use(metrics.RequestMiddleware(m))
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			m.Handler(func() { m.SetStreams(h.reg.Counts()) }).ServeHTTP(w, req)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors)
		r.Get("/health", h.Health)
		r.Get("/status", h.Status)
		r.Route("/streams", func(r chi.Router) {
			r.Get("/", h.ListStreams)
			r.Get("/{name}", h.GetStream)
			r.Post("/{name}/publish", h.Publish)
			r.Post("/{name}/publish_done", h.PublishDone)
		})
		r.With(ratelimit.Middleware(limiter)).Post("/auth", h.Authorize)
		r.Route("/auth/keys", func(r chi.Router) {
			r.Get("/", h.ListKeys)
			r.Post("/", h.GenerateKey)
			r.Delete("/{key}", h.RemoveKey)
		})
	})

	r.Get("/hls/*", h.ServeArtifact)

	r.Get("/", h.ServeIndex)
	r.Get("/streamingservice", h.ServeIndex)
	r.Get("/streamingservice/", h.ServeIndex)
	r.Handle("/static/*", h.StaticFiles())

	return r
}

// cors allows browser players on other origins to read the API and answers
// preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
