package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/transcribe/middleware"
)

// RouterConfig carries what NewRouter wires together.
type RouterConfig struct {
	JWTSecret   string
	CORSOrigins []string
	Pages       *PagesHandler
	Blobs       *BlobsHandler
	// RequestLogging enables chi's per-request access log.
	RequestLogging bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigins...))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Blobs != nil {
		r.Get("/blobs/*", cfg.Blobs.Get)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Route("/books/{book}/pages", func(r chi.Router) {
			r.Get("/", cfg.Pages.List)
			r.Post("/{page}/claim", cfg.Pages.Claim)
			r.Post("/{page}/complete", cfg.Pages.Complete)
			r.Post("/{page}/release", cfg.Pages.Release)
		})
	})
	return r
}
