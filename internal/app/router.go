package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/adevav/adevav-api/internal/auth"
	"github.com/adevav/adevav-api/internal/observability"
	"github.com/adevav/adevav-api/internal/posts"
	"github.com/adevav/adevav-api/internal/token"
	"github.com/adevav/adevav-api/internal/users"
	"github.com/adevav/adevav-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Resolver     *token.Resolver
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	PostsHandler *posts.Handler
	JobHandler   *jobs.Handler
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with ADEVAV defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Resolver: params.Resolver,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	prefix := "/api"
	if params.Config != nil && params.Config.APIPrefix != "" {
		prefix = params.Config.APIPrefix
	}

	r.Route(prefix, func(api chi.Router) {
		api.Route("/auth", params.AuthHandler.MountRoutes)
		api.Route("/users", params.UsersHandler.MountRoutes)
		api.Route("/posts", params.PostsHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
