package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Pinger is a dependency the health endpoint probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type RouterConfig struct {
	// RateLimitPerMinute caps REST requests per client IP; 0 disables it.
	RateLimitPerMinute int
}

// Deps are the handlers the router mounts besides the auction service.
type Deps struct {
	Service *Service
	Gateway http.Handler
	Metrics http.Handler
	Health  map[string]Pinger
}

// NewRouter assembles the HTTP surface: REST under /api, the connect
// service, the websocket endpoint, health and metrics.
func NewRouter(cfg RouterConfig, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	if deps.Gateway != nil {
		r.Handle("/ws", deps.Gateway)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			api.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		}
		deps.Service.routes(api)
	})

	path, handler := deps.Service.Handler()
	r.Handle(path+"*", handler)

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = "unreachable"
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
