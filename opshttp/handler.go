package opshttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danpasecinic/opsdiag"
)

var ErrUnmappedStatus = errors.New("health status has no response code")

// Handler serves the engine's reports as JSON.
type Handler struct {
	engine *opsdiag.Engine
	cfg    Config
	logger *slog.Logger
	mux    chi.Router
	routes []string
}

// NewHandler validates cfg and mounts the enabled routes under its root
// path.
func NewHandler(e *opsdiag.Engine, cfg Config) (*Handler, error) {
	for _, status := range opsdiag.HealthStatuses() {
		code, ok := cfg.ResultStatusCodes[status]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedStatus, status)
		}
		if code < 100 || code > 599 {
			return nil, fmt.Errorf("%w: %s maps to invalid code %d", ErrUnmappedStatus, status, code)
		}
	}
	cfg.ResultStatusCodes = maps.Clone(cfg.ResultStatusCodes)
	if cfg.Policy == "" {
		cfg.Policy = DefaultPolicy
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	cfg.RootPath = "/" + strings.Trim(cfg.RootPath, "/")
	if cfg.RootPath == "/" {
		cfg.RootPath = ""
	}

	h := &Handler{
		engine: e,
		cfg:    cfg,
		logger: e.Logger(),
		mux:    chi.NewRouter(),
	}
	h.mux.Use(middleware.Recoverer)

	r := cfg.Routes
	h.handle(r.Options, "/options", func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusOK, e.OptionsReport(req.Context()))
	})
	h.handle(r.Services, "/services", func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusOK, e.ServicesReport(req.Context()))
	})
	h.handle(r.HostedServices, "/hostedServices", func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusOK, e.HostedServicesReport(req.Context()))
	})
	h.handle(r.Caches, "/caches", func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusOK, e.CachesReport())
	})
	h.handle(r.Features, "/features", func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusOK, e.FeaturesReport(req.Context()))
	})
	h.handle(r.Environment, "/env", func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusOK, e.EnvironmentReport())
	})
	h.handle(r.Health, "/health", h.serveHealth)
	h.handle(r.Liveness, "/health/live", func(w http.ResponseWriter, req *http.Request) {
		h.writeHealth(w, e.CheckHealth(req.Context(), opsdiag.NoChecks))
	})
	if r.Metrics {
		h.handle(true, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}
	h.handle(r.Routes, "/routes", func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string][]string{"routes": h.Routes()})
	})

	return h, nil
}

func (h *Handler) handle(enabled bool, path string, fn http.HandlerFunc) {
	if !enabled {
		return
	}
	full := h.cfg.RootPath + path
	h.routes = append(h.routes, "GET "+full)
	h.mux.Get(full, h.wrap(fn))
}

// Routes lists the mounted routes in mount order.
func (h *Handler) Routes() []string {
	out := make([]string, len(h.routes))
	copy(out, h.routes)
	return out
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.AllowCachingResponses {
			header := w.Header()
			header.Set("Cache-Control", "no-store, no-cache")
			header.Set("Pragma", "no-cache")
			header.Set("Expires", "Thu, 01 Jan 1970 00:00:00 GMT")
		}

		if h.cfg.AuthSecret != "" {
			if status, err := h.authorize(r); err != nil {
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				h.writeJSON(w, status, map[string]string{"error": err.Error()})
				return
			}
		}

		if h.cfg.RequestTimeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		next(w, r)
	}
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	predicate := opsdiag.Predicate(opsdiag.AllChecks)
	if raw := r.URL.Query().Get("tags"); raw != "" {
		predicate = opsdiag.HasAllTags(splitTags(raw)...)
	} else if h.cfg.ExcludeStartupChecks {
		predicate = opsdiag.WithoutTag(opsdiag.TagStartup)
	}
	h.writeHealth(w, h.engine.CheckHealth(r.Context(), predicate))
}

func (h *Handler) writeHealth(w http.ResponseWriter, report opsdiag.HealthReport) {
	h.writeJSON(w, h.cfg.ResultStatusCodes[report.Status], report)
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}
