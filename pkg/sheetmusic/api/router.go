package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BasePath is where the catalog routes are mounted
const BasePath = "/api/v1/sheet-music"

// RouterConfig controls the top level router
type RouterConfig struct {
	// RequestTimeout cancels request contexts after the duration. Zero disables it.
	RequestTimeout time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter mounts handler under BasePath next to the health check
func NewRouter(handler *SheetMusicHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", Health)
	r.Mount(BasePath, handler.Routes())

	return r
}
