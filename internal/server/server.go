// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package server is the microdata HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"codeberg.org/readeck/microdata/configs"
	"codeberg.org/readeck/microdata/internal/extractions"
	"codeberg.org/readeck/microdata/internal/metrics"
)

// Server is a wrapper around chi router.
type Server struct {
	*chi.Mux
	prefix      string
	extractions *extractions.Manager
	metrics     *metrics.Metrics
	maxBodySize int64
}

// New creates a new server with its routes.
func New(manager *extractions.Manager, m *metrics.Metrics) *Server {
	s := &Server{
		Mux:         chi.NewRouter(),
		prefix:      "/" + strings.Trim(configs.Config.Server.Prefix, "/"),
		extractions: manager,
		metrics:     m,
		maxBodySize: configs.Config.Fetch.MaxSize,
	}

	s.Use(
		middleware.Recoverer,
		middleware.RealIP,
		InitRequest,
		Logger(),
		m.Middleware,
		SetSecurityHeaders,
		CompressResponse,
		middleware.CleanPath,
		middleware.StripSlashes,
	)

	s.NotFound(func(w http.ResponseWriter, r *http.Request) {
		TextMsg(w, r, http.StatusNotFound, "not found")
	})
	s.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		TextMsg(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Mounted routers inherit the handlers above.
	s.AddRoute("/api/info", infoRoutes())
	s.AddRoute("/api/extract", s.extractRoutes())
	s.AddRoute("/api/extractions", s.extractionRoutes())
	s.Mux.Method(http.MethodGet, path.Join(s.prefix, "/metrics"), m.Handler())

	return s
}

// AddRoute adds a new route to the server, prefixed with
// the configured prefix.
func (s *Server) AddRoute(pattern string, handler http.Handler) {
	s.Mount(path.Join(s.prefix, pattern), handler)
}

// ListenAndServe starts the HTTP server and stops it gracefully
// when the context is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr: net.JoinHostPort(
			configs.Config.Server.Host,
			strconv.Itoa(configs.Config.Server.Port),
		),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server started", slog.String("addr", srv.Addr), slog.String("prefix", s.prefix))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// infoRoutes returns the route returning the service information.
func infoRoutes() http.Handler {
	r := chi.NewRouter()

	type versionInfo struct {
		Canonical string `json:"canonical"`
		Release   string `json:"release"`
		Build     string `json:"build"`
	}

	type serviceInfo struct {
		Version versionInfo `json:"version"`
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		canonical := configs.Version()
		release, build, _ := strings.Cut(canonical, "-")

		Render(w, r, http.StatusOK, serviceInfo{
			Version: versionInfo{
				Canonical: canonical,
				Release:   release,
				Build:     build,
			},
		})
	})

	return r
}

// SetSecurityHeaders adds some headers to every API response.
func SetSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		next.ServeHTTP(w, r)
	})
}

// CompressResponse returns a gzipped response for some content types.
// It uses gzhttp that provides a BREACH mittigation.
func CompressResponse(next http.Handler) http.Handler {
	w, err := gzhttp.NewWrapper(
		gzhttp.CompressionLevel(5),
		gzhttp.ContentTypes([]string{
			"application/json", "application/ld+json", "text/plain",
		}),
		gzhttp.SuffixETag("-gzip"),
		gzhttp.MinSize(1024),
		gzhttp.RandomJitter(32, 0, false),
	)
	if err != nil {
		panic(err)
	}
	return w(next)
}
