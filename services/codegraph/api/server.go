// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api serves a read-only HTTP view of a codegraph project.
//
// Routes:
//
//	GET  /health
//	GET  /metrics                 (when a metrics handler is configured)
//	GET  /v1/scopes
//	GET  /v1/scope?key=root/pkg
//	GET  /v1/resolve?kind=FUNCTION&symbol=foo&scope=root
//	GET  /v1/doc?scope=root&block=function_1
//	POST /v1/validate             {"scope": "root"}
//	GET  /v1/events               (websocket, one message per reload)
//
// Validation results are reported, never written back to the project.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/codegraph/services/codegraph/project"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithResolverOptions configures the symbol and doc resolvers.
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(s *Server) { s.resolverOpts = append(s.resolverOpts, opts...) }
}

// Server exposes one project over HTTP.
//
// Thread Safety: handlers take a read lock on the project; Reload takes
// the write lock.
type Server struct {
	mu           sync.RWMutex
	project      *project.Project
	resolver     *resolve.Resolver
	docs         *resolve.DocResolver
	resolverOpts []resolve.Option

	metrics http.Handler
	logger  *slog.Logger
	router  *gin.Engine
	events  *hub
}

// NewServer creates a Server for p.
func NewServer(p *project.Project, opts ...Option) *Server {
	s := &Server{logger: slog.Default(), events: newHub()}
	for _, opt := range opts {
		opt(s)
	}
	s.setProject(p)

	s.router = gin.New()
	s.router.Use(gin.Recovery(), otelgin.Middleware("codegraph"), s.logRequests())
	s.setupRoutes()
	return s
}

func (s *Server) setProject(p *project.Project) {
	s.project = p
	opts := append([]resolve.Option{resolve.WithLogger(s.logger)}, s.resolverOpts...)
	s.resolver = resolve.NewResolver(p.RootPath, opts...)
	s.docs = resolve.NewDocResolver(p.RootPath, opts...)
}

// Reload swaps in a freshly loaded project and notifies /v1/events
// subscribers.
func (s *Server) Reload(p *project.Project) {
	s.mu.Lock()
	s.setProject(p)
	s.mu.Unlock()
	s.events.publish(EventReload, p.RootPath)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.router.Group("/v1")
	{
		v1.GET("/scopes", s.handleScopes)
		v1.GET("/scope", s.handleScope)
		v1.GET("/resolve", s.handleResolve)
		v1.GET("/doc", s.handleDoc)
		v1.POST("/validate", s.handleValidate)
		v1.GET("/events", s.handleEvents)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving project", slog.String("addr", addr), slog.String("root", s.project.RootPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		s.events.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
