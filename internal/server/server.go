// Package server wires the gin engine, middleware and API routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"luongimport/internal/api"
	"luongimport/internal/config"
	"luongimport/internal/importer"
	"luongimport/internal/store"
)

// Server HTTP server
type Server struct {
	router *gin.Engine
	store  *store.Store
	logger *slog.Logger

	mu   sync.Mutex
	http *http.Server
}

// NewServer opens the store, seeds the built-in mappings and builds the routes
func NewServer(cfg *config.AppConfig, l *slog.Logger) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.New(filepath.Join(dataDir, "luongimport.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := st.SeedDefaultMappings(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to seed mappings: %w", err)
	}

	s := &Server{
		router: gin.New(),
		store:  st,
		logger: l,
	}
	coordinator := importer.NewCoordinator(st, l, cfg.Import)
	s.setupRoutes(api.NewHandler(st, coordinator, cfg.Import, l), cfg.Server.DevMode)
	return s, nil
}

func (s *Server) setupRoutes(h *api.Handler, devMode bool) {
	s.router.Use(gin.Recovery(), RequestLogger(s.logger))

	if devMode {
		s.router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Actor")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(s.router.Group("/api"))
}

// Handler the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until Shutdown
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes the store
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
