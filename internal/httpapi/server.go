// Package httpapi exposes the report cache through a JSON query API.
//
// The layer is deliberately thin: every endpoint reads the cache service,
// the registry, the audit log, or the durable store; no business logic
// lives here.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	logx "sheetcache/pkg/logx"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RatePerSec int
	RateBurst  int
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}

// Server owns the HTTP listener lifecycle.
type Server struct {
	srv *http.Server
	log logx.Logger
}

// NewRouter builds the gin engine with the standard middleware chain.
func NewRouter(cfg ServerConfig, h *Handlers, log logx.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recovery(log))
	r.Use(RequestLogger(log))
	r.Use(RateLimit(cfg.RatePerSec, cfg.RateBurst))
	RegisterRoutes(r, h)
	return r
}

func NewServer(cfg ServerConfig, h *Handlers, log logx.Logger) *Server {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	router := NewRouter(cfg, h, log)
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("http api listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}()
}

// Shutdown drains connections until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
