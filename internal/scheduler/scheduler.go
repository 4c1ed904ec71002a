// Package scheduler drives periodic reload cycles on a fixed cadence.
//
// Manual reload requests share the cache service's single-flight guard: a
// scheduled tick landing while a manual reload runs is skipped, not queued.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sheetcache/internal/cache"
	logx "sheetcache/pkg/logx"
)

const DefaultInterval = 20 * time.Minute

type Config struct {
	Interval time.Duration
}

type Service struct {
	cfg   Config
	cache *cache.Service
	log   logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

func New(cfg Config, cacheSvc *cache.Service, log logx.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, cache: cacheSvc, log: log}
}

// Start registers the reload job and begins ticking. Safe to call once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.c = cron.New()

	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	_, err := s.c.AddFunc(spec, s.tick)
	if err != nil {
		s.cancel()
		return fmt.Errorf("register reload schedule: %w", err)
	}

	s.c.Start()
	s.started = true
	s.log.Info("reload schedule active", logx.Duration("interval", s.cfg.Interval))
	return nil
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if _, err := s.cache.Reload(ctx); err != nil {
		if err == cache.ErrReloadInProgress {
			s.log.Debug("scheduled reload skipped; one is already running")
			return
		}
		s.log.Error("scheduled reload failed", logx.Err(err))
	}
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.c.Stop()
	<-stopCtx.Done()
	s.started = false
	s.log.Info("reload schedule stopped")
}
