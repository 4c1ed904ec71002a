package scheduler

import (
	"context"
	"testing"
	"time"

	"sheetcache/internal/auditlog"
	"sheetcache/internal/cache"
	"sheetcache/internal/config"
	"sheetcache/internal/registry"
	logx "sheetcache/pkg/logx"
)

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "A,B\n1,2", nil
}

func newCacheService() *cache.Service {
	reg := registry.New([]config.ReportConfig{
		{ID: "r", Label: "R", Category: "c", URL: "u://r"},
	}, nil)
	return cache.New(reg, staticFetcher{}, nil, auditlog.New(logx.Nop()), logx.Nop())
}

func TestDefaultInterval(t *testing.T) {
	s := New(Config{}, newCacheService(), logx.Nop())
	if s.cfg.Interval != DefaultInterval {
		t.Fatalf("expected default interval %v, got %v", DefaultInterval, s.cfg.Interval)
	}
}

func TestStartStop(t *testing.T) {
	svc := newCacheService()
	s := New(Config{Interval: time.Hour}, svc, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Second start is a no-op, not an error.
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}

	s.Stop()
	s.Stop() // idempotent
}

func TestTickRunsReload(t *testing.T) {
	svc := newCacheService()
	s := New(Config{Interval: time.Hour}, svc, logx.Nop())
	s.runCtx = context.Background()

	s.tick()
	if svc.LoadCount() != 1 {
		t.Fatalf("tick should run one reload cycle, got count %d", svc.LoadCount())
	}
	if _, ok := svc.Peek("r"); !ok {
		t.Fatalf("report not ingested by tick")
	}
}

func TestTickSkipsWhenCanceled(t *testing.T) {
	svc := newCacheService()
	s := New(Config{Interval: time.Hour}, svc, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runCtx = ctx

	s.tick()
	if svc.LoadCount() != 0 {
		t.Fatalf("canceled scheduler must not reload")
	}
}
