package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	logx "sheetcache/pkg/logx"
)

const csvBody = "NOME,CIDADE\nDANONE,SAO PAULO\n"

func newClient(attempts int) *Client {
	return New(Options{Timeout: 2 * time.Second, Attempts: attempts, Delay: time.Millisecond}, logx.Nop())
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("missing no-cache header")
		}
		w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	body, err := newClient(3).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != csvBody {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	body, err := newClient(3).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch should succeed on the third attempt: %v", err)
	}
	if body != csvBody {
		t.Fatalf("unexpected body %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(3).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls.Load())
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if fe.Status != http.StatusInternalServerError || fe.Attempts != 3 {
		t.Fatalf("unexpected error detail: %+v", fe)
	}
}

func TestFetchShortBodyNotPropagated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Temporarily unavailable"))
	}))
	defer srv.Close()

	_, err := newClient(2).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("single-line body should be rejected")
	}
	if !errors.Is(err, ErrNotPropagated) {
		t.Fatalf("expected ErrNotPropagated, got %v", err)
	}
}

func TestFetchContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{Timeout: time.Second, Attempts: 5, Delay: time.Minute}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("cancellation should win over the retry delay")
	}
}

func TestDoRespectsRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), Policy{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
	}, func(ctx context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error should stop immediately, got %d calls", calls)
	}
}
