package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestShutdownHookOrder(t *testing.T) {
	sm := NewShutdownManager(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	sm.RegisterHook(ShutdownHook{Name: "third", Priority: 3, Handler: record("third")})
	sm.RegisterHook(ShutdownHook{Name: "first", Priority: 1, Handler: record("first")})
	sm.RegisterHook(ShutdownHook{Name: "second", Priority: 2, Handler: record("second")})

	sm.Shutdown()

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	sm := NewShutdownManager(time.Second)

	stopped := make(chan struct{})
	sm.Go("worker", func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	if sm.Context().Err() != nil {
		t.Error("Should not be shutting down yet")
	}

	sm.Shutdown()

	select {
	case <-stopped:
	default:
		t.Error("Shutdown returned before the worker stopped")
	}
	if sm.Context().Err() == nil {
		t.Error("Expected the shutdown context to be cancelled")
	}
}

func TestShutdownHookFailureCounted(t *testing.T) {
	sm := NewShutdownManager(time.Second)
	before := testutil.ToFloat64(shutdownErrors.WithLabelValues("failing"))

	sm.RegisterHook(ShutdownHook{
		Name:    "failing",
		Handler: func(context.Context) error { return errors.New("boom") },
	})
	sm.Shutdown()
	sm.Shutdown()

	if after := testutil.ToFloat64(shutdownErrors.WithLabelValues("failing")); after != before+1 {
		t.Errorf("Expected one counted failure, got %v -> %v", before, after)
	}
}

func TestShutdownStopsHTTPServers(t *testing.T) {
	sm := NewShutdownManager(time.Second)

	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Start()
	defer ts.Close()
	sm.AddHTTPServer(ts.Config)

	sm.Shutdown()

	if _, err := http.Get(ts.URL); err == nil {
		t.Error("Expected server to be stopped")
	}
}
