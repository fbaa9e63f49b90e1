package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/hashwatch/internal/api"
	"github.com/rickgao/hashwatch/internal/model"
)

// fakeSource returns a fixed info or error.
type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) GetInfo(ctx context.Context) (*model.SystemInfo, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.SystemInfo{HashRateTimestamp: int64(n) * 1000}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func stop(t *testing.T, p *Poller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPoller_AgainstDeviceAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/system/info" {
			t.Errorf("path = %s, want /api/system/info", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"hashRate_10m":      1.5,
			"hashRateTimestamp": 1700000000000,
		})
	}))
	defer server.Close()

	client := api.NewClient(server.URL, api.WithTimeout(5*time.Second))

	var got atomic.Int64
	handler := InfoHandlerFunc(func(ctx context.Context, info *model.SystemInfo, release func()) {
		defer release()
		got.Store(info.HashRateTimestamp)
	})

	p := New(Config{Interval: time.Hour, Timeout: 5 * time.Second}, client, handler, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stop(t, p)

	waitFor(t, func() bool { return got.Load() != 0 })
	if got.Load() != 1700000000000 {
		t.Errorf("timestamp = %d, want 1700000000000", got.Load())
	}
}

func TestPoller_StartStop(t *testing.T) {
	source := &fakeSource{}
	var called atomic.Int32
	handler := InfoHandlerFunc(func(ctx context.Context, info *model.SystemInfo, release func()) {
		called.Add(1)
		release()
	})

	p := New(Config{Interval: 20 * time.Millisecond, Timeout: time.Second}, source, handler, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, func() bool { return called.Load() >= 3 })
	stop(t, p)

	if p.Stats().Polls < 3 {
		t.Errorf("Polls = %d, want >= 3", p.Stats().Polls)
	}
}

func TestPoller_HeldSlotDropsTicks(t *testing.T) {
	source := &fakeSource{}

	var mu sync.Mutex
	var held func()
	handler := InfoHandlerFunc(func(ctx context.Context, info *model.SystemInfo, release func()) {
		mu.Lock()
		held = release
		mu.Unlock()
	})

	p := New(Config{Interval: 10 * time.Millisecond, Timeout: time.Second}, source, handler, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stop(t, p)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return held != nil && p.Stats().Dropped >= 3
	})
	if got := source.calls.Load(); got != 1 {
		t.Errorf("requests while slot held = %d, want 1", got)
	}

	mu.Lock()
	held()
	held()
	mu.Unlock()

	waitFor(t, func() bool { return source.calls.Load() >= 2 })
}

func TestPoller_Trigger(t *testing.T) {
	source := &fakeSource{}
	var called atomic.Int32
	handler := InfoHandlerFunc(func(ctx context.Context, info *model.SystemInfo, release func()) {
		called.Add(1)
		release()
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Second}, source, handler, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stop(t, p)

	waitFor(t, func() bool { return called.Load() == 1 })
	p.Trigger()
	waitFor(t, func() bool { return called.Load() == 2 })
}

func TestPoller_ErrorReleasesSlot(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	handler := InfoHandlerFunc(func(ctx context.Context, info *model.SystemInfo, release func()) {
		t.Error("handler called on failed poll")
		release()
	})

	p := New(Config{Interval: 10 * time.Millisecond, Timeout: time.Second}, source, handler, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stop(t, p)

	waitFor(t, func() bool { return p.Stats().Errors >= 2 })
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, &fakeSource{}, nil, nil)
	if p.cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", p.cfg.Interval)
	}
	if p.cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", p.cfg.Timeout)
	}
}
