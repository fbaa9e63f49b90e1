package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("http://bitaxe.local")

		if c.baseURL != "http://bitaxe.local" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "http://bitaxe.local")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.maxRetries != 2 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 2)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
		if c.latency == nil {
			t.Error("latency recorder should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("http://bitaxe.local",
			WithTimeout(15*time.Second),
			WithRetries(10, 250*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 250*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 250*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 3 * time.Second}
		c := NewClient("http://bitaxe.local", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "device api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{404, false},
		{499, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", body)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error = %v, want max retries exceeded", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(5, time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.doWithRetry(ctx, http.MethodGet, "/test", nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestGetInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/system/info" {
			t.Errorf("path = %q, want /api/system/info", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hostname": "bitaxe",
			"hashRate_10m": 512.5,
			"hashRate_1h": 498.1,
			"hashRate_1d": 480,
			"hashRateTimestamp": 1700000000123,
			"power": 14.87,
			"voltage": 5123,
			"frequency": 525,
			"smallCoreCount": 894,
			"asicCount": 1,
			"stratumURL": "public-pool.io",
			"stratumUser": "bc1qaddr.worker"
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	info, err := c.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}

	if info.HashRate10m != 512.5 {
		t.Errorf("HashRate10m = %v, want 512.5", info.HashRate10m)
	}
	if info.HashRateTimestamp != 1700000000123 {
		t.Errorf("HashRateTimestamp = %d, want 1700000000123", info.HashRateTimestamp)
	}
	if info.SmallCoreCount != 894 {
		t.Errorf("SmallCoreCount = %d, want 894", info.SmallCoreCount)
	}
	if info.StratumUser != "bc1qaddr.worker" {
		t.Errorf("StratumUser = %q", info.StratumUser)
	}

	if stats := c.LatencyStats(); stats.Count != 1 {
		t.Errorf("LatencyStats().Count = %d, want 1", stats.Count)
	}
}

func TestGetInfo_NoRetry(t *testing.T) {
	var infoCalls, historyCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/system/info":
			atomic.AddInt32(&infoCalls, 1)
		case "/api/history":
			atomic.AddInt32(&historyCalls, 1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(2, time.Millisecond))

	_, err := c.GetInfo(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GetInfo error = %v, want APIError 503", err)
	}
	if infoCalls != 1 {
		t.Errorf("info attempts = %d, want 1", infoCalls)
	}

	if _, err := c.GetHistory(context.Background(), 1); err == nil {
		t.Error("GetHistory succeeded, want error")
	}
	if historyCalls != 3 {
		t.Errorf("history attempts = %d, want 3", historyCalls)
	}
}

func TestGetHistory(t *testing.T) {
	t.Run("compressed revision", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/history" {
				t.Errorf("path = %q, want /api/history", r.URL.Path)
			}
			if got := r.URL.Query().Get("start_timestamp"); got != "1700000000001" {
				t.Errorf("start_timestamp = %q, want 1700000000001", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"timestampBase": 1700000000000,
				"timestamps":    []int64{1, 5001},
				"hashrate_10m":  []float64{500, 510},
				"hashrate_1h":   []float64{490, 495},
				"hashrate_1d":   []float64{480, 481},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL)
		p, err := c.GetHistory(context.Background(), 1700000000001)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if p.TimestampBase == nil || *p.TimestampBase != 1700000000000 {
			t.Errorf("TimestampBase = %v, want 1700000000000", p.TimestampBase)
		}
		if len(p.Timestamps) != 2 || p.Hashrate10m[1] != 510 {
			t.Errorf("payload = %+v", p)
		}
	})

	t.Run("absolute revision", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"timestamps":[1700000000000000],"hashrate_10m":[5],"hashrate_1h":[5],"hashrate_1d":[5]}`))
		}))
		defer server.Close()

		p, err := NewClient(server.URL).GetHistory(context.Background(), 1)
		if err != nil {
			t.Fatalf("GetHistory failed: %v", err)
		}
		if p.TimestampBase != nil {
			t.Errorf("TimestampBase = %v, want nil", *p.TimestampBase)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(0, time.Millisecond))
		_, err := c.GetHistory(context.Background(), 1)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError in chain", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
		}
	})
}

func TestGetHistoryRangeEnd(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"lastTimestamp": 1700000009000}`))
		}))
		defer server.Close()

		end, err := NewClient(server.URL).GetHistoryRangeEnd(context.Background())
		if err != nil {
			t.Fatalf("GetHistoryRangeEnd failed: %v", err)
		}
		if end != 1700000009000 {
			t.Errorf("end = %d, want 1700000009000", end)
		}
	})

	t.Run("unsupported firmware", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewClient(server.URL).GetHistoryRangeEnd(context.Background())
		if !errors.Is(err, ErrRangeEndUnsupported) {
			t.Errorf("error = %v, want ErrRangeEndUnsupported", err)
		}
	})
}

func TestLatencyRecorder(t *testing.T) {
	r := NewLatencyRecorder()
	if s := r.Stats(); s.Count != 0 {
		t.Errorf("Count = %d, want 0", s.Count)
	}

	for i := 1; i <= 100; i++ {
		r.Record(time.Duration(i) * time.Millisecond)
	}
	r.Record(0)
	r.Record(time.Hour)

	s := r.Stats()
	if s.Count != 102 {
		t.Errorf("Count = %d, want 102", s.Count)
	}
	if s.P50 < 45*time.Millisecond || s.P50 > 55*time.Millisecond {
		t.Errorf("P50 = %v, want about 50ms", s.P50)
	}
	if s.Max < 119*time.Second {
		t.Errorf("Max = %v, want clamped near 2m", s.Max)
	}
}
