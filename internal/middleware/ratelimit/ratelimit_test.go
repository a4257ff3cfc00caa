package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = c.now
	return rl, c
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.requestsPerMinute != 60 || rl.cleanupInterval != 5*time.Minute {
		t.Errorf("defaults = %d/%v", rl.requestsPerMinute, rl.cleanupInterval)
	}
	rl.Stop() // second Stop must not panic
}

func TestLimiter_Allow(t *testing.T) {
	rl, c := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("u1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("u1") {
		t.Error("fourth request in the window should be rejected")
	}
	if !rl.Allow("u2") {
		t.Error("another key has its own window")
	}

	c.t = c.t.Add(30 * time.Second)
	if rl.Allow("u1") {
		t.Error("rejected requests must not slide the window")
	}

	c.t = c.t.Add(31 * time.Second)
	if !rl.Allow("u1") {
		t.Error("a new window should allow requests again")
	}

	if m := rl.GetMetrics(); m.Rejected != 2 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v, want 2 rejected, 2 clients", m)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, c := newTestLimiter(t, 10)
	rl.Allow("old")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed %d entries, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string {
		return r.Header.Get("X-Key")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"first request", "k", http.StatusNoContent},
		{"over limit", "k", http.StatusTooManyRequests},
		{"empty key is not limited", "", http.StatusNoContent},
		{"empty key again", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Key", tt.key)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusTooManyRequests {
				if rec.Header().Get("Retry-After") != "60" {
					t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
				}
				if rec.Header().Get("Content-Type") != "application/json" {
					t.Error("limit response should be JSON")
				}
			}
		})
	}
}
