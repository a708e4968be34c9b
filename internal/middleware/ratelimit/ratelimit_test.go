package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestLimiter_Take(t *testing.T) {
	l := NewLimiter(Config{WritesPerMinute: 2})
	defer l.Stop()

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	if d := l.Take("a"); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("first write = %+v", d)
	}
	if d := l.Take("a"); !d.Allowed || d.Remaining != 0 {
		t.Fatalf("second write = %+v", d)
	}

	clock = clock.Add(20 * time.Second)
	d := l.Take("a")
	if d.Allowed {
		t.Fatal("third write within the window should be rejected")
	}
	if d.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d.RetryAfter)
	}
	if !l.Take("b").Allowed {
		t.Error("other clients have their own window")
	}

	clock = clock.Add(40 * time.Second)
	if !l.Take("a").Allowed {
		t.Error("a new window should reset the count")
	}
	if got := l.Clients(); got != 2 {
		t.Errorf("Clients() = %d, want 2", got)
	}

	clock = clock.Add(11 * time.Minute)
	l.sweep()
	if got := l.Clients(); got != 0 {
		t.Errorf("Clients() after sweep = %d, want 0", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l := NewLimiter(Config{WritesPerMinute: 1})
	defer l.Stop()

	h := l.Middleware(nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	tests := []struct {
		method        string
		want          int
		wantRemaining string
	}{
		{http.MethodPost, http.StatusNoContent, "0"},
		{http.MethodDelete, http.StatusTooManyRequests, ""},
		{http.MethodGet, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, "/api/expenses", nil)
		req.RemoteAddr = "10.0.0.7:51000"
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.method, rec.Code, tt.want)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != tt.wantRemaining {
			t.Errorf("%s: remaining = %q, want %q", tt.method, got, tt.wantRemaining)
		}
		if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
		}
	}
}

func TestLimiter_KeysOnPeerNotForwardedFor(t *testing.T) {
	l := NewLimiter(Config{WritesPerMinute: 1})
	defer l.Stop()

	var seen []string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.RemoteAddr)
		w.WriteHeader(http.StatusCreated)
	})
	h := CapturePeer(chimw.RealIP(l.Middleware(nil)(inner)))

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)
		req.RemoteAddr = "192.0.2.10:40000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	want := []int{http.StatusCreated, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", codes, want)
		}
	}
	if len(seen) != 1 {
		t.Errorf("handler ran %d times, want 1", len(seen))
	}
}

func TestPeerKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := PeerKey(req); got != tt.want {
			t.Errorf("PeerKey(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
