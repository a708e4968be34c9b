// Package ratelimit caps how many writes (creates, edits, deletes, exports
// and recurring runs) one client may issue per minute. Reads and streams are
// never limited.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const window = time.Minute

// Limiter keeps a fixed one-minute write window per client key.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*quota
	now     func() time.Time

	writesPerMinute int
	idleAfter       time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type quota struct {
	start  time.Time
	last   time.Time
	writes int
}

type Config struct {
	WritesPerMinute int
	// IdleAfter drops a client's window once it has been quiet this long.
	IdleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{WritesPerMinute: 60, IdleAfter: 10 * time.Minute}
}

// Decision is the outcome of one write attempt.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewLimiter starts a limiter whose idle windows are swept every IdleAfter/2.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.WritesPerMinute <= 0 {
		cfg.WritesPerMinute = def.WritesPerMinute
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	l := &Limiter{
		windows:         make(map[string]*quota),
		now:             time.Now,
		writesPerMinute: cfg.WritesPerMinute,
		idleAfter:       cfg.IdleAfter,
		stop:            make(chan struct{}),
	}
	go l.sweepLoop(cfg.IdleAfter / 2)
	return l
}

// Take spends one write from key's window.
func (l *Limiter) Take(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	q, ok := l.windows[key]
	if !ok || now.Sub(q.start) >= window {
		q = &quota{start: now}
		l.windows[key] = q
	}
	q.last = now
	q.writes++

	if q.writes > l.writesPerMinute {
		return Decision{RetryAfter: q.start.Add(window).Sub(now)}
	}
	return Decision{Allowed: true, Remaining: l.writesPerMinute - q.writes}
}

// Clients returns the number of client windows currently tracked.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleAfter)
	for key, q := range l.windows {
		if q.last.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// Middleware spends a write for every non-safe method. Rejected requests go
// to onLimit with Retry-After already set; a nil onLimit writes a plain 429.
func (l *Limiter) Middleware(onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			d := l.Take(PeerKey(r))
			if !d.Allowed {
				secs := int((d.RetryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "too many writes", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

type peerKey struct{}

// CapturePeer records the TCP peer address before any proxy-header
// middleware rewrites RemoteAddr. It must run first in the chain.
func CapturePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, hostOnly(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PeerKey returns the peer recorded by CapturePeer, or the host part of
// RemoteAddr when the request never passed through it. Forwarding headers
// are never consulted.
func PeerKey(r *http.Request) string {
	if peer, ok := r.Context().Value(peerKey{}).(string); ok {
		return peer
	}
	return hostOnly(r.RemoteAddr)
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
