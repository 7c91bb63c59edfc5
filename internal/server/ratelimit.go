package server

import (
	"net/http"
	"sync"
	"time"
)

// rateLimit is a fixed-window per-IP limiter: at most max requests per
// window, keyed by the RealIP-resolved remote address. Exceeding the window
// gets a 429 with no queuing. A zero or negative max disables limiting.
func rateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}
	l := &limiter{
		max:     max,
		window:  window,
		clients: make(map[string]*clientWindow),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 && !l.allow(r.RemoteAddr, time.Now()) {
				writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientWindow struct {
	start time.Time
	count int
}

type limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clients map[string]*clientWindow
}

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cw, ok := l.clients[key]
	if !ok || now.Sub(cw.start) >= l.window {
		l.clients[key] = &clientWindow{start: now, count: 1}
		l.prune(now)
		return true
	}
	if cw.count >= l.max {
		return false
	}
	cw.count++
	return true
}

// prune drops windows that ended long ago so the map does not grow with the
// client population forever. Called with the lock held, on window rollover
// only, so the cost stays off the hot path.
func (l *limiter) prune(now time.Time) {
	for key, cw := range l.clients {
		if now.Sub(cw.start) >= 2*l.window {
			delete(l.clients, key)
		}
	}
}
