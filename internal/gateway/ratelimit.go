package gateway

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxClients bounds the number of tracked client addresses before idle ones
// are swept.
const maxClients = 1024

// rateLimiter is a sliding window limiter keyed by client address.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	window  time.Duration
	limit   int
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string][]time.Time),
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
}

// allow records a request from key and reports whether it fits in the
// window. When it does not, retry is how long until the oldest request
// leaves the window.
func (rl *rateLimiter) allow(key string) (ok bool, retry time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if len(rl.clients) >= maxClients {
		rl.sweep(cutoff)
	}

	events := evict(rl.clients[key], cutoff)
	if len(events) >= rl.limit {
		rl.clients[key] = events
		return false, events[0].Sub(cutoff)
	}
	rl.clients[key] = append(events, now)
	return true, 0
}

// sweep drops clients with no requests inside the window.
func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, events := range rl.clients {
		if events = evict(events, cutoff); len(events) == 0 {
			delete(rl.clients, key)
		} else {
			rl.clients[key] = events
		}
	}
}

// evict removes events before cutoff. Events are chronological.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}

// rateLimitMiddleware answers 429 with a Retry-After header once a client
// exceeds its budget.
func rateLimitMiddleware(rl *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.allow(clientAddr(r))
			if !ok {
				secs := max(int(retry.Round(time.Second)/time.Second), 1)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr returns the host part of the request's remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
