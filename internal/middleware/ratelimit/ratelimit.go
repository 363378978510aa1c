// Package ratelimit throttles write requests per client IP.
package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"planilla/internal/metrics"
)

// Limiter counts requests per client in fixed one-minute windows
type Limiter struct {
	mu                sync.Mutex
	clients           map[string]*clientInfo
	requestsPerMinute int
	idleAfter         time.Duration
	now               func() time.Time
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	// IdleAfter is how long a client is remembered after its last request.
	IdleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		IdleAfter:         10 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = def.IdleAfter
	}
	return &Limiter{
		clients:           make(map[string]*clientInfo),
		requestsPerMinute: config.RequestsPerMinute,
		idleAfter:         config.IdleAfter,
		now:               time.Now,
	}
}

// Allow records a request from clientIP and reports whether it is within the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.windowStart) >= time.Minute {
		rl.clients[clientIP] = &clientInfo{windowStart: now, requests: 1}
		return true
	}

	client.requests++
	return client.requests <= rl.requestsPerMinute
}

// Sweep forgets clients idle for longer than IdleAfter and returns how many were dropped.
func (rl *Limiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleAfter)
	removed := 0
	for ip, client := range rl.clients {
		if client.windowStart.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (rl *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware limits POST, PUT, PATCH and DELETE. Reads are never throttled.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isRead(r.Method) || rl.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", "60")
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

func isRead(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
