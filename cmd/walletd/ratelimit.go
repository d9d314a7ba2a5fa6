// ABOUTME: Per-client rate limiting using token bucket algorithm.
// ABOUTME: Keys limiters by client IP so one caller cannot hammer the record endpoints.

package main

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	Interval time.Duration // Time between allowed requests
	Burst    int           // Max burst size
}

// DefaultRateLimitConfig returns ~100 req/min with burst of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Interval: 600 * time.Millisecond,
		Burst:    10,
	}
}

// AuthRateLimitConfig returns the per-IP limits for the record endpoints.
// WALLETD_RATE_INTERVAL (a Go duration) and WALLETD_RATE_BURST override the
// defaults; unparsable values are ignored.
func AuthRateLimitConfig() RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	if v := strings.TrimSpace(os.Getenv("WALLETD_RATE_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Interval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("WALLETD_RATE_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Burst = n
		}
	}
	return cfg
}

// rateLimiterStore manages per-key rate limiters.
type rateLimiterStore struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func newRateLimiterStore(config RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

func (s *rateLimiterStore) get(key string) *rate.Limiter {
	s.mu.RLock()
	limiter, ok := s.limiters[key]
	s.mu.RUnlock()
	if ok {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if limiter, ok := s.limiters[key]; ok {
		return limiter
	}
	limit := rate.Inf
	if s.config.Interval > 0 {
		limit = rate.Every(s.config.Interval)
	}
	limiter = rate.NewLimiter(limit, s.config.Burst)
	s.limiters[key] = limiter
	return limiter
}

func (s *rateLimiterStore) setConfig(interval time.Duration, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = RateLimitConfig{Interval: interval, Burst: burst}
	// Clear existing limiters so they pick up new config
	s.limiters = make(map[string]*rate.Limiter)
}

// getClientIP returns the caller's address. Proxy headers are only honoured
// when WALLETD_TRUSTED_PROXY=1, otherwise any client could pick its own bucket.
func getClientIP(r *http.Request) string {
	if os.Getenv("WALLETD_TRUSTED_PROXY") == "1" {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			return xrip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
