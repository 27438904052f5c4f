// Package ratelimit throttles AI and research endpoints per client. Each
// client gets a token bucket; buckets live in a bounded LRU so an open
// endpoint cannot grow memory without limit.
package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Config holds limiter settings.
type Config struct {
	RequestsPerMinute int // sustained rate per client
	Burst             int // burst allowance per client
	MaxClients        int // bound on tracked clients; oldest are evicted
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 20, Burst: 5, MaxClients: 10_000}
}

// Limiter is a per-client token-bucket rate limiter.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
}

// New creates a limiter. Invalid config fields fall back to defaults.
func New(cfg Config) (*Limiter, error) {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}

	clients, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	return &Limiter{cfg: cfg, clients: clients}, nil
}

// Allow reports whether the client may proceed, consuming a token if so.
// When denied it also returns a suggested wait before retrying.
func (l *Limiter) Allow(clientID string) (bool, time.Duration) {
	bucket := l.bucket(clientID)
	if bucket.Allow() {
		return true, 0
	}

	// Reserve without consuming to learn the wait, then cancel.
	res := bucket.Reserve()
	delay := res.Delay()
	res.Cancel()
	if delay <= 0 {
		delay = time.Second
	}
	return false, delay
}

func (l *Limiter) bucket(clientID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bucket, ok := l.clients.Get(clientID); ok {
		return bucket
	}
	bucket := rate.NewLimiter(rate.Limit(float64(l.cfg.RequestsPerMinute)/60.0), l.cfg.Burst)
	l.clients.Add(clientID, bucket)
	return bucket
}

// Tracked returns the number of clients currently held; used by tests and
// the health endpoint.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clients.Len()
}
