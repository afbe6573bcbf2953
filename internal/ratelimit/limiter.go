// Package ratelimit spaces out requests to the same host.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests per host.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum interval between requests.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request to host may proceed now. When it returns
// true the host's clock is advanced.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.hosts[host]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait blocks until a request to host is permitted.
func (l *Limiter) Wait(host string) {
	for {
		l.mu.Lock()
		now := time.Now()
		last, ok := l.hosts[host]
		if !ok || now.Sub(last) >= l.minInterval {
			l.hosts[host] = now
			l.mu.Unlock()
			return
		}
		sleepFor := l.minInterval - now.Sub(last)
		l.mu.Unlock()
		time.Sleep(sleepFor)
	}
}
