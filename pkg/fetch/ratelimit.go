package fetch

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter spaces out requests to the same host by a minimum delay.
// A zero delay disables it entirely.
type RateLimiter struct {
	lastRequest map[string]time.Time
	mu          sync.Mutex
	delay       time.Duration
	log         *logrus.Entry
}

// NewRateLimiter creates a RateLimiter with the given per-host delay.
func NewRateLimiter(delay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		lastRequest: make(map[string]time.Time),
		delay:       delay,
		log:         log,
	}
}

// Wait sleeps until at least the configured delay has passed since the last
// request to host.
func (rl *RateLimiter) Wait(host string) {
	if rl.delay <= 0 {
		return
	}

	rl.mu.Lock()
	last, seen := rl.lastRequest[host]
	rl.mu.Unlock() // unlock before potentially sleeping

	if !seen {
		return
	}
	if remaining := rl.delay - time.Since(last); remaining > 0 {
		rl.log.WithFields(logrus.Fields{"host": host, "sleep": remaining}).Debug("Applying per-host delay")
		time.Sleep(remaining)
	}
}

// Touch records the current time as the last request time for host.
// Call after each request attempt.
func (rl *RateLimiter) Touch(host string) {
	if rl.delay <= 0 {
		return
	}
	rl.mu.Lock()
	rl.lastRequest[host] = time.Now()
	rl.mu.Unlock()
}
