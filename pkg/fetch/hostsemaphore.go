package fetch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// HostLimiter caps simultaneous in-flight requests per host. The worker pool
// already bounds total concurrency; this pool keeps a crawl from pointing
// every worker at one origin at once.
type HostLimiter struct {
	sems  map[string]*semaphore.Weighted
	mu    sync.Mutex
	limit int64
	log   *logrus.Entry
}

// NewHostLimiter creates a pool with the given per-host concurrency limit.
func NewHostLimiter(maxPerHost int, log *logrus.Entry) *HostLimiter {
	limit := int64(maxPerHost)
	if limit <= 0 {
		limit = 1
		log.Warnf("max_per_host invalid, defaulting to %d", limit)
	}
	return &HostLimiter{
		sems:  make(map[string]*semaphore.Weighted),
		limit: limit,
		log:   log,
	}
}

// Acquire takes one permit for host, blocking until a permit is available or
// ctx is cancelled.
func (p *HostLimiter) Acquire(ctx context.Context, host string) error {
	p.mu.Lock()
	sem, exists := p.sems[host]
	if !exists {
		sem = semaphore.NewWeighted(p.limit)
		p.sems[host] = sem
		p.log.WithFields(logrus.Fields{"host": host, "limit": p.limit}).Debug("Created host semaphore")
	}
	p.mu.Unlock()

	return sem.Acquire(ctx, 1)
}

// Release returns one permit for host.
func (p *HostLimiter) Release(host string) {
	p.mu.Lock()
	sem, exists := p.sems[host]
	p.mu.Unlock()
	if !exists {
		p.log.Errorf("hostlimiter: Release called for unknown host: %s", host)
		return
	}
	sem.Release(1)
}
