// Package security provides security utilities for the authrelay library:
// per-identifier rate limiting, request ID generation/propagation, and
// audit event logging.
package security

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxEntries      = 10000
	defaultCleanupInterval = 5 * time.Minute
	defaultMaxIdleTime     = 30 * time.Minute
)

// limiterEntry tracks a token bucket and its last access time.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter provides per-identifier (typically per-IP) rate limiting using
// the token bucket algorithm. Idle entries are swept periodically, and when
// the entry cap is reached the longest-idle entry is evicted, so memory
// stays bounded regardless of how many distinct identifiers show up.
type RateLimiter struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	rate       int
	burst      int
	maxEntries int
	logger     *slog.Logger
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond sustained
// requests with the given burst per identifier. A background goroutine sweeps
// idle entries; call Stop when the limiter is no longer needed.
func NewRateLimiter(requestsPerSecond, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		entries:    make(map[string]*limiterEntry),
		rate:       requestsPerSecond,
		burst:      burst,
		maxEntries: defaultMaxEntries,
		logger:     logger,
		stop:       make(chan struct{}),
	}

	go rl.sweepLoop()

	return rl
}

// Allow reports whether a request from the given identifier is allowed.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[identifier]
	if !ok {
		if len(rl.entries) >= rl.maxEntries {
			rl.evictIdlest()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.rate), rl.burst)}
		rl.entries[identifier] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

// evictIdlest removes the entry that has been idle the longest.
// Must be called with the mutex held.
func (rl *RateLimiter) evictIdlest() {
	var oldestID string
	var oldest time.Time
	for id, entry := range rl.entries {
		if oldestID == "" || entry.lastAccess.Before(oldest) {
			oldestID = id
			oldest = entry.lastAccess
		}
	}
	if oldestID != "" {
		delete(rl.entries, oldestID)
		rl.logger.Debug("Rate limiter evicted idlest entry",
			"identifier", oldestID,
			"current_entries", len(rl.entries))
	}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Sweep(defaultMaxIdleTime)
		case <-rl.stop:
			return
		}
	}
}

// Sweep removes entries that have not been accessed within maxIdleTime.
func (rl *RateLimiter) Sweep(maxIdleTime time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, entry := range rl.entries {
		if now.Sub(entry.lastAccess) > maxIdleTime {
			delete(rl.entries, id)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Rate limiter sweep completed",
			"removed", removed,
			"remaining", len(rl.entries))
	}
}

// Len returns the number of identifiers currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Stop terminates the background sweep goroutine. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
