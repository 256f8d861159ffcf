package security

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Arch3nemy7/face-recognition-service/internal/config"
)

// RateLimiter applies per-client-IP token bucket rate limiting
type RateLimiter struct {
	config  *config.SecurityConfig
	buckets map[string]*clientBucket
	mu      sync.RWMutex
}

// clientBucket pairs a limiter with its last activity for cleanup.
// lastSeen is unix nanoseconds, accessed atomically: the bucket map is
// guarded by mu but activity updates happen under the read lock.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen int64
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		buckets: make(map[string]*clientBucket),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.RateLimit.Enabled {
		return true
	}

	return r.getBucket(clientIP).Allow()
}

// getBucket gets or creates a limiter for a client IP
func (r *RateLimiter) getBucket(clientIP string) *rate.Limiter {
	r.mu.RLock()
	bucket, exists := r.buckets[clientIP]
	r.mu.RUnlock()

	if exists {
		atomic.StoreInt64(&bucket.lastSeen, time.Now().UnixNano())
		return bucket.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := r.buckets[clientIP]; exists {
		atomic.StoreInt64(&bucket.lastSeen, time.Now().UnixNano())
		return bucket.limiter
	}

	bucket = &clientBucket{
		limiter:  rate.NewLimiter(rate.Limit(r.config.RateLimit.RequestsPerSec), r.config.RateLimit.Burst),
		lastSeen: time.Now().UnixNano(),
	}
	r.buckets[clientIP] = bucket
	return bucket.limiter
}

// CleanupOldBuckets removes idle buckets to prevent unbounded growth
func (r *RateLimiter) CleanupOldBuckets() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour).UnixNano()
	for ip, bucket := range r.buckets {
		if atomic.LoadInt64(&bucket.lastSeen) < cutoff {
			delete(r.buckets, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine to clean up idle buckets
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			r.CleanupOldBuckets()
		}
	}()
}
