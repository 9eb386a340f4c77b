package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spends request weight against per-bucket budgets. Each bucket
// (one per exchange host, e.g. "spot/live") gets requests-per-period
// weight with a burst equal to the full budget.
type RateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	requests int
	period   time.Duration
	metrics  *Metrics
}

// Metrics tracks statistics about rate limiter usage.
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64
	spentWeight     atomic.Int64
	bucketCount     atomic.Int32
}

// New creates a RateLimiter that allows requests weight units per period in each bucket.
func New(requests int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*rate.Limiter),
		requests: requests,
		period:   period,
		metrics:  &Metrics{},
	}
}

// Wait blocks until bucket has weight units available or ctx is done.
// Weights above the bucket's burst are clamped to it.
func (r *RateLimiter) Wait(ctx context.Context, bucket string, weight int) error {
	r.metrics.totalRequests.Add(1)
	limiter := r.getBucket(bucket)
	n := r.clamp(limiter, weight)
	if err := limiter.WaitN(ctx, n); err != nil {
		r.metrics.deniedRequests.Add(1)
		return err
	}
	r.metrics.allowedRequests.Add(1)
	r.metrics.spentWeight.Add(int64(n))
	return nil
}

// Allow reports whether bucket can spend weight units immediately, spending them if so.
func (r *RateLimiter) Allow(bucket string, weight int) bool {
	r.metrics.totalRequests.Add(1)
	limiter := r.getBucket(bucket)
	n := r.clamp(limiter, weight)
	if !limiter.AllowN(time.Now(), n) {
		r.metrics.deniedRequests.Add(1)
		return false
	}
	r.metrics.allowedRequests.Add(1)
	r.metrics.spentWeight.Add(int64(n))
	return true
}

func (r *RateLimiter) clamp(limiter *rate.Limiter, weight int) int {
	if weight < 1 {
		return 1
	}
	if b := limiter.Burst(); weight > b {
		return b
	}
	return weight
}

func (r *RateLimiter) getBucket(bucket string) *rate.Limiter {
	r.mu.RLock()
	limiter, ok := r.buckets[bucket]
	r.mu.RUnlock()
	if ok {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter, ok = r.buckets[bucket]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(perSecond(r.requests, r.period), r.requests)
	r.buckets[bucket] = limiter
	r.metrics.bucketCount.Add(1)
	return limiter
}

// SetLimit updates the budget of every existing and future bucket.
func (r *RateLimiter) SetLimit(requests int, period time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = requests
	r.period = period
	for _, limiter := range r.buckets {
		limiter.SetLimit(perSecond(requests, period))
		limiter.SetBurst(requests)
	}
}

func perSecond(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (r *RateLimiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:   r.metrics.totalRequests.Load(),
		AllowedRequests: r.metrics.allowedRequests.Load(),
		DeniedRequests:  r.metrics.deniedRequests.Load(),
		SpentWeight:     r.metrics.spentWeight.Load(),
		BucketCount:     r.metrics.bucketCount.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of rate limiter statistics.
type MetricsSnapshot struct {
	// TotalRequests is the total number of rate limit checks performed.
	TotalRequests int64
	// AllowedRequests is the number of requests that were allowed.
	AllowedRequests int64
	// DeniedRequests is the number of requests that were denied or cancelled while waiting.
	DeniedRequests int64
	// SpentWeight is the sum of weights of allowed requests.
	SpentWeight int64
	// BucketCount is the number of rate limit buckets in use.
	BucketCount int32
}
