package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_New(t *testing.T) {
	limiter := New(10, time.Second)

	assert.NotNil(t, limiter)
	assert.Equal(t, int32(0), limiter.Metrics().BucketCount)
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter := New(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("spot/live", 1), "request %d should be allowed", i+1)
	}

	assert.False(t, limiter.Allow("spot/live", 1), "request 6 should be blocked")
}

func TestRateLimiter_AllowWeighted(t *testing.T) {
	limiter := New(10, time.Second)

	assert.True(t, limiter.Allow("futures/live", 5))
	assert.True(t, limiter.Allow("futures/live", 5))
	assert.False(t, limiter.Allow("futures/live", 1))
	assert.Equal(t, int64(10), limiter.Metrics().SpentWeight)
}

func TestRateLimiter_WeightClampedToBurst(t *testing.T) {
	limiter := New(5, time.Second)

	assert.NoError(t, limiter.Wait(context.Background(), "spot/live", 40))
	assert.Equal(t, int64(5), limiter.Metrics().SpentWeight)
}

func TestRateLimiter_NonPositiveWeightCountsAsOne(t *testing.T) {
	limiter := New(5, time.Second)

	assert.True(t, limiter.Allow("spot/live", 0))
	assert.Equal(t, int64(1), limiter.Metrics().SpentWeight)
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := New(5, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		err := limiter.Wait(context.Background(), "spot/live", 1)
		assert.NoError(t, err)
	}
}

func TestRateLimiter_Wait_ContextCancellation(t *testing.T) {
	limiter := New(1, time.Second)

	err := limiter.Wait(context.Background(), "spot/live", 1)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, "spot/live", 1)
	assert.Error(t, err)
	assert.Equal(t, int64(1), limiter.Metrics().DeniedRequests)
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	limiter := New(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("spot/live", 1), "spot request %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow("spot/live", 1), "spot request 6 should be blocked")

	assert.True(t, limiter.Allow("futures/live", 1), "futures request 1 should be allowed")
	assert.Equal(t, int32(2), limiter.Metrics().BucketCount)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := New(100, time.Second)

	var wg sync.WaitGroup
	results := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- limiter.Allow("spot/live", 1)
		}()
	}

	wg.Wait()
	close(results)

	allowed := 0
	for ok := range results {
		if ok {
			allowed++
		}
	}

	assert.LessOrEqual(t, allowed, 110)
	assert.GreaterOrEqual(t, allowed, 100)
	assert.Equal(t, int64(200), limiter.Metrics().TotalRequests)
}

func TestRateLimiter_SetLimit(t *testing.T) {
	limiter := New(2, time.Second)
	assert.True(t, limiter.Allow("spot/live", 2))
	assert.False(t, limiter.Allow("spot/live", 1))

	limiter.SetLimit(100, time.Second)
	assert.True(t, limiter.Allow("futures/live", 50))
}
