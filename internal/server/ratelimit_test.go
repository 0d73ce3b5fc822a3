package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClockedLimiter(rpm, rph, perDay int, data int64) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rpm, rph, perDay, data)
	rl.now = clock.Now
	return rl, clock
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(10, 100, 1000, 1024*1024)

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.requestsPerMinute)
	assert.Equal(t, 100, rl.requestsPerHour)
	assert.Equal(t, 1000, rl.maxRequestsPerDay)
	assert.Equal(t, int64(1024*1024), rl.maxDataPerDay)
	assert.NotNil(t, rl.userRequests)
	assert.Zero(t, rl.Clients())
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)

	for range 100 {
		require.NoError(t, rl.CheckRateLimit("client", 100))
	}
	usage := rl.GetUsage("client")
	assert.Equal(t, 100, usage.RequestsToday)
	assert.Equal(t, int64(10000), usage.DataToday)
}

func TestRateLimiter_RequestsPerMinute(t *testing.T) {
	rl, clock := newClockedLimiter(2, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("c", 0))
	clock.Advance(20 * time.Second)
	require.NoError(t, rl.CheckRateLimit("c", 0))

	clock.Advance(10 * time.Second)
	err := rl.CheckRateLimit("c", 0)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, 30*time.Second, rle.RetryAfter, "retry is measured from the window start")
}

func TestRateLimiter_SteadyTrafficStillRollsWindow(t *testing.T) {
	rl, clock := newClockedLimiter(3, 0, 0, 0)

	// One request every 25s never leaves a full minute between requests,
	// but the window must still roll over.
	for i := range 12 {
		require.NoError(t, rl.CheckRateLimit("c", 0), "request %d", i)
		clock.Advance(25 * time.Second)
	}
}

func TestRateLimiter_RequestsPerHour(t *testing.T) {
	rl, clock := newClockedLimiter(0, 3, 0, 0)

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("c", 0))
		clock.Advance(5 * time.Minute)
	}

	err := rl.CheckRateLimit("c", 0)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "hour", rle.Type)
	assert.Equal(t, 45*time.Minute, rle.RetryAfter)

	clock.Advance(45 * time.Minute)
	assert.NoError(t, rl.CheckRateLimit("c", 0))
}

func TestRateLimiter_MaxRequestsPerDay(t *testing.T) {
	rl, clock := newClockedLimiter(0, 0, 2, 0)

	require.NoError(t, rl.CheckRateLimit("c", 0))
	require.NoError(t, rl.CheckRateLimit("c", 0))

	err := rl.CheckRateLimit("c", 0)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "requests", qe.Type)
	assert.Equal(t, int64(2), qe.Limit)
	assert.Equal(t, int64(2), qe.Used)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), qe.Resets)

	clock.Advance(12 * time.Hour)
	assert.NoError(t, rl.CheckRateLimit("c", 0), "quota resets at midnight")
}

func TestRateLimiter_MaxDataPerDay(t *testing.T) {
	rl, _ := newClockedLimiter(0, 0, 0, 1000)

	require.NoError(t, rl.CheckRateLimit("c", 500))
	require.NoError(t, rl.CheckRateLimit("c", 400))

	err := rl.CheckRateLimit("c", 200)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "data", qe.Type)
	assert.Equal(t, int64(1000), qe.Limit)
	assert.Equal(t, int64(900), qe.Used)

	assert.NoError(t, rl.CheckRateLimit("c", 100), "a request that fits is still admitted")
}

func TestRateLimiter_RejectedRequestsAreNotCounted(t *testing.T) {
	rl, _ := newClockedLimiter(1, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("c", 10))
	for range 5 {
		require.Error(t, rl.CheckRateLimit("c", 10))
	}
	usage := rl.GetUsage("c")
	assert.Equal(t, 1, usage.RequestsThisMinute)
	assert.Equal(t, int64(10), usage.DataToday)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newClockedLimiter(1, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("b", 0))
	assert.Error(t, rl.CheckRateLimit("a", 0))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_GetUsage(t *testing.T) {
	rl, clock := newClockedLimiter(10, 100, 1000, 10000)

	assert.Equal(t, Usage{}, rl.GetUsage("c"))

	require.NoError(t, rl.CheckRateLimit("c", 500))
	require.NoError(t, rl.CheckRateLimit("c", 300))

	usage := rl.GetUsage("c")
	assert.Equal(t, 2, usage.RequestsThisMinute)
	assert.Equal(t, 2, usage.RequestsThisHour)
	assert.Equal(t, 2, usage.RequestsToday)
	assert.Equal(t, int64(800), usage.DataToday)
	assert.Equal(t, clock.Now(), usage.LastSeen)
}

func TestRateLimiter_Prune(t *testing.T) {
	rl, clock := newClockedLimiter(0, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("old", 0))
	clock.Advance(2 * time.Hour)
	require.NoError(t, rl.CheckRateLimit("new", 0))

	assert.Equal(t, 1, rl.Prune(time.Hour))
	assert.Equal(t, 1, rl.Clients())
	assert.Equal(t, 1, rl.GetUsage("new").RequestsToday)
	assert.Zero(t, rl.GetUsage("old").RequestsToday)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(0, 0, 500, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	rejected := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 60 {
				if err := rl.CheckRateLimit("shared", 1); err != nil {
					mu.Lock()
					rejected++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, rejected)
	assert.Equal(t, 500, rl.GetUsage("shared").RequestsToday)
}

func TestRateLimitErrors(t *testing.T) {
	rle := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 30 * time.Second}
	assert.Contains(t, rle.Error(), "rate limit exceeded for minute")
	assert.Contains(t, rle.Error(), "30s")

	resets := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	qe := &QuotaExceededError{Type: "data", Limit: 10, Used: 8, Resets: resets}
	assert.Contains(t, qe.Error(), "quota exceeded for data")
	assert.Contains(t, qe.Error(), "2024-01-02T00:00:00Z")

	var target *QuotaExceededError
	assert.False(t, errors.As(error(rle), &target))
}
