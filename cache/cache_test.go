package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"blog/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache().WithClock(clock.Now)

	require.NoError(t, mc.Set(ctx, "index_page:1", []byte("page"), 20*time.Second))

	value, ok, err := mc.Get(ctx, "index_page:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "page", string(value))

	clock.Advance(19 * time.Second)
	_, ok, _ = mc.Get(ctx, "index_page:1")
	assert.True(t, ok, "still fresh just before ttl")

	clock.Advance(time.Second)
	_, ok, _ = mc.Get(ctx, "index_page:1")
	assert.False(t, ok, "expired at ttl")
}

func TestMemoryCacheCopiesValue(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	value := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	stored, ok, _ := mc.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(stored))
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	for i := 0; i < 3; i++ {
		require.NoError(t, mc.Set(ctx, "k"+strconv.Itoa(i), []byte("v"), time.Minute))
	}
	require.NoError(t, mc.Delete(ctx, "k0"))
	_, ok, _ := mc.Get(ctx, "k0")
	assert.False(t, ok)

	require.NoError(t, mc.Clear(ctx))
	for i := 1; i < 3; i++ {
		_, ok, _ := mc.Get(ctx, "k"+strconv.Itoa(i))
		assert.False(t, ok)
	}

	require.NoError(t, mc.Set(ctx, "zero", []byte("v"), 0))
	_, ok, _ = mc.Get(ctx, "zero")
	assert.False(t, ok, "non-positive ttl is not stored")
}

func TestGetOrComputeHitAndMiss(t *testing.T) {
	ctx := context.Background()
	pc := NewPageCache("test", NewMemoryCache())

	var calls int
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("computed-" + strconv.Itoa(calls)), nil
	}

	first, err := pc.GetOrCompute(ctx, "index_page:1", time.Minute, compute)
	require.NoError(t, err)
	second, err := pc.GetOrCompute(ctx, "index_page:1", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, "computed-1", string(first))
	assert.Equal(t, "computed-1", string(second))
	assert.Equal(t, 1, calls)

	require.NoError(t, pc.Clear(ctx))
	third, err := pc.GetOrCompute(ctx, "index_page:1", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed-2", string(third))
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	ctx := context.Background()
	pc := NewPageCache("test", NewMemoryCache())
	boom := errors.New("boom")

	_, err := pc.GetOrCompute(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	value, err := pc.GetOrCompute(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(value))
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	pc := NewPageCache("test", NewMemoryCache())

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("page"), nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := pc.GetOrCompute(ctx, "index_page:1", time.Minute, compute)
			assert.NoError(t, err)
			results[i] = string(value)
		}(i)
	}
	// даем горутинам дойти до singleflight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "page", r)
	}
	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestMemoryCacheReclaimsUnreadExpiredKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache().WithClock(clock.Now).WithMaxEntries(100000)

	for i := 1; i <= 10000; i++ {
		require.NoError(t, mc.Set(ctx, "index_page:"+strconv.Itoa(i), []byte("page"), 20*time.Second))
	}
	assert.Equal(t, 10000, mc.Len())

	clock.Advance(time.Hour)
	require.NoError(t, mc.Set(ctx, "index_page:1", []byte("fresh"), 20*time.Second))
	assert.Equal(t, 1, mc.Len())

	value, ok, err := mc.Get(ctx, "index_page:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", string(value))
}

func TestMemoryCacheRespectsMaxEntries(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache().WithMaxEntries(10)

	for i := 0; i < 250; i++ {
		require.NoError(t, mc.Set(ctx, "index_page:"+strconv.Itoa(i), []byte("page"), time.Hour))
		assert.LessOrEqual(t, mc.Len(), 10)
	}
	_, ok, _ := mc.Get(ctx, "index_page:249")
	assert.True(t, ok, "the latest key survives culling")

	require.NoError(t, mc.Clear(ctx))
	assert.Equal(t, 0, mc.Len())
}

func TestGetOrComputeSurvivesLeaderCancel(t *testing.T) {
	pc := NewPageCache("test", NewMemoryCache())

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte("page"), nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := pc.GetOrCompute(leaderCtx, "index_page:1", time.Minute, compute)
		leaderErr <- err
	}()
	<-started

	type result struct {
		value []byte
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		value, err := pc.GetOrCompute(context.Background(), "index_page:1", time.Minute, compute)
		follower <- result{value, err}
	}()
	// даем второму запросу присоединиться к вычислению
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Equal(t, "page", string(res.value))
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not get the shared result")
	}
	assert.Equal(t, int32(1), calls.Load())

	value, err := pc.GetOrCompute(context.Background(), "index_page:1", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "page", string(value), "shared result is cached")
}

func TestNoopCacheNeverStores(t *testing.T) {
	ctx := context.Background()
	pc := NewPageCache("noop", NoopCache{})

	var calls int
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}
	for i := 0; i < 3; i++ {
		_, err := pc.GetOrCompute(ctx, "k", time.Minute, compute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

// Требует живой Redis: BLOG_TEST_REDIS_HOST=localhost go test ./cache
func TestRedisCache(t *testing.T) {
	host := os.Getenv("BLOG_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("BLOG_TEST_REDIS_HOST is not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Host: host, Port: 6379})
	require.NoError(t, err)
	defer client.Close()

	rc := NewRedisCache(client, "blog_test:")
	require.NoError(t, rc.Clear(ctx))

	_, ok, err := rc.Get(ctx, "index_page:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Set(ctx, "index_page:1", []byte("page"), time.Minute))
	value, ok, err := rc.Get(ctx, "index_page:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "page", string(value))

	ttl, err := client.TTL(ctx, "blog_test:index_page:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, rc.Clear(ctx))
	_, ok, err = rc.Get(ctx, "index_page:1")
	require.NoError(t, err)
	assert.False(t, ok)
}
