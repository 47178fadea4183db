package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *clock) {
	t.Helper()
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	l.now = c.Now
	return l, c
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(t, &Config{
		Enabled: true,
		EndpointConfigs: []EndpointConfig{
			{Path: "/query", Method: "POST", Limit: 10, Window: 10 * time.Second, Burst: 3},
		},
	})

	allowed, info := l.Allow("10.0.0.1", "/query", "POST")
	require.True(t, allowed)
	assert.Equal(t, 10, info.Limit)
	assert.Equal(t, 2, info.Remaining)
	assert.Equal(t, c.Now().Add(time.Second), info.ResetTime)

	for range 2 {
		allowed, _ = l.Allow("10.0.0.1", "/query", "POST")
		require.True(t, allowed)
	}

	allowed, info = l.Allow("10.0.0.1", "/query", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Second, info.RetryAfter)

	c.Advance(time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/query", "POST")
	assert.True(t, allowed)
}

func TestLimiter_BucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/query", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})

	allowed, _ := l.Allow("a", "/query", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("a", "/query", "POST")
	assert.False(t, allowed, "second /query from a")

	allowed, _ = l.Allow("b", "/query", "POST")
	assert.True(t, allowed, "other client")
	allowed, info := l.Allow("a", "/subjects", "GET")
	assert.True(t, allowed, "other endpoint")
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_ListsAndDisabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		client  string
		allowed bool
	}{
		{
			name:    "whitelisted",
			cfg:     &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour, Whitelist: map[string]bool{"w": true}},
			client:  "w",
			allowed: true,
		},
		{
			name:    "blacklisted",
			cfg:     &Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute, Blacklist: map[string]bool{"b": true}},
			client:  "b",
			allowed: false,
		},
		{
			name:    "disabled",
			cfg:     &Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Hour},
			client:  "x",
			allowed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLimiter(t, tt.cfg)
			for range 3 {
				allowed, _ := l.Allow(tt.client, "/view", "POST")
				assert.Equal(t, tt.allowed, allowed)
			}
		})
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	for range 5 {
		allowed, info := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var granted atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/view", "POST"); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), granted.Load())
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	l.Allow("old", "/view", "POST")
	c.Advance(2 * time.Hour)
	l.Allow("new", "/view", "POST")

	removed := l.cleanupBuckets(c.Now().Add(-time.Hour))
	assert.Equal(t, 1, removed)
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "new:/view:POST")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	allowed, info := l.Allow("c", "/anything", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/query", Method: "POST", Limit: 30},
		{Path: "/sessions/", Method: "POST", Limit: 5},
	}
	tests := []struct {
		name   string
		path   string
		method string
		limit  int
		found  bool
	}{
		{"exact", "/query", "POST", 30, true},
		{"method mismatch", "/query", "GET", 0, false},
		{"prefix", "/sessions/abc", "POST", 5, true},
		{"health", "/health", "GET", 0, true},
		{"unknown", "/nope", "GET", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.limit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_QUERY_LIMIT", "3")
	t.Setenv("RATE_LIMIT_WHITELIST", "1.1.1.1, 2.2.2.2")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "soon")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"1.1.1.1": true, "2.2.2.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)

	q := MatchEndpoint("/query", "POST", cfg.EndpointConfigs)
	require.NotNil(t, q)
	assert.Equal(t, 3, q.Limit)
	assert.Equal(t, 3, q.Burst)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
