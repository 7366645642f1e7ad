// Package cache memoizes rendered analysis reports. Entries are keyed by
// the document bytes, the requested list size and an analysis profile that
// fingerprints the dictionary content and scan options, so instances sharing
// the remote level only exchange reports they would have computed alike.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/resilience"
)

const keyPrefix = "report:"

// Remote is the shared store behind the in-process cache. *redis.Client
// satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	LocalItems int    `json:"local_items"`
	Remote     bool   `json:"remote"`
	Breaker    string `json:"breaker,omitempty"`
}

// ReportCache is a two-level cache: an in-process go-cache in front of an
// optional Remote. Remote calls go through a circuit breaker; while it is
// open the local level serves alone.
type ReportCache struct {
	local   *gocache.Cache
	remote  Remote
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// Option configures a ReportCache.
type Option func(*options)

type options struct {
	onBreaker func(resilience.State)
}

// WithBreakerObserver reports every state change of the Redis circuit
// breaker to fn.
func WithBreakerObserver(fn func(resilience.State)) Option {
	return func(o *options) { o.onBreaker = fn }
}

// New creates a ReportCache. remote may be nil.
func New(remote Remote, cfg config.RedisConfig, opts ...Option) *ReportCache {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &ReportCache{
		local:  gocache.New(ttl, 2*ttl),
		remote: remote,
		ttl:    ttl,
		logger: slog.Default().With("component", "report-cache"),
	}
	if remote != nil {
		bc := resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		}
		if o.onBreaker != nil {
			bc.OnStateChange = func(_ string, _, to resilience.State) { o.onBreaker(to) }
		}
		c.breaker = resilience.NewCircuitBreaker("redis", bc)
	}
	return c
}

// Digest identifies a document analyzed as format with topN list entries
// under profile. It doubles as the report id.
func Digest(content []byte, format string, topN int, profile string) string {
	h := sha256.New()
	h.Write(content)
	fmt.Fprintf(h, "\x00format=%s\x00top=%d\x00profile=%s", format, topN, profile)
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Key is the cache key of a Digest.
func Key(digest string) string {
	return keyPrefix + digest
}

// Get returns the cached value for key.
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		return v, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *ReportCache) get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.local.Get(key); ok {
		return v.([]byte), true
	}
	if c.remote == nil {
		return nil, false
	}
	var data []byte
	err := c.breaker.Execute(func() error {
		v, err := c.remote.Get(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return fmt.Errorf("%w: %w", resilience.ErrNotCounted, err)
			}
			return err
		}
		data = v
		return nil
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("remote cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	c.local.Set(key, data, gocache.DefaultExpiration)
	return data, true
}

// Set stores value under key in both levels. Remote failures are logged
// and otherwise ignored.
func (c *ReportCache) Set(ctx context.Context, key string, value []byte) {
	c.local.Set(key, value, gocache.DefaultExpiration)
	if c.remote == nil {
		return
	}
	err := c.breaker.Execute(func() error {
		return c.remote.Set(ctx, key, value, c.ttl)
	})
	if err != nil {
		c.logger.Warn("remote cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key or runs compute once for
// all concurrent callers of the same key. The bool reports a cache hit.
func (c *ReportCache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(ctx, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	c.local.Flush()
	if c.remote == nil {
		c.logger.Info("cache invalidate", "remote", false)
		return nil
	}
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.remote.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counters and the backend state.
func (c *ReportCache) Stats() Stats {
	s := Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		LocalItems: c.local.ItemCount(),
		Remote:     c.remote != nil,
	}
	if c.breaker != nil {
		s.Breaker = c.breaker.GetState().String()
	}
	return s
}
