package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adcopysurge/backend/internal/metrics"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	redisCooldown    = 30 * time.Second
	redisPingTimeout = 2 * time.Second
)

var (
	errRedisCoolingDown = errors.New("rate limit redis: cooling down")
	errRedisNoAddr      = errors.New("rate limit redis: missing address")
)

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Manager counts per-user windows on Redis when enabled and reachable, and in
// memory otherwise. A Redis failure pauses Redis for redisCooldown.
type Manager struct {
	provider SettingsProvider
	nowFn    func() time.Time
	memory   Limiter
	redis    *redisBackend
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(provider SettingsProvider, nowFn func() time.Time, newRedisClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = DefaultSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newRedisClient == nil {
		newRedisClient = redis.NewClient
	}
	return &Manager{
		provider: provider,
		nowFn:    nowFn,
		memory:   NewMemoryLimiter(),
		redis:    &redisBackend{dial: newRedisClient},
	}
}

// Allow checks whether the request identified by key fits within limit per second.
func (m *Manager) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if m == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := m.nowFn()
	cfg := m.provider().Normalize()

	result, err := m.count(ctx, cfg, key, limit, now)
	if err == nil && !result.Allowed {
		metrics.RateLimited.Inc()
	}
	return result, err
}

func (m *Manager) count(ctx context.Context, cfg SettingsConfig, key string, limit int, now time.Time) (Result, error) {
	if !cfg.RedisEnabled {
		return m.memory.Allow(ctx, key, limit, now)
	}
	result, errRedis := m.redis.allow(ctx, cfg, key, limit, now)
	if errRedis == nil {
		return result, nil
	}
	if !errors.Is(errRedis, errRedisCoolingDown) {
		metrics.RateLimitFallbacks.Inc()
		log.WithError(errRedis).WithField("key", key).Warn("rate limit: redis unavailable, counting in memory")
	}
	return m.memory.Allow(ctx, key, limit, now)
}

// Close releases the Redis client, if one was opened.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.redis.close()
}

// redisEndpoint identifies the Redis a client was opened against.
type redisEndpoint struct {
	addr     string
	password string
	prefix   string
	db       int
}

func endpointOf(cfg SettingsConfig) redisEndpoint {
	return redisEndpoint{
		addr:     cfg.RedisAddr,
		password: cfg.RedisPassword,
		prefix:   cfg.RedisPrefix,
		db:       cfg.RedisDB,
	}
}

// redisBackend owns the shared Redis limiter and pauses it after a failure.
type redisBackend struct {
	dial RedisClientFactory

	mu         sync.Mutex
	limiter    *RedisLimiter
	endpoint   redisEndpoint
	pauseUntil time.Time
}

// allow counts key on Redis. It returns errRedisCoolingDown while paused and
// pauses on any connect or eval error.
func (b *redisBackend) allow(ctx context.Context, cfg SettingsConfig, key string, limit int, now time.Time) (Result, error) {
	if b.paused(now) {
		return Result{}, errRedisCoolingDown
	}
	limiter, err := b.connect(ctx, endpointOf(cfg))
	if err == nil {
		var result Result
		if result, err = limiter.Allow(ctx, key, limit, now); err == nil {
			return result, nil
		}
	}
	b.pause(now)
	return Result{}, err
}

func (b *redisBackend) paused(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.pauseUntil) {
		return true
	}
	b.pauseUntil = time.Time{}
	return false
}

func (b *redisBackend) pause(now time.Time) {
	b.mu.Lock()
	b.pauseUntil = now.Add(redisCooldown)
	b.mu.Unlock()
}

// connect returns the limiter for endpoint, replacing a client opened against
// a different endpoint.
func (b *redisBackend) connect(ctx context.Context, endpoint redisEndpoint) (*RedisLimiter, error) {
	if endpoint.addr == "" {
		return nil, errRedisNoAddr
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limiter != nil && b.endpoint == endpoint {
		return b.limiter, nil
	}
	if errClose := b.closeLocked(); errClose != nil {
		log.WithError(errClose).Debug("rate limit: close stale redis client failed")
	}

	client := b.dial(&redis.Options{
		Addr:     endpoint.addr,
		Password: endpoint.password,
		DB:       endpoint.db,
	})
	ctxPing, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(ctxPing).Err(); errPing != nil {
		_ = client.Close()
		return nil, errPing
	}
	b.limiter = NewRedisLimiter(client, endpoint.prefix)
	b.endpoint = endpoint
	return b.limiter, nil
}

func (b *redisBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *redisBackend) closeLocked() error {
	if b.limiter == nil {
		return nil
	}
	err := b.limiter.client.Close()
	b.limiter = nil
	b.endpoint = redisEndpoint{}
	return err
}
