package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openquiz/quizgate/pkg/json"
)

const cacheKeyPrefix = "quizgate:profile:"

// RedisConfig holds Redis configuration for the profile cache.
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	TTL          time.Duration
}

// CachedLoader fronts another Loader with a Redis cache. Cache failures are
// logged and bypassed; only the inner loader's failures trigger the caller's
// fallback handling.
type CachedLoader struct {
	next Loader
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

// NewCachedLoader connects to Redis and wraps next with a read-through cache.
func NewCachedLoader(cfg RedisConfig, next Loader, log *zap.Logger) (*CachedLoader, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedLoader{
		next: next,
		rdb:  client,
		ttl:  ttl,
		log:  log.With(zap.String("module", "profile-cache")),
	}, nil
}

// Close closes the Redis connection.
func (c *CachedLoader) Close() error {
	return c.rdb.Close()
}

// Load returns cached profiles where available and consults the inner loader
// for the rest, preserving request order.
func (c *CachedLoader) Load(ctx context.Context, ids []string) ([]Profile, error) {
	out := make([]Profile, len(ids))
	missIdx := make([]int, 0, len(ids))
	missIDs := make([]string, 0, len(ids))

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKeyPrefix + id
	}
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("Profile cache read failed, falling through", zap.Error(err))
		cached = make([]interface{}, len(ids))
	}

	for i := range ids {
		raw, ok := cached[i].(string)
		if !ok {
			missIdx = append(missIdx, i)
			missIDs = append(missIDs, ids[i])
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.log.Warn("Corrupt cached profile, reloading", zap.String("participant_id", ids[i]), zap.Error(err))
			missIdx = append(missIdx, i)
			missIDs = append(missIDs, ids[i])
			continue
		}
		out[i] = p
	}

	if len(missIDs) == 0 {
		return out, nil
	}

	loaded, err := c.next.Load(ctx, missIDs)
	if err != nil {
		return nil, err
	}
	if len(loaded) != len(missIDs) {
		return loaded, nil // malformed; let the caller's fallback handle it
	}

	for j, i := range missIdx {
		out[i] = loaded[j]
		if loaded[j].ParticipantID == "" {
			continue // absent profile, nothing worth caching
		}
		data, err := json.Marshal(loaded[j])
		if err != nil {
			continue
		}
		if err := c.rdb.Set(ctx, keys[i], data, c.ttl).Err(); err != nil {
			c.log.Warn("Profile cache write failed", zap.String("participant_id", ids[i]), zap.Error(err))
		}
	}
	return out, nil
}
