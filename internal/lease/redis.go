package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/config"
)

const keyPrefix = "compintel:lease:"

// redisClient is the subset of *redis.Client the lease needs.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores leases as keys with a TTL, so they outlive any one process
// and are visible to every replica.
type Redis struct {
	client redisClient
	ttl    time.Duration
	closer func() error
}

// NewRedis wraps an existing client.
func NewRedis(client redisClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

// NewRedisFromConfig dials Redis and checks connectivity.
func NewRedisFromConfig(ctx context.Context, cfg config.LeaseConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "lease: ping redis at %s", cfg.RedisAddr)
	}
	r := NewRedis(client, cfg.TTL())
	r.closer = client.Close
	return r, nil
}

func key(jobID string) string { return keyPrefix + jobID }

// Acquire sets the lease key if absent.
func (r *Redis) Acquire(ctx context.Context, jobID string) error {
	ok, err := r.client.SetNX(ctx, key(jobID), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return eris.Wrapf(err, "lease: acquire %s", jobID)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Renew resets the key's TTL. A missing key means the lease already lapsed.
func (r *Redis) Renew(ctx context.Context, jobID string) error {
	ok, err := r.client.PExpire(ctx, key(jobID), r.ttl).Result()
	if err != nil {
		return eris.Wrapf(err, "lease: renew %s", jobID)
	}
	if !ok {
		return eris.Errorf("lease: %s expired before renewal", jobID)
	}
	return nil
}

// Release deletes the lease key.
func (r *Redis) Release(ctx context.Context, jobID string) error {
	if err := r.client.Del(ctx, key(jobID)).Err(); err != nil {
		return eris.Wrapf(err, "lease: release %s", jobID)
	}
	return nil
}

// Alive reports whether the lease key exists.
func (r *Redis) Alive(ctx context.Context, jobID string) (bool, error) {
	n, err := r.client.Exists(ctx, key(jobID)).Result()
	if err != nil {
		return false, eris.Wrapf(err, "lease: check %s", jobID)
	}
	return n > 0, nil
}

// Close closes the underlying client when this Redis owns it.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
