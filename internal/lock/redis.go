package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLease bounds how long a crashed holder can block a key.
	DefaultLease = 30 * time.Second
	// DefaultRetry is the pause between acquisition attempts.
	DefaultRetry = 50 * time.Millisecond
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared by every process pointing at the same server.
type Redis struct {
	client *redis.Client
	prefix string
	lease  time.Duration
	retry  time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithLease sets the lease duration.
func WithLease(d time.Duration) RedisOption {
	return func(r *Redis) { r.lease = d }
}

// WithRetry sets the wait between attempts.
func WithRetry(d time.Duration) RedisOption {
	return func(r *Redis) { r.retry = d }
}

// WithPrefix sets the key prefix.
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(ctx context.Context, redisURL string, opts ...RedisOption) (*Redis, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(o)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client, opts...), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "progression:lock:",
		lease:  DefaultLease,
		retry:  DefaultRetry,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Acquire retries SET NX until it succeeds or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	k := r.key(key)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-timer.C:
		}

		ok, err := r.client.SetNX(ctx, k, token, r.lease).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, err)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return r.release(k, token), nil
		}
		timer.Reset(r.retry)
	}
}

func (r *Redis) release(k, token string) Release {
	var (
		once sync.Once
		err  error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			if e := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); e != nil {
				err = fmt.Errorf("release lock %s: %w", k, e)
			}
		})
		return err
	}
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
