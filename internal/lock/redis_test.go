package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, opts ...RedisOption) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+s.Addr(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, s
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "://nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestRedis_AcquireSetsLease(t *testing.T) {
	r, s := setupRedis(t, WithLease(10*time.Second))
	ctx := context.Background()

	release, err := r.Acquire(ctx, "hearing/H1")
	require.NoError(t, err)

	key := "progression:lock:hearing/H1"
	assert.True(t, s.Exists(key))
	assert.Equal(t, 10*time.Second, s.TTL(key))

	require.NoError(t, release(ctx))
	assert.False(t, s.Exists(key))
}

func TestRedis_ContendedKeyTimesOut(t *testing.T) {
	r, _ := setupRedis(t, WithRetry(5*time.Millisecond))
	ctx := context.Background()

	release, err := r.Acquire(ctx, "case/C1")
	require.NoError(t, err)
	defer func() { _ = release(ctx) }()

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(waitCtx, "case/C1")
	require.ErrorIs(t, err, ErrNotAcquired)
}

func TestRedis_AcquireAfterRelease(t *testing.T) {
	r, _ := setupRedis(t, WithRetry(5*time.Millisecond))
	ctx := context.Background()

	first, err := r.Acquire(ctx, "case/C1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		second, err := r.Acquire(ctx, "case/C1")
		if err == nil {
			err = second(ctx)
		}
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, first(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire never succeeded")
	}
}

func TestRedis_ReleaseKeepsForeignLease(t *testing.T) {
	r, s := setupRedis(t, WithLease(time.Second), WithPrefix("test:"))
	ctx := context.Background()

	release, err := r.Acquire(ctx, "k")
	require.NoError(t, err)

	// The lease lapses and another holder takes the key.
	s.FastForward(2 * time.Second)
	require.False(t, s.Exists("test:k"))
	require.NoError(t, s.Set("test:k", "someone-else"))

	require.NoError(t, release(ctx))
	got, err := s.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
