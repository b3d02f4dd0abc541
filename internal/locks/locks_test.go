package locks

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		active int32
		peak   int32
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), AccountKey("a"))
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, peak)
	assert.Zero(t, l.held())
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	releaseA, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocalAcquireHonorsContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "a")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Zero(t, l.held())
}

func TestRedisLockIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skip integration test: TEST_REDIS_ADDR is not set")
	}
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip integration test: redis ping failed: %v", err)
	}

	locker := NewRedis(nil, client, time.Second)
	key := AccountKey(uuid.NewString())

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release2, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	release2()
}

func TestRedisLockOutlivesTTLWhileHeld(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skip integration test: TEST_REDIS_ADDR is not set")
	}
	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip integration test: redis ping failed: %v", err)
	}

	locker := NewRedis(nil, client, 300*time.Millisecond)
	key := AccountKey(uuid.NewString())

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	time.Sleep(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release()
	n, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKeepAlive(t *testing.T) {
	t.Run("extends until stopped", func(t *testing.T) {
		var calls atomic.Int32
		stop := make(chan struct{})
		done := make(chan bool)
		go func() {
			done <- keepAlive(stop, 5*time.Millisecond, func() (bool, error) {
				calls.Add(1)
				return true, nil
			}, func(error) {})
		}()
		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
		close(stop)
		assert.False(t, <-done)
	})
	t.Run("returns when lock is gone", func(t *testing.T) {
		stop := make(chan struct{})
		defer close(stop)
		lost := keepAlive(stop, 5*time.Millisecond, func() (bool, error) { return false, nil }, func(error) {})
		assert.True(t, lost)
	})
	t.Run("retries after error", func(t *testing.T) {
		var calls atomic.Int32
		var errs atomic.Int32
		stop := make(chan struct{})
		defer close(stop)
		lost := keepAlive(stop, 5*time.Millisecond, func() (bool, error) {
			if calls.Add(1) == 1 {
				return false, errors.New("connection reset")
			}
			return false, nil
		}, func(error) { errs.Add(1) })
		assert.True(t, lost)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, int32(1), errs.Load())
	})
}

func TestRefreshInterval(t *testing.T) {
	assert.Equal(t, 10*time.Second, refreshInterval(30*time.Second))
	assert.Equal(t, minRefreshInterval, refreshInterval(time.Millisecond))
}

func TestRedisWithoutClient(t *testing.T) {
	_, err := NewRedis(nil, nil, 0).Acquire(context.Background(), "k")
	assert.Error(t, err)
}
