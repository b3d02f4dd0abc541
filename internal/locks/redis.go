package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	minRefreshInterval  = 10 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared by every orchestrator replica. Each lock expires
// after ttl so a crashed holder cannot block the account forever. While held,
// the lock is extended every ttl/3.
type Redis struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewRedisClient opens a client for the lock store.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedis creates a Redis Locker.
func NewRedis(log *slog.Logger, client *redis.Client, ttl time.Duration) *Redis {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client:       client,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		logger:       log.With(slog.String("service", "locks")),
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	if r.client == nil {
		return nil, errors.New("redis lock client not configured")
	}
	token := uuid.NewString()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		lost := keepAlive(stop, refreshInterval(r.ttl), func() (bool, error) {
			refreshCtx, cancel := context.WithTimeout(context.Background(), refreshInterval(r.ttl))
			defer cancel()
			n, err := refreshScript.Run(refreshCtx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int64()
			return n == 1, err
		}, func(err error) {
			r.logger.Warn("extend lock failed", slog.String("key", key), slog.Any("error", err))
		})
		if lost {
			r.logger.Error("lock expired while held", slog.String("key", key))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
				r.logger.Warn("release lock failed", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}

func refreshInterval(ttl time.Duration) time.Duration {
	return max(ttl/3, minRefreshInterval)
}

// keepAlive calls extend every interval until stop is closed or extend reports
// that the lock is no longer held, in which case it returns true. Errors go to
// onError and the next tick tries again.
func keepAlive(stop <-chan struct{}, interval time.Duration, extend func() (bool, error), onError func(error)) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return false
		case <-ticker.C:
		}
		held, err := extend()
		if err != nil {
			onError(err)
			continue
		}
		if !held {
			return true
		}
	}
}
