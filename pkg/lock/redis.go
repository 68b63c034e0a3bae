package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript hanya menghapus kunci bila token masih milik pemegang kunci.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript memperpanjang lease hanya bila token masih milik pemegang.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Redis adalah kunci terdistribusi SET NX PX dengan token per pemegang.
// Selama dipegang, lease diperpanjang setiap Renew; bila perpanjangan gagal,
// context dari LockGuarded dibatalkan dengan cause ErrLost.
type Redis struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	renew   time.Duration
	timeout time.Duration
	retry   time.Duration
	logger  zerolog.Logger
}

type RedisOptions struct {
	Prefix  string
	TTL     time.Duration
	Renew   time.Duration
	Timeout time.Duration
	Retry   time.Duration
}

func NewRedis(client redis.Cmdable, opts RedisOptions, logger zerolog.Logger) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "klinik:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Renew <= 0 || opts.Renew >= opts.TTL {
		opts.Renew = opts.TTL / 3
	}
	if opts.Retry <= 0 {
		opts.Retry = 50 * time.Millisecond
	}
	return &Redis{
		client:  client,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		renew:   opts.Renew,
		timeout: opts.Timeout,
		retry:   opts.Retry,
		logger:  logger,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	_, unlock, err := r.LockGuarded(ctx, key)
	return unlock, err
}

func (r *Redis) LockGuarded(ctx context.Context, key string) (context.Context, Unlock, error) {
	name := r.prefix + key
	token := uuid.NewString()
	if err := r.acquire(ctx, key, name, token); err != nil {
		return nil, nil, err
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.watch(held, cancel, name, token, stop, done)

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)
			r.release(name, token)
		})
	}, nil
}

func (r *Redis) acquire(ctx context.Context, key, name, token string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return fmt.Errorf("%w: %s: %v", ErrTimeout, key, err)
			}
			return fmt.Errorf("lock: redis setnx %s: %w", name, err)
		}
		if ok {
			return nil
		}

		t := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %s: %v", ErrTimeout, key, ctx.Err())
		case <-t.C:
		}
	}
}

// watch memperpanjang lease sampai stop ditutup. Error jaringan ditoleransi
// selama lease terakhir belum habis.
func (r *Redis) watch(ctx context.Context, lost context.CancelCauseFunc, name, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.renew)
	defer ticker.Stop()

	lastOK := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		extendCtx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := extendScript.Run(extendCtx, r.client, []string{name}, token, r.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err == nil && n == 1:
			lastOK = time.Now()
		case err == nil:
			r.logger.Error().Str("lock", name).Msg("redis lock lease taken over")
			lost(ErrLost)
			return
		case time.Since(lastOK) >= r.ttl:
			r.logger.Error().Err(err).Str("lock", name).Msg("redis lock lease expired")
			lost(ErrLost)
			return
		default:
			r.logger.Warn().Err(err).Str("lock", name).Msg("gagal memperpanjang redis lock")
		}
	}
}

func (r *Redis) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil {
		r.logger.Error().Err(err).Str("lock", name).Msg("gagal melepas redis lock")
	}
}
