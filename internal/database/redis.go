package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the client and the connection retry policy.
type RedisOptions struct {
	Address        string
	Username       string
	Password       string
	DB             int
	ConnectTimeout time.Duration // total budget for connection attempts
	RetryInterval  time.Duration // first wait between attempts, doubled after each failure
	MaxWait        time.Duration // cap for the wait between attempts
	PingTimeout    time.Duration
	WarnThreshold  int // attempts logged at warn level before escalating to error
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 250 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 2 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}
	if o.WarnThreshold <= 0 {
		o.WarnThreshold = 3
	}
	return o
}

// OpenRedis creates a client and pings it with exponential backoff until ConnectTimeout elapses.
func OpenRedis(ctx context.Context, options RedisOptions, logger *zap.Logger) (*redis.Client, error) {
	if options.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	options = options.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Username: options.Username,
		Password: options.Password,
		DB:       options.DB,
	})

	if err := pingWithRetry(ctx, client, options, logger); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func pingWithRetry(ctx context.Context, client *redis.Client, options RedisOptions, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, options.ConnectTimeout)
	defer cancel()

	logger.Info("connecting to redis",
		zap.String("addr", options.Address),
		zap.Duration("timeout", options.ConnectTimeout))

	started := time.Now()
	wait := options.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, options.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			if attempt > 1 {
				logger.Warn("connected to redis after retry",
					zap.String("addr", options.Address),
					zap.Int("attempts", attempt),
					zap.Duration("elapsed", time.Since(started)))
			} else {
				logger.Info("connected to redis", zap.String("addr", options.Address))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Error("redis unavailable",
				zap.String("addr", options.Address),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", options.Address, attempt, err)
		case <-timer.C:
		}

		if attempt <= options.WarnThreshold {
			logger.Warn("redis connection failed, retrying",
				zap.String("addr", options.Address),
				zap.Int("attempt", attempt),
				zap.Duration("next_retry_in", wait),
				zap.Error(err))
		} else {
			logger.Error("redis still unavailable",
				zap.String("addr", options.Address),
				zap.Int("attempt", attempt),
				zap.Duration("next_retry_in", wait),
				zap.Error(err))
		}
		wait *= 2
		if wait > options.MaxWait {
			wait = options.MaxWait
		}
	}
}
