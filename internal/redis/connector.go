// Package redis dials the shared redis client used by the backend
// repository and the client's redis local store, waiting for the server to
// come up.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Options configures the client and the startup wait.
type Options struct {
	Addr     string
	User     string
	Password string
	DB       int
	PoolSize int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ConnectTimeout bounds the whole startup wait.
	ConnectTimeout time.Duration
	// RetryInterval is the first pause between pings; it doubles up to MaxWait.
	RetryInterval time.Duration
	MaxWait       time.Duration
	PingTimeout   time.Duration
	// WarnThreshold is the number of failed pings logged as warnings before
	// switching to errors.
	WarnThreshold int
}

// OptionsFrom maps the environment settings onto Options.
func OptionsFrom(c config.Redis) Options {
	return Options{
		Addr:           c.Addr,
		User:           c.User,
		Password:       c.Password,
		DB:             c.DB,
		PoolSize:       c.PoolSize,
		DialTimeout:    c.DialTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		ConnectTimeout: c.ConnectTimeout,
		RetryInterval:  c.RetryInterval,
		MaxWait:        c.MaxWait,
		PingTimeout:    c.PingTimeout,
		WarnThreshold:  c.WarnThreshold,
	}
}

func (o Options) validate() error {
	switch {
	case o.Addr == "":
		return fmt.Errorf("redis: address is required")
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("redis: ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("redis: RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("redis: MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("redis: PingTimeout must be > 0, got %v", o.PingTimeout)
	case o.WarnThreshold < 0:
		return fmt.Errorf("redis: WarnThreshold must be >= 0, got %d", o.WarnThreshold)
	}
	return nil
}

// nextWait doubles w, capped at max.
func nextWait(w, max time.Duration) time.Duration {
	w *= 2
	if w > max {
		return max
	}
	return w
}

// Connect builds a client and pings it until it answers, ctx is cancelled
// or ConnectTimeout elapses.
func Connect(ctx context.Context, opts Options, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("redis")

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting", logger.String("addr", opts.Addr), logger.Duration("timeout", opts.ConnectTimeout))
	start := time.Now()
	wait := opts.RetryInterval

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected after retry",
					logger.String("addr", opts.Addr),
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected", logger.String("addr", opts.Addr))
			}
			return client, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = client.Close()
			log.Error("unavailable", logger.String("addr", opts.Addr), logger.Int("attempts", attempt), logger.Error(err))
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
		}

		fields := []logger.Field{
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("ping failed, retrying", fields...)
		} else {
			log.Error("still unavailable, retrying", fields...)
		}
		wait = nextWait(wait, opts.MaxWait)
	}
}
