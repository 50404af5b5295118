package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// LoginLimiter throttles repeated failed logins, counted per submitted email
// and per client IP over an expiring window. Only failures are counted.
type LoginLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewLoginLimiter(client *redis.Client, cfg Config) *LoginLimiter {
	return &LoginLimiter{
		client: client,
		max:    cfg.LoginMaxAttempts,
		window: cfg.LoginAttemptWindow,
	}
}

// Allow reports whether another login attempt may proceed. Redis errors
// fail open.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) bool {
	if l == nil || l.client == nil {
		return true
	}
	for _, key := range loginAttemptKeys(email, ip) {
		count, err := l.client.Get(ctx, key).Int64()
		if err != nil {
			continue
		}
		if count >= int64(l.max) {
			return false
		}
	}
	return true
}

// RecordFailure increments the failure counters after a rejected login,
// starting the expiry window on the first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) {
	if l == nil || l.client == nil {
		return
	}
	for _, key := range loginAttemptKeys(email, ip) {
		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			continue
		}
		if count == 1 {
			l.client.Expire(ctx, key, l.window)
		}
	}
}

func loginAttemptKeys(email, ip string) []string {
	keys := []string{"login:fail:" + email}
	if ip != "" {
		keys = append(keys, "login:failip:"+ip)
	}
	return keys
}
