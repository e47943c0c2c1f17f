package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per email inside a sliding lockout window.
type LoginThrottle interface {
	Failures(ctx context.Context, email string) (int, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type redisThrottle struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisThrottle keeps one counter per email that expires after window.
func NewRedisThrottle(client *redis.Client, prefix string, window time.Duration) LoginThrottle {
	return &redisThrottle{client: client, prefix: prefix + "login_failures:", window: window}
}

func (t *redisThrottle) key(email string) string {
	return t.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (t *redisThrottle) Failures(ctx context.Context, email string) (int, error) {
	n, err := t.client.Get(ctx, t.key(email)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (t *redisThrottle) RecordFailure(ctx context.Context, email string) error {
	key := t.key(email)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *redisThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, t.key(email)).Err()
}

// MemoryThrottle is a process-local LoginThrottle.
type MemoryThrottle struct {
	mu       sync.Mutex
	window   time.Duration
	now      func() time.Time
	failures map[string][]time.Time
}

// NewMemoryThrottle returns a throttle counting failures within window.
func NewMemoryThrottle(window time.Duration, now func() time.Time) *MemoryThrottle {
	if now == nil {
		now = time.Now
	}
	return &MemoryThrottle{window: window, now: now, failures: map[string][]time.Time{}}
}

func (m *MemoryThrottle) recent(key string) []time.Time {
	cutoff := m.now().Add(-m.window)
	kept := m.failures[key][:0]
	for _, at := range m.failures[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.failures[key] = kept
	return kept
}

func (m *MemoryThrottle) Failures(_ context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recent(strings.ToLower(email))), nil
}

func (m *MemoryThrottle) RecordFailure(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	m.failures[key] = append(m.recent(key), m.now())
	return nil
}

func (m *MemoryThrottle) Reset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, strings.ToLower(email))
	return nil
}
