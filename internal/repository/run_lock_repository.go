package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// ErrLockLost is returned by Extend when the lock is no longer held with the token.
var ErrLockLost = errors.New("run lock no longer held")

// RunLockRepository provides a cross-process lock. Redis is used when a
// client is configured; otherwise a Postgres session advisory lock is taken on
// a dedicated connection. With neither, every acquisition succeeds and only
// in-process guards apply.
type RunLockRepository struct {
	client *redis.Client
	db     *sqlx.DB

	mu    sync.Mutex
	conns map[string]*sqlx.Conn
}

// NewRunLockRepository constructs a RunLockRepository. Either argument may be nil.
func NewRunLockRepository(client *redis.Client, db *sqlx.DB) *RunLockRepository {
	return &RunLockRepository{client: client, db: db, conns: make(map[string]*sqlx.Conn)}
}

// Acquire tries to take key for ttl. The returned token must be passed to Release.
func (r *RunLockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	switch {
	case r.client != nil:
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis lock %s: %w", key, err)
		}
		return token, ok, nil
	case r.db != nil:
		return r.acquireAdvisory(ctx, key, token)
	default:
		return token, true, nil
	}
}

// acquireAdvisory holds the lock for as long as the connection stays open.
func (r *RunLockRepository) acquireAdvisory(ctx context.Context, key, token string) (string, bool, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return "", false, fmt.Errorf("advisory lock %s: %w", key, err)
	}
	var ok bool
	if err := conn.GetContext(ctx, &ok, "SELECT pg_try_advisory_lock(hashtext($1))", key); err != nil {
		_ = conn.Close()
		return "", false, fmt.Errorf("advisory lock %s: %w", key, err)
	}
	if !ok {
		_ = conn.Close()
		return "", false, nil
	}
	r.mu.Lock()
	r.conns[token] = conn
	r.mu.Unlock()
	return token, true, nil
}

// Extend pushes the expiry of key to ttl from now if it is still held with
// token. Advisory locks do not expire and only need their connection alive.
func (r *RunLockRepository) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	switch {
	case r.client != nil:
		n, err := extendLockScript.Run(ctx, r.client, []string{key}, token, ttl.Milliseconds()).Int64()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("redis extend %s: %w", key, err)
		}
		if n == 0 {
			return fmt.Errorf("redis extend %s: %w", key, ErrLockLost)
		}
		return nil
	case r.db != nil:
		r.mu.Lock()
		conn, ok := r.conns[token]
		r.mu.Unlock()
		if !ok {
			return fmt.Errorf("advisory extend %s: %w", key, ErrLockLost)
		}
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("advisory extend %s: %w", key, err)
		}
		return nil
	default:
		return nil
	}
}

// Release drops key if it is still held with token.
func (r *RunLockRepository) Release(ctx context.Context, key, token string) error {
	switch {
	case r.client != nil:
		if err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	case r.db != nil:
		r.mu.Lock()
		conn, ok := r.conns[token]
		delete(r.conns, token)
		r.mu.Unlock()
		if !ok {
			return nil
		}
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
			return fmt.Errorf("advisory unlock %s: %w", key, err)
		}
		return nil
	default:
		return nil
	}
}
