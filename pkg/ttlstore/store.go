// Package ttlstore provides an ephemeral key→JSON store backed by Redis, with
// optional distributed locking. It backs Flow-1 temp payloads and the HTML
// cache; the event bus uses the redis client directly (§4.12).
package ttlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxPayloadWarnBytes logs a warning when a stored payload exceeds this size.
const MaxPayloadWarnBytes = 100 * 1024 * 1024

// MaxPayloadRejectBytes rejects a Set call outright above this size.
const MaxPayloadRejectBytes = 256 * 1024 * 1024

// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadRejectBytes.
var ErrPayloadTooLarge = errors.New("ttlstore: payload exceeds maximum size")

// ErrNotFound is returned when a key doesn't exist.
var ErrNotFound = errors.New("ttlstore: key not found")

// ErrLockHeld is returned when AcquireLock fails because another holder has it.
var ErrLockHeld = errors.New("ttlstore: lock already held")

// Store wraps a redis.Client with the get/set/delete/exists/extend/lock
// primitives used throughout the mining pipeline.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing redis.Client. The store is a process singleton,
// constructed once at startup and injected into the FlowOrchestrator (§9).
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Set stores value (JSON-marshaled) under key with the given TTL. Returns
// ErrPayloadTooLarge for payloads over MaxPayloadRejectBytes; the caller is
// expected to log a warning for payloads over MaxPayloadWarnBytes via
// PayloadSize.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ttlstore: marshal value: %w", err)
	}
	if len(data) > MaxPayloadRejectBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// Get retrieves and unmarshals the value stored at key into dest.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ttlstore: get %s: %w", key, err)
	}
	return json.Unmarshal(data, dest)
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExtendTTL resets key's expiry without touching its value.
func (s *Store) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("ttlstore: extend ttl %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AcquireLock takes a distributed lock using SET NX EX, returning ErrLockHeld
// if another holder already owns it. token should be unique per holder (e.g.
// a worker ID) so ReleaseLock never releases someone else's lock.
func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return fmt.Errorf("ttlstore: acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// releaseLockScript deletes key only if its value still matches the caller's
// token, so a lock whose TTL already expired and was re-acquired by someone
// else is never stolen back.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// ReleaseLock releases key if it is still held by token.
func (s *Store) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, s.rdb, []string{key}, token).Err()
}

// PayloadSize returns the JSON-marshaled size of value, for warn-threshold
// logging by callers before a large Set.
func PayloadSize(value any) (int, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
