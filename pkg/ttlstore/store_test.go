package ttlstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb)
}

func TestSetGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		JobID string `json:"job_id"`
	}

	require.NoError(t, s.Set(ctx, "temp_results:job-1", payload{JobID: "job-1"}, time.Minute))

	var got payload
	require.NoError(t, s.Get(ctx, "temp_results:job-1", &got))
	assert.Equal(t, "job-1", got.JobID)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)
	var dest map[string]any
	err := s.Get(context.Background(), "missing", &dest)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRejectsOversizedPayload(t *testing.T) {
	s := newTestStore(t)
	huge := make([]byte, MaxPayloadRejectBytes+1)
	err := s.Set(context.Background(), "k", huge, time.Minute)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDeleteAndExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))

	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendTTLMissingKey(t *testing.T) {
	s := newTestStore(t)
	err := s.ExtendTTL(context.Background(), "nope", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLockAcquireReleaseAndContention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AcquireLock(ctx, "lock:job-1", "worker-a", time.Minute))

	err := s.AcquireLock(ctx, "lock:job-1", "worker-b", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// worker-b cannot release a lock it doesn't hold.
	require.NoError(t, s.ReleaseLock(ctx, "lock:job-1", "worker-b"))
	ok, err := s.Exists(ctx, "lock:job-1")
	require.NoError(t, err)
	assert.True(t, ok, "lock should remain held since worker-b's token didn't match")

	require.NoError(t, s.ReleaseLock(ctx, "lock:job-1", "worker-a"))
	ok, err = s.Exists(ctx, "lock:job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Lock is now free for another holder.
	require.NoError(t, s.AcquireLock(ctx, "lock:job-1", "worker-b", time.Minute))
}
