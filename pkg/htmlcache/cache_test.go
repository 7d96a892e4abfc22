package htmlcache

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactminer/engine/pkg/ttlstore"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(ttlstore.New(rdb))
}

func validBody() string {
	return "<html><body><table></table>" + strings.Repeat("<div>x</div>", 50) + "<a href=\"/x\">link</a> contact@example.com</body></html>"
}

func TestStoreAndGetRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "https://Example.com/Page", validBody()))

	body, ok, err := c.Get(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, validBody(), body)
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)
	_, ok, err := c.Get(context.Background(), "https://never-cached.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRejectsTooShortBody(t *testing.T) {
	c := newTestCache(t)
	err := c.Store(context.Background(), "https://example.com", "<html>short</html>")
	assert.Error(t, err)
}

func TestStoreRejectsBlockIndicator(t *testing.T) {
	c := newTestCache(t)
	body := validBody() + " Access Denied - Cloudflare"
	err := c.Store(context.Background(), "https://example.com", body)
	assert.Error(t, err)
}

func TestGetDeletesPoisonedEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := Key("https://example.com")

	// Directly write a tampered entry bypassing Store's validation, to
	// simulate an entry that was valid at store time but is now detected
	// as blocked-looking at retrieval (e.g. signature mismatch).
	require.NoError(t, c.store.Set(ctx, key, entry{Body: validBody(), Signature: "tampered"}, DefaultTTL))

	_, ok, err := c.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := c.store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists, "poisoned entry should be deleted on detection")
}
