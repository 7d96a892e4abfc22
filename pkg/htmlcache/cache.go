// Package htmlcache provides a poisoning-resistant cache for fetched page
// bodies, keyed by URL hash with a structural signature guarding against
// tampered or blocked-page entries (§4.12).
package htmlcache

import (
	"context"
	"crypto/md5" //nolint:gosec // content-addressing, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/contactminer/engine/pkg/ttlstore"
)

// MaxBodyBytes rejects bodies larger than this on both store and retrieval.
const MaxBodyBytes = 2 * 1024 * 1024

// MinBodyBytes rejects bodies shorter than this as likely blocked/empty pages.
const MinBodyBytes = 500

// DefaultTTL is the cache entry lifetime when the caller doesn't override it.
const DefaultTTL = 1 * time.Hour

// blockIndicators is a curated substring list; any hit marks a body as a
// likely block/captcha page rather than real content.
var blockIndicators = []string{
	"access denied",
	"captcha",
	"cloudflare",
	"rate limit",
	"are you a human",
	"unusual traffic",
	"403 forbidden",
}

type entry struct {
	Body      string `json:"body"`
	Signature string `json:"signature"`
}

// Cache wraps a ttlstore.Store with HTML-specific validation.
type Cache struct {
	store *ttlstore.Store
}

// New constructs a Cache over an existing TTLStore.
func New(store *ttlstore.Store) *Cache {
	return &Cache{store: store}
}

// Key returns the cache key for a normalized URL: html_cache:{md5(lower(url))}.
func Key(normalizedURL string) string {
	sum := md5.Sum([]byte(strings.ToLower(normalizedURL))) //nolint:gosec
	return "html_cache:" + hex.EncodeToString(sum[:])
}

// signature fingerprints a body so a retrieved entry can be checked for
// tampering: md5(first 1KB + length + counts of structural markers).
func signature(body string) string {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	fingerprint := fmt.Sprintf("%s|%d|%d|%d|%d|%d",
		head,
		len(body),
		strings.Count(body, "<table"),
		strings.Count(body, "<div"),
		strings.Count(body, "<a"),
		strings.Count(body, "@"),
	)
	sum := md5.Sum([]byte(fingerprint)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// looksBlocked applies the same heuristics used by the Scout page analyzer's
// blocked-content detection: too short, missing structural markers, or a
// curated block-indicator substring.
func looksBlocked(body string) bool {
	if len(body) < MinBodyBytes {
		return true
	}
	if len(body) > MaxBodyBytes {
		return true
	}
	lower := strings.ToLower(body)
	hasStructure := strings.Contains(lower, "<table") ||
		strings.Contains(lower, "<div") ||
		strings.Contains(lower, "<a ") ||
		strings.Contains(lower, "<a>")
	if !hasStructure {
		return true
	}
	for _, indicator := range blockIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// Store caches body under normalizedURL's key, rejecting blocked-looking or
// oversized content outright.
func (c *Cache) Store(ctx context.Context, normalizedURL, body string) error {
	if looksBlocked(body) {
		return fmt.Errorf("htmlcache: refusing to cache blocked-looking body for %s", normalizedURL)
	}

	e := entry{Body: body, Signature: signature(body)}
	return c.store.Set(ctx, Key(normalizedURL), e, DefaultTTL)
}

// Get retrieves a cached body, returning ok=false on a cache miss or a
// detected poisoning attempt (stale signature, now-blocked content) — in the
// latter case the entry is deleted so future lookups don't repeat the check.
func (c *Cache) Get(ctx context.Context, normalizedURL string) (body string, ok bool, err error) {
	key := Key(normalizedURL)

	var e entry
	getErr := c.store.Get(ctx, key, &e)
	if getErr == ttlstore.ErrNotFound {
		return "", false, nil
	}
	if getErr != nil {
		return "", false, getErr
	}

	if looksBlocked(e.Body) || signature(e.Body) != e.Signature {
		_ = c.store.Delete(ctx, key)
		return "", false, nil
	}

	return e.Body, true, nil
}
