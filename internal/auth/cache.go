package auth

import (
	"sync"
	"sync/atomic"
	"time"
)

// tokenCache caches successful token verifications so the hot path skips
// the DB lookup and bcrypt compare. Stale-while-revalidate: an expired
// entry is still honored once while a single background refresh runs.
type tokenCache struct {
	store sync.Map // map[string]*cacheEntry, keyed by full token
	ttl   time.Duration
}

type cacheEntry struct {
	expiresAt  time.Time
	refreshing atomic.Bool
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{ttl: ttl}
}

// get reports whether the token was verified recently. needsRefresh is true
// for exactly one caller per stale entry.
func (c *tokenCache) get(token string) (hit, needsRefresh bool) {
	v, ok := c.store.Load(token)
	if !ok {
		return false, false
	}
	entry := v.(*cacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return true, false
	}
	return true, entry.refreshing.CompareAndSwap(false, true)
}

func (c *tokenCache) set(token string) {
	c.store.Store(token, &cacheEntry{expiresAt: time.Now().Add(c.ttl)})
}

func (c *tokenCache) delete(token string) {
	c.store.Delete(token)
}
