package cache

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Defaults applied by New.
const (
	DefaultUnit         = time.Minute
	DefaultExpirySuffix = "__expiry"
)

// Stats counts cache outcomes since creation.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Expirations   uint64 `json:"expirations"`
	WriteFailures uint64 `json:"write_failures"`
}

// Cache is a bucketed view over a Storage with optional per-key expiry.
//
// All methods are safe for concurrent use.
type Cache struct {
	mu           sync.Mutex
	store        Storage
	codec        Codec
	bucket       string
	expirySuffix string
	unit         time.Duration
	now          func() time.Time
	stats        Stats
}

// Option customises a Cache.
type Option func(*Cache)

// WithCodec sets the value codec. The default is JSONCodec.
func WithCodec(c Codec) Option { return func(ca *Cache) { ca.codec = c } }

// WithUnit sets the TTL time unit. The default is one minute.
func WithUnit(d time.Duration) Option { return func(ca *Cache) { ca.unit = d } }

// WithExpirySuffix sets the suffix of the expiry marker slot.
func WithExpirySuffix(s string) Option { return func(ca *Cache) { ca.expirySuffix = s } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(ca *Cache) { ca.now = now } }

// New returns a Cache over store, scoped to bucket.
func New(store Storage, bucket string, opts ...Option) *Cache {
	c := &Cache{
		store:        store,
		codec:        JSONCodec{},
		bucket:       bucketPrefix(bucket),
		expirySuffix: DefaultExpirySuffix,
		unit:         DefaultUnit,
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func bucketPrefix(name string) string {
	if name == "" {
		return ""
	}
	return name + ":"
}

// SetBucket switches subsequent operations to the named bucket.
// Values stored under other buckets are untouched.
func (c *Cache) SetBucket(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucket = bucketPrefix(name)
}

// ClearBucket switches to the unprefixed namespace.
func (c *Cache) ClearBucket() {
	c.SetBucket("")
}

// SetExpiryUnit changes the TTL unit for subsequent SetTTL calls.
func (c *Cache) SetExpiryUnit(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit = d
}

// Set stores value under key with no expiry.
// It returns false if the value could not be encoded or stored.
func (c *Cache) Set(key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.bucket + key
	if !c.write(full, value) {
		return false
	}
	if err := c.store.RemoveItem(full + c.expirySuffix); err != nil {
		slog.Warn("cache: clear stale expiry failed", "key", full, "err", err)
	}
	return true
}

// SetTTL stores value under key, expiring units*unit from now.
// It returns false if the value could not be encoded or stored.
func (c *Cache) SetTTL(key string, value any, units int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.bucket + key
	if !c.write(full, value) {
		return false
	}
	expiry := c.now().Add(time.Duration(units) * c.unit).UnixMilli()
	if err := c.store.SetItem(full+c.expirySuffix, strconv.FormatInt(expiry, 10)); err != nil {
		slog.Warn("cache: set expiry failed", "key", full, "err", err)
		c.stats.WriteFailures++
		// A value without its marker would outlive its TTL.
		c.removeLocked(full)
		return false
	}
	return true
}

func (c *Cache) write(full string, value any) bool {
	encoded, err := c.codec.Encode(value)
	if err != nil {
		slog.Warn("cache: encode failed", "key", full, "err", err)
		c.stats.WriteFailures++
		return false
	}
	if err := c.store.SetItem(full, encoded); err != nil {
		slog.Warn("cache: set failed", "key", full, "err", err)
		c.stats.WriteFailures++
		return false
	}
	return true
}

// Get decodes the value stored under key into out and reports whether it was
// found. Expired entries are removed and reported as not found.
func (c *Cache) Get(key string, out any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.bucket + key
	if c.expired(full) {
		c.removeLocked(full)
		c.stats.Expirations++
		c.stats.Misses++
		return false
	}

	raw, ok, err := c.store.GetItem(full)
	if err != nil {
		slog.Warn("cache: get failed", "key", full, "err", err)
		c.stats.Misses++
		return false
	}
	if !ok || raw == "" {
		c.stats.Misses++
		return false
	}
	if err := c.codec.Decode(raw, out); err != nil {
		slog.Warn("cache: decode failed", "key", full, "err", err)
		c.stats.Misses++
		return false
	}
	c.stats.Hits++
	return true
}

// expired reports whether full carries an expiry marker in the past.
// Unreadable markers count as absent.
func (c *Cache) expired(full string) bool {
	raw, ok, err := c.store.GetItem(full + c.expirySuffix)
	if err != nil {
		slog.Warn("cache: read expiry failed", "key", full, "err", err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("cache: bad expiry marker", "key", full, "value", raw)
		return false
	}
	return c.now().UnixMilli() > expiry
}

// Remove deletes the value and expiry marker for key. It is idempotent.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(c.bucket + key)
}

func (c *Cache) removeLocked(full string) {
	for _, k := range []string{full, full + c.expirySuffix} {
		if err := c.store.RemoveItem(k); err != nil {
			slog.Warn("cache: remove failed", "key", k, "err", err)
		}
	}
}

// Flush removes every stored key that starts with the current bucket prefix
// and returns how many were removed. With no bucket set it removes everything.
func (c *Cache) Flush() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.store.Len()
	if err != nil {
		slog.Warn("cache: flush failed", "bucket", c.bucket, "err", err)
		return 0
	}

	removed := 0
	// Walk backwards: removing key i shifts only the keys after it.
	for i := n - 1; i >= 0; i-- {
		k, ok, err := c.store.Key(i)
		if err != nil {
			slog.Warn("cache: flush read key failed", "index", i, "err", err)
			continue
		}
		if !ok || !strings.HasPrefix(k, c.bucket) {
			continue
		}
		if err := c.store.RemoveItem(k); err != nil {
			slog.Warn("cache: flush remove failed", "key", k, "err", err)
			continue
		}
		removed++
	}
	return removed
}

// Stats returns a copy of the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetAs is a typed convenience around Get.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var v T
	ok := c.Get(key, &v)
	return v, ok
}
