package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// URLCache is the small cache surface the signed URL decorator needs.
type URLCache interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CachedStore reuses signed URLs while at least half of their lifetime remains.
// Entries are stored as "<expires unix>|<url>" so a reused URL reports the
// expiry it was signed with.
type CachedStore struct {
	ObjectStore
	cache URLCache
	now   func() time.Time
}

func NewCachedStore(inner ObjectStore, cache URLCache) *CachedStore {
	return &CachedStore{ObjectStore: inner, cache: cache, now: time.Now}
}

func signedURLCachePrefix(key string) string {
	return "asset:signed:" + key + ":"
}

func encodeCachedURL(signed string, expiresAt time.Time) string {
	return strconv.FormatInt(expiresAt.Unix(), 10) + "|" + signed
}

func decodeCachedURL(raw string) (string, time.Time, bool) {
	expires, signed, ok := strings.Cut(raw, "|")
	if !ok || signed == "" {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return signed, time.Unix(unix, 0), true
}

func (c *CachedStore) SignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, time.Time, error) {
	ttl = normalizeTTL(ttl)
	cacheKey := fmt.Sprintf("%s%d:%s", signedURLCachePrefix(key), int64(ttl.Seconds()), downloadName)

	if raw, ok, err := c.cache.GetString(ctx, cacheKey); err == nil && ok {
		signed, expiresAt, valid := decodeCachedURL(raw)
		if valid && expiresAt.Sub(c.now()) >= ttl/2 {
			return signed, expiresAt, nil
		}
	}

	signed, expiresAt, err := c.ObjectStore.SignedURL(ctx, key, ttl, downloadName)
	if err != nil {
		return "", time.Time{}, err
	}
	if keep := expiresAt.Sub(c.now()) - ttl/2; keep > 0 {
		_ = c.cache.SetString(ctx, cacheKey, encodeCachedURL(signed, expiresAt), keep)
	}
	return signed, expiresAt, nil
}

func (c *CachedStore) Delete(ctx context.Context, key string) error {
	if err := c.ObjectStore.Delete(ctx, key); err != nil {
		return err
	}
	_ = c.cache.DeletePrefix(ctx, signedURLCachePrefix(key))
	return nil
}
