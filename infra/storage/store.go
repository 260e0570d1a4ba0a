package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

const DefaultSignedURLTTL = time.Hour

var (
	// ErrKeyExists is returned when an upload would overwrite an existing object.
	ErrKeyExists = errors.New("object key already exists")
	// ErrInvalidKey is returned for keys that escape the store namespace.
	ErrInvalidKey = errors.New("invalid object key")
)

type UploadResult struct {
	Key      string
	Location string
	StoreID  string
}

// ObjectStore is the uniform contract over a blob backend. Implementations
// never overwrite an existing key and treat deletion of a missing key as success.
type ObjectStore interface {
	Upload(ctx context.Context, content io.Reader, size int64, ownerID, originalName, mimeType string) (*UploadResult, error)
	// SignedURL returns a time-limited retrieval URL and the instant it stops
	// working. A non-empty downloadName forces attachment semantics; an empty
	// one allows inline rendering.
	SignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, time.Time, error)
	MakePublic(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultSignedURLTTL
	}
	return ttl
}
