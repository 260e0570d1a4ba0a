package storage

import (
	"context"

	"github.com/tnqbao/gau-asset-service/config"
)

// NewObjectStore picks the backend once at startup: AWS credentials and a
// bucket select S3, MinIO credentials select MinIO, otherwise local disk.
func NewObjectStore(ctx context.Context, cfg *config.EnvConfig) (ObjectStore, error) {
	switch {
	case cfg.HasS3Credentials():
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case cfg.HasMinioCredentials():
		store, err := NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := NewLocalStore(cfg.LocalStorage.Root, cfg.LocalStorage.BaseURL, cfg.LocalStorage.SigningKey)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
