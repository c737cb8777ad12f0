// Package cache holds short-lived shared state: revoked tokens and cached
// catalog responses.
package cache

import (
	"context"
	"strconv"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

const (
	revokedPrefix  = "revoked:"
	catalogVersion = "catalog:version"
)

func RevokeToken(ctx context.Context, s Store, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.Set(ctx, revokedPrefix+jti, "1", ttl)
}

func IsRevoked(ctx context.Context, s Store, jti string) (bool, error) {
	_, ok, err := s.Get(ctx, revokedPrefix+jti)
	return ok, err
}

// CatalogKey namespaces a catalog query under the current catalog version.
func CatalogKey(ctx context.Context, s Store, query string) (string, error) {
	v, ok, err := s.Get(ctx, catalogVersion)
	if err != nil {
		return "", err
	}
	if !ok {
		v = "0"
	}
	return "catalog:v" + v + ":" + query, nil
}

// InvalidateCatalog makes every previously cached catalog key unreachable.
func InvalidateCatalog(ctx context.Context, s Store) error {
	_, err := s.Incr(ctx, catalogVersion)
	return err
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
