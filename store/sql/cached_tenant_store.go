package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/schedulehq/go-connect/core"
)

const tenantCacheKeyPrefix = "go-connect::tenant::v1"

// CachedTenantStore fronts the hot authorization reads (by id and by api-key
// hash) with a cache; mutations write through and invalidate. Email lookups
// stay uncached, they only run on admin screens.
type CachedTenantStore struct {
	base  core.TenantStore
	cache repositorycache.CacheService
}

func NewCachedTenantStore(base core.TenantStore, cacheService repositorycache.CacheService) (*CachedTenantStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base tenant store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: tenant cache service is required")
	}
	return &CachedTenantStore{base: base, cache: cacheService}, nil
}

// TenantCacheKey returns the deterministic cache key contract:
// go-connect::tenant::v1::<kind>::<value> with the value URL-path escaped.
func TenantCacheKey(kind string, value string) string {
	return strings.Join([]string{
		tenantCacheKeyPrefix,
		strings.TrimSpace(strings.ToLower(kind)),
		url.PathEscape(strings.TrimSpace(value)),
	}, "::")
}

func (s *CachedTenantStore) GetByID(ctx context.Context, id string) (core.Tenant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, TenantCacheKey("id", id), func(ctx context.Context) (core.Tenant, error) {
		return s.base.GetByID(ctx, id)
	})
}

func (s *CachedTenantStore) GetByEmail(ctx context.Context, email string) (core.Tenant, error) {
	if s == nil || s.base == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	return s.base.GetByEmail(ctx, email)
}

func (s *CachedTenantStore) GetByAPIKeyHash(ctx context.Context, hash string) (core.Tenant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, TenantCacheKey("key_hash", hash), func(ctx context.Context) (core.Tenant, error) {
		return s.base.GetByAPIKeyHash(ctx, hash)
	})
}

func (s *CachedTenantStore) Update(ctx context.Context, id string, update core.TenantUpdate) (core.Tenant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	updated, err := s.base.Update(ctx, id, update)
	if err != nil {
		return core.Tenant{}, err
	}
	if err := s.invalidate(ctx, updated); err != nil {
		return core.Tenant{}, err
	}
	return updated, nil
}

func (s *CachedTenantStore) SetAPIKey(ctx context.Context, id string, hash string, createdAt time.Time) (core.Tenant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	updated, err := s.base.SetAPIKey(ctx, id, hash, createdAt)
	if err != nil {
		return core.Tenant{}, err
	}
	if err := s.invalidate(ctx, updated); err != nil {
		return core.Tenant{}, err
	}
	return updated, nil
}

func (s *CachedTenantStore) ClearAPIKey(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	// Read first: the live hash key must be dropped alongside the id key.
	current, err := s.base.GetByID(ctx, id)
	if err == nil {
		if clearErr := s.base.ClearAPIKey(ctx, id); clearErr != nil {
			return clearErr
		}
		return s.invalidate(ctx, current)
	}
	if clearErr := s.base.ClearAPIKey(ctx, id); clearErr != nil {
		return clearErr
	}
	return s.cache.Delete(ctx, TenantCacheKey("id", id))
}

func (s *CachedTenantStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached tenant store is not configured")
	}
	current, getErr := s.base.GetByID(ctx, id)
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	if getErr == nil {
		return s.invalidate(ctx, current)
	}
	return s.cache.Delete(ctx, TenantCacheKey("id", id))
}

func (s *CachedTenantStore) invalidate(ctx context.Context, tenant core.Tenant) error {
	if err := s.cache.Delete(ctx, TenantCacheKey("id", tenant.ID)); err != nil {
		return err
	}
	if tenant.HasLiveAPIKey() {
		return s.cache.Delete(ctx, TenantCacheKey("key_hash", tenant.APIKeyHash))
	}
	return nil
}
