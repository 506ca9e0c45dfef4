// Package query exposes the read side of the connect surface as go-command
// queries: tenant lookups, entity listings, and rate limit usage.
package query

import (
	"context"

	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/ratelimit"
)

// TenantReader is the lookup slice of the tenant store. core.TenantStore
// satisfies it.
type TenantReader interface {
	GetByID(ctx context.Context, id string) (core.Tenant, error)
	GetByEmail(ctx context.Context, email string) (core.Tenant, error)
}

// EntityLister resolves the candidate entities for an in-flight attempt.
// *connect.EntityResolver satisfies it.
type EntityLister interface {
	Resolve(ctx context.Context, req connect.EntityRequest) ([]core.Entity, error)
}

// RateLimitReader reads one tenant's current window state.
type RateLimitReader interface {
	Get(ctx context.Context, tenantID string) (ratelimit.Entry, error)
}

type GetTenantQuery struct {
	reader TenantReader
}

func NewGetTenantQuery(reader TenantReader) *GetTenantQuery {
	return &GetTenantQuery{reader: reader}
}

func (q *GetTenantQuery) Query(ctx context.Context, msg GetTenantMessage) (core.Tenant, error) {
	if q == nil || q.reader == nil {
		return core.Tenant{}, queryDependencyError("query: tenant reader is required")
	}
	return q.reader.GetByID(ctx, msg.TenantID)
}

type GetTenantByEmailQuery struct {
	reader TenantReader
}

func NewGetTenantByEmailQuery(reader TenantReader) *GetTenantByEmailQuery {
	return &GetTenantByEmailQuery{reader: reader}
}

func (q *GetTenantByEmailQuery) Query(ctx context.Context, msg GetTenantByEmailMessage) (core.Tenant, error) {
	if q == nil || q.reader == nil {
		return core.Tenant{}, queryDependencyError("query: tenant reader is required")
	}
	return q.reader.GetByEmail(ctx, msg.Email)
}

type ListEntitiesQuery struct {
	lister EntityLister
}

func NewListEntitiesQuery(lister EntityLister) *ListEntitiesQuery {
	return &ListEntitiesQuery{lister: lister}
}

func (q *ListEntitiesQuery) Query(ctx context.Context, msg ListEntitiesMessage) ([]core.Entity, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: entity lister is required")
	}
	return q.lister.Resolve(ctx, msg.Request)
}

type RateLimitUsageQuery struct {
	reader RateLimitReader
}

func NewRateLimitUsageQuery(reader RateLimitReader) *RateLimitUsageQuery {
	return &RateLimitUsageQuery{reader: reader}
}

func (q *RateLimitUsageQuery) Query(ctx context.Context, msg RateLimitUsageMessage) (ratelimit.Entry, error) {
	if q == nil || q.reader == nil {
		return ratelimit.Entry{}, queryDependencyError("query: rate limit reader is required")
	}
	return q.reader.Get(ctx, msg.TenantID)
}
