package query

import (
	"strings"

	"github.com/schedulehq/go-connect/connect"
)

const (
	TypeGetTenant        = "connect.query.tenant.get"
	TypeGetTenantByEmail = "connect.query.tenant.get_by_email"
	TypeListEntities     = "connect.query.entities.list"
	TypeRateLimitUsage   = "connect.query.ratelimit.usage"
)

type GetTenantMessage struct {
	TenantID string
}

func (GetTenantMessage) Type() string { return TypeGetTenant }

func (m GetTenantMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryValidationError("tenantId", "required")
	}
	return nil
}

type GetTenantByEmailMessage struct {
	Email string
}

func (GetTenantByEmailMessage) Type() string { return TypeGetTenantByEmail }

func (m GetTenantByEmailMessage) Validate() error {
	if strings.TrimSpace(m.Email) == "" {
		return queryValidationError("email", "required")
	}
	return nil
}

// ListEntitiesMessage wraps an entity listing request. The embedded request
// validates downstream; here only the bare minimum is checked so the query
// can still resolve a parked attempt by its handle alone.
type ListEntitiesMessage struct {
	Request connect.EntityRequest
}

func (ListEntitiesMessage) Type() string { return TypeListEntities }

func (m ListEntitiesMessage) Validate() error {
	if strings.TrimSpace(m.Request.ConnectionID) == "" && strings.TrimSpace(m.Request.Platform) == "" {
		return queryValidationError("platform", "connection_id or platform is required")
	}
	return nil
}

type RateLimitUsageMessage struct {
	TenantID string
}

func (RateLimitUsageMessage) Type() string { return TypeRateLimitUsage }

func (m RateLimitUsageMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryValidationError("tenantId", "required")
	}
	return nil
}
