package command

import (
	"strings"

	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
)

const (
	TypeGenerateAPIKey = "connect.command.apikey.generate"
	TypeRevokeAPIKey   = "connect.command.apikey.revoke"
	TypeSelectEntity   = "connect.command.entity.select"
	TypeUpdateTenant   = "connect.command.tenant.update"
	TypeDeleteTenant   = "connect.command.tenant.delete"
	TypeSweepRateLimit = "connect.command.ratelimit.sweep"
)

type GenerateAPIKeyMessage struct {
	TenantID string
}

func (GenerateAPIKeyMessage) Type() string { return TypeGenerateAPIKey }

func (m GenerateAPIKeyMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenantId", "required")
	}
	return nil
}

type RevokeAPIKeyMessage struct {
	TenantID string
}

func (RevokeAPIKeyMessage) Type() string { return TypeRevokeAPIKey }

func (m RevokeAPIKeyMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenantId", "required")
	}
	return nil
}

// SelectEntityMessage finalizes one account link. The platform may arrive
// inline or be recovered from the parked attempt behind ConnectionID.
type SelectEntityMessage struct {
	Request connect.SelectionRequest
}

func (SelectEntityMessage) Type() string { return TypeSelectEntity }

func (m SelectEntityMessage) Validate() error {
	if strings.TrimSpace(m.Request.EntityID) == "" {
		return commandValidationError("entityId", "required")
	}
	if strings.TrimSpace(m.Request.ProfileID) == "" {
		return commandValidationError("profileId", "required")
	}
	if strings.TrimSpace(m.Request.ConnectionID) == "" && strings.TrimSpace(m.Request.Platform) == "" {
		return commandValidationError("platform", "connection_id or platform is required")
	}
	return nil
}

// UpdateTenantMessage carries an admin-initiated partial mutation. CallerID is
// the acting admin, used for the self-demotion guard.
type UpdateTenantMessage struct {
	CallerID string
	TenantID string
	Update   core.TenantUpdate
}

func (UpdateTenantMessage) Type() string { return TypeUpdateTenant }

func (m UpdateTenantMessage) Validate() error {
	if strings.TrimSpace(m.CallerID) == "" {
		return commandValidationError("callerId", "required")
	}
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenantId", "required")
	}
	if m.Update.SubscriptionStatus != nil {
		if _, err := core.ParseSubscriptionStatus(string(*m.Update.SubscriptionStatus)); err != nil {
			return commandValidationError("subscriptionStatus", "unknown status")
		}
	}
	return nil
}

type DeleteTenantMessage struct {
	CallerID string
	TenantID string
}

func (DeleteTenantMessage) Type() string { return TypeDeleteTenant }

func (m DeleteTenantMessage) Validate() error {
	if strings.TrimSpace(m.CallerID) == "" {
		return commandValidationError("callerId", "required")
	}
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenantId", "required")
	}
	return nil
}

// SweepRateLimitMessage triggers a pass over the rate limit state, dropping
// entries whose window already lapsed.
type SweepRateLimitMessage struct{}

func (SweepRateLimitMessage) Type() string { return TypeSweepRateLimit }

func (SweepRateLimitMessage) Validate() error { return nil }
