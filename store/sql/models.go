package sqlstore

import (
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/schedulehq/go-connect/core"
)

type tenantRecord struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID                   string     `bun:"id,pk"`
	Email                string     `bun:"email,notnull"`
	SubscriptionStatus   string     `bun:"subscription_status,notnull"`
	CurrentPeriodEnd     *time.Time `bun:"current_period_end,nullzero"`
	PrimaryProfileID     string     `bun:"primary_profile_id"`
	AccessibleProfileIDs []string   `bun:"accessible_profile_ids,type:jsonb,notnull"`
	APIKeyHash           *string    `bun:"api_key_hash,nullzero"`
	APIKeyCreatedAt      *time.Time `bun:"api_key_created_at,nullzero"`
	IsAdmin              bool       `bun:"is_admin,notnull"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt            *time.Time `bun:"deleted_at,soft_delete"`
}

func (r *tenantRecord) toDomain() core.Tenant {
	if r == nil {
		return core.Tenant{}
	}
	tenant := core.Tenant{
		ID:                   strings.TrimSpace(r.ID),
		Email:                strings.TrimSpace(r.Email),
		SubscriptionStatus:   core.SubscriptionStatus(strings.TrimSpace(r.SubscriptionStatus)),
		CurrentPeriodEnd:     copyTimePointer(r.CurrentPeriodEnd),
		PrimaryProfileID:     strings.TrimSpace(r.PrimaryProfileID),
		AccessibleProfileIDs: append([]string(nil), r.AccessibleProfileIDs...),
		APIKeyCreatedAt:      copyTimePointer(r.APIKeyCreatedAt),
		IsAdmin:              r.IsAdmin,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.APIKeyHash != nil {
		tenant.APIKeyHash = strings.TrimSpace(*r.APIKeyHash)
	}
	return tenant
}

type rateLimitEntryRecord struct {
	bun.BaseModel `bun:"table:rate_limit_entries,alias:rle"`

	ID            string    `bun:"id,pk"`
	TenantID      string    `bun:"tenant_id,notnull"`
	RequestCount  int       `bun:"request_count,notnull"`
	WindowResetAt time.Time `bun:"window_reset_at,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func copyTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
