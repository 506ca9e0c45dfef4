package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Identity is the product of session verification: who the browser session
// belongs to, before any tenant-level authorization has run.
type Identity struct {
	TenantID string
	Email    string
}

// SessionVerifier is the external session collaborator. A false second return
// means the request carries no valid session; err is reserved for verifier
// infrastructure failures.
type SessionVerifier interface {
	VerifySession(ctx context.Context, req *http.Request) (Identity, bool, error)
}

// TenantUpdate carries partial tenant mutations; nil fields are left untouched.
type TenantUpdate struct {
	Email                *string
	SubscriptionStatus   *SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	ClearPeriodEnd       bool
	PrimaryProfileID     *string
	AccessibleProfileIDs *[]string
	IsAdmin              *bool
}

// TenantStore is the persisted-tenant collaborator. Implementations must
// serialize SetAPIKey per tenant: issuing while a hash is live is a conflict.
type TenantStore interface {
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByEmail(ctx context.Context, email string) (Tenant, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (Tenant, error)
	Update(ctx context.Context, id string, update TenantUpdate) (Tenant, error)
	SetAPIKey(ctx context.Context, id string, hash string, createdAt time.Time) (Tenant, error)
	ClearAPIKey(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type ConnectURLRequest struct {
	Platform    string
	ProfileID   string
	RedirectURL string
	Headless    bool
}

// PendingOAuthData is the upstream's resolution of a pendingDataToken: the
// tempToken the entity listing needs, plus organization ids for the one
// platform that returns them inline.
type PendingOAuthData struct {
	TempToken       string
	OrganizationIDs []string
}

// ConnectorClient is the upstream connector SDK surface this core consumes.
// Get/Post expose the per-platform listing and selection operations; the paths
// and response shapes are owned by the platform packages.
type ConnectorClient interface {
	ConnectURL(ctx context.Context, req ConnectURLRequest) (string, error)
	PendingOAuthData(ctx context.Context, token string) (PendingOAuthData, error)
	Get(ctx context.Context, path string, query map[string]string) (map[string]any, error)
	Post(ctx context.Context, path string, body map[string]any) (map[string]any, error)
}

// EntityTokens are the resolved ephemeral tokens a platform listing needs.
type EntityTokens struct {
	TempToken       string
	ConnectToken    string
	OrganizationIDs []string
}

// EntitySelection finalizes one account link. UserProfile is the parsed
// userProfile blob threaded through the redirect chain, when present.
type EntitySelection struct {
	ProfileID   string
	EntityID    string
	TempToken   string
	UserProfile map[string]any
}

// Platform is the per-upstream-platform capability contract. One
// implementation per platform; an unregistered platform is rejected up front
// rather than silently no-oping.
type Platform interface {
	ID() string
	ListEntities(ctx context.Context, tokens EntityTokens) ([]Entity, error)
	SelectEntity(ctx context.Context, sel EntitySelection) error
}

// SyntheticEntityProvider is an optional platform capability: a fixed entry
// prepended to every deduplicated listing, regardless of whether the entities
// came from an inline payload or an upstream fetch.
type SyntheticEntityProvider interface {
	SyntheticEntity() Entity
}
