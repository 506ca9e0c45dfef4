package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSubscriptionStatus = errors.New("core: invalid subscription status")
	ErrUnknownPlatform           = errors.New("core: unknown platform")
	ErrTenantNotFound            = errors.New("core: tenant not found")
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	status := SubscriptionStatus(strings.TrimSpace(strings.ToLower(value)))
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCanceled, SubscriptionStatusInactive:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSubscriptionStatus, value)
	}
}

// Tenant is the first-party account record. At most one live API key hash is
// held per tenant at a time; issuance with a live hash must be rejected.
type Tenant struct {
	ID                   string
	Email                string
	SubscriptionStatus   SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	PrimaryProfileID     string
	AccessibleProfileIDs []string
	APIKeyHash           string
	APIKeyCreatedAt      *time.Time
	IsAdmin              bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t Tenant) HasLiveAPIKey() bool {
	return strings.TrimSpace(t.APIKeyHash) != ""
}

// SubscriptionActive reports whether the tenant's plan allows requests at now.
// The period-end check only constrains tenants that carry one.
func (t Tenant) SubscriptionActive(now time.Time) bool {
	if t.SubscriptionStatus != SubscriptionStatusActive {
		return false
	}
	if t.CurrentPeriodEnd != nil && now.After(*t.CurrentPeriodEnd) {
		return false
	}
	return true
}

// CanActAs reports whether profileID is the tenant's primary scheduling profile
// or a member of its accessible set.
func (t Tenant) CanActAs(profileID string) bool {
	trimmed := strings.TrimSpace(profileID)
	if trimmed == "" {
		return false
	}
	if trimmed == strings.TrimSpace(t.PrimaryProfileID) {
		return true
	}
	for _, id := range t.AccessibleProfileIDs {
		if trimmed == strings.TrimSpace(id) {
			return true
		}
	}
	return false
}

// AuthorizedContext is derived fresh per request and never persisted.
type AuthorizedContext struct {
	Tenant    Tenant
	ProfileID string
}

const (
	PlatformFacebook       = "facebook"
	PlatformLinkedIn       = "linkedin"
	PlatformPinterest      = "pinterest"
	PlatformGoogleBusiness = "googlebusiness"
	PlatformTikTok         = "tiktok"
)

func NormalizePlatformID(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

func KnownPlatform(id string) bool {
	switch NormalizePlatformID(id) {
	case PlatformFacebook, PlatformLinkedIn, PlatformPinterest, PlatformGoogleBusiness, PlatformTikTok:
		return true
	default:
		return false
	}
}

// Entity is a normalized linkable sub-account (page, organization, board,
// location, or profile). Transient; produced by entity listing only.
type Entity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Address string `json:"address,omitempty"`
}

// DedupEntities removes duplicate ids keeping the first occurrence and its
// position.
func DedupEntities(entities []Entity) []Entity {
	if len(entities) == 0 {
		return []Entity{}
	}
	seen := make(map[string]struct{}, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, entity := range entities {
		id := strings.TrimSpace(entity.ID)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, entity)
	}
	return out
}

// ConnectionAttempt is the state of one in-flight account link, reconstructed
// from the upstream redirect and carried across hops by an opaque handle. It is
// never written to durable storage.
type ConnectionAttempt struct {
	Platform         string
	StepType         string
	TempToken        string
	ConnectToken     string
	PendingDataToken string
	UserProfile      string
	Organizations    []string
	// InlineEntities holds an entity array the redirect carried directly,
	// already parsed. When empty the listing falls back to an upstream fetch.
	InlineEntities []Entity
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

func (a ConnectionAttempt) Validate() error {
	if !KnownPlatform(a.Platform) {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, a.Platform)
	}
	if strings.TrimSpace(a.StepType) == "" {
		return fmt.Errorf("core: attempt step type is required")
	}
	return nil
}
