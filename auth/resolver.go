// Package auth reconciles the two authentication entry points, browser
// session and issued API key, into one authorized tenant contract with
// subscription and profile-access gating.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/core"
)

// HeaderProfileOverride selects a non-primary scheduling profile for the
// request. Honored on both authentication paths.
const HeaderProfileOverride = "X-Profile-Id"

// TenantResolver authorizes the first-party session path.
type TenantResolver struct {
	store    core.TenantStore
	sessions core.SessionVerifier
	logger   core.Logger
	Now      func() time.Time
}

func NewTenantResolver(runtime *core.Runtime) (*TenantResolver, error) {
	store, err := runtime.RequireTenantStore()
	if err != nil {
		return nil, err
	}
	sessions := runtime.SessionVerifier()
	if sessions == nil {
		return nil, goerrors.New("auth: session verifier is required", goerrors.CategoryInternal)
	}
	return &TenantResolver{
		store:    store,
		sessions: sessions,
		logger:   glog.Ensure(runtime.Logger()),
		Now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// ResolveTenant runs session verification, record lookup, and the
// subscription gate, without touching profile resolution. Admin operations
// stop here.
func (r *TenantResolver) ResolveTenant(ctx context.Context, req *http.Request) (core.Tenant, error) {
	if r == nil || r.sessions == nil || r.store == nil {
		return core.Tenant{}, goerrors.New("auth: tenant resolver is not configured", goerrors.CategoryInternal)
	}

	identity, ok, err := r.sessions.VerifySession(ctx, req)
	if err != nil {
		return core.Tenant{}, goerrors.Wrap(err, goerrors.CategoryInternal, "auth: session verification failed")
	}
	if !ok || strings.TrimSpace(identity.TenantID) == "" {
		return core.Tenant{}, unauthenticatedError("auth: request carries no valid session")
	}

	tenant, err := r.store.GetByID(ctx, identity.TenantID)
	if err != nil {
		return core.Tenant{}, tenantLookupError(err)
	}

	if tenant.SubscriptionStatus != core.SubscriptionStatusActive {
		return core.Tenant{}, subscriptionInactiveError(tenant)
	}
	return tenant, nil
}

// Resolve produces the full authorized context for the session path,
// including the effective scheduling profile.
func (r *TenantResolver) Resolve(ctx context.Context, req *http.Request) (core.AuthorizedContext, error) {
	tenant, err := r.ResolveTenant(ctx, req)
	if err != nil {
		return core.AuthorizedContext{}, err
	}

	profileID, err := resolveEffectiveProfile(tenant, req.Header.Get(HeaderProfileOverride), r.logger)
	if err != nil {
		return core.AuthorizedContext{}, err
	}
	return core.AuthorizedContext{Tenant: tenant, ProfileID: profileID}, nil
}

// resolveEffectiveProfile applies the profile-override policy shared by both
// authentication paths: an override outside the tenant's access set is a hard
// denial, never a silent fallback to the primary profile.
func resolveEffectiveProfile(tenant core.Tenant, override string, logger core.Logger) (string, error) {
	override = strings.TrimSpace(override)
	if override != "" {
		if !tenant.CanActAs(override) {
			if logger != nil {
				logger.Warn("profile override denied",
					"tenant_id", tenant.ID,
					"profile_id", override,
				)
			}
			return "", goerrors.New(
				"auth: profile override is not in the tenant access set",
				goerrors.CategoryAuthz,
			).
				WithTextCode(core.ConnectErrorAccessDenied).
				WithCode(http.StatusForbidden)
		}
		return override, nil
	}

	primary := strings.TrimSpace(tenant.PrimaryProfileID)
	if primary == "" {
		return "", goerrors.New(
			"auth: tenant has no scheduling profile configured",
			goerrors.CategoryBadInput,
		).
			WithTextCode(core.ConnectErrorBadInput).
			WithCode(http.StatusBadRequest)
	}
	return primary, nil
}

func unauthenticatedError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(core.ConnectErrorUnauthenticated).
		WithCode(http.StatusUnauthorized)
}

func tenantLookupError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return core.EnsureConnectErrorEnvelope(richErr)
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return goerrors.New("auth: tenant record not found", goerrors.CategoryNotFound).
			WithTextCode(core.ConnectErrorNotFound).
			WithCode(http.StatusNotFound)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "auth: tenant lookup failed")
}

func subscriptionInactiveError(tenant core.Tenant) *goerrors.Error {
	return goerrors.New(
		"auth: subscription is not active",
		goerrors.CategoryAuthz,
	).
		WithTextCode(core.ConnectErrorAccessDenied).
		WithCode(http.StatusForbidden).
		WithMetadata(map[string]any{
			"subscription_status": string(tenant.SubscriptionStatus),
		})
}
