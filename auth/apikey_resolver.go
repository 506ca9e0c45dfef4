package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/security"
)

const bearerScheme = "Bearer "

// APIKeyResolver authorizes the bearer-credential path. It applies the same
// profile-override policy as the session path, but the subscription gate is
// stricter: a set currentPeriodEnd that has passed denies the request even
// when the status still reads active.
type APIKeyResolver struct {
	store  core.TenantStore
	logger core.Logger
	Now    func() time.Time
}

func NewAPIKeyResolver(runtime *core.Runtime) (*APIKeyResolver, error) {
	store, err := runtime.RequireTenantStore()
	if err != nil {
		return nil, err
	}
	return &APIKeyResolver{
		store:  store,
		logger: glog.Ensure(runtime.Logger()),
		Now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *APIKeyResolver) Resolve(ctx context.Context, req *http.Request) (core.AuthorizedContext, error) {
	if r == nil || r.store == nil {
		return core.AuthorizedContext{}, goerrors.New("auth: api key resolver is not configured", goerrors.CategoryInternal)
	}

	key, err := extractBearerKey(req.Header.Get("Authorization"))
	if err != nil {
		return core.AuthorizedContext{}, err
	}

	tenant, err := r.store.GetByAPIKeyHash(ctx, security.HashKey(key))
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryNotFound {
			return core.AuthorizedContext{}, unauthenticatedError("auth: api key does not match any tenant")
		}
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return core.AuthorizedContext{}, unauthenticatedError("auth: api key does not match any tenant")
		}
		return core.AuthorizedContext{}, goerrors.Wrap(err, goerrors.CategoryInternal, "auth: api key lookup failed")
	}

	if !tenant.SubscriptionActive(r.now()) {
		return core.AuthorizedContext{}, subscriptionInactiveError(tenant)
	}

	profileID, err := resolveEffectiveProfile(tenant, req.Header.Get(HeaderProfileOverride), r.logger)
	if err != nil {
		return core.AuthorizedContext{}, err
	}
	return core.AuthorizedContext{Tenant: tenant, ProfileID: profileID}, nil
}

// extractBearerKey rejects absent or malformed credentials before any hash or
// storage work runs.
func extractBearerKey(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", unauthenticatedError("auth: authorization header is required")
	}
	if len(header) <= len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", unauthenticatedError("auth: authorization header must use the bearer scheme")
	}
	key := strings.TrimSpace(header[len(bearerScheme):])
	if !security.ValidFormat(key) {
		return "", unauthenticatedError("auth: api key format is invalid")
	}
	return key, nil
}

func (r *APIKeyResolver) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
