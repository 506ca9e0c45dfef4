package auth

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/core"
)

// AdminAuthorizer narrows a resolved session to administrative operations. A
// tenant is an admin when its email sits on the configured allow-list or its
// record carries the admin flag.
type AdminAuthorizer struct {
	resolver *TenantResolver
	config   core.Config
}

func NewAdminAuthorizer(runtime *core.Runtime, resolver *TenantResolver) (*AdminAuthorizer, error) {
	if resolver == nil {
		return nil, goerrors.New("auth: admin authorizer requires a tenant resolver", goerrors.CategoryInternal)
	}
	return &AdminAuthorizer{
		resolver: resolver,
		config:   runtime.Config(),
	}, nil
}

func (a *AdminAuthorizer) IsAdmin(tenant core.Tenant) bool {
	if a == nil {
		return false
	}
	return tenant.IsAdmin || a.config.IsAdminEmail(tenant.Email)
}

// Authorize resolves the session tenant and applies the admin predicate. The
// transport layer picks the failure channel: the page gate redirects, the
// operation gate serializes the error.
func (a *AdminAuthorizer) Authorize(ctx context.Context, req *http.Request) (core.Tenant, error) {
	if a == nil || a.resolver == nil {
		return core.Tenant{}, goerrors.New("auth: admin authorizer is not configured", goerrors.CategoryInternal)
	}
	tenant, err := a.resolver.ResolveTenant(ctx, req)
	if err != nil {
		return core.Tenant{}, err
	}
	if !a.IsAdmin(tenant) {
		return core.Tenant{}, goerrors.New(
			"auth: administrative access is required",
			goerrors.CategoryAuthz,
		).
			WithTextCode(core.ConnectErrorAccessDenied).
			WithCode(http.StatusForbidden)
	}
	return tenant, nil
}

// GuardSelfDemotion rejects an admin clearing their own admin flag. Runs
// before any write.
func GuardSelfDemotion(callerID, targetID string, update core.TenantUpdate) error {
	if update.IsAdmin == nil || *update.IsAdmin {
		return nil
	}
	if !sameTenant(callerID, targetID) {
		return nil
	}
	return goerrors.New(
		"auth: admins cannot revoke their own admin flag",
		goerrors.CategoryBadInput,
	).
		WithTextCode(core.ConnectErrorBadInput).
		WithCode(http.StatusBadRequest)
}

// GuardSelfDeletion rejects an admin deleting their own account. Runs before
// any write.
func GuardSelfDeletion(callerID, targetID string) error {
	if !sameTenant(callerID, targetID) {
		return nil
	}
	return goerrors.New(
		"auth: admins cannot delete their own account",
		goerrors.CategoryBadInput,
	).
		WithTextCode(core.ConnectErrorBadInput).
		WithCode(http.StatusBadRequest)
}

func sameTenant(callerID, targetID string) bool {
	callerID = strings.TrimSpace(callerID)
	targetID = strings.TrimSpace(targetID)
	return callerID != "" && callerID == targetID
}
