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

// KeyService manages the per-tenant API-key lifecycle. At most one key is
// live at a time; the plaintext leaves this service exactly once, at
// issuance.
type KeyService struct {
	store  core.TenantStore
	logger core.Logger
	Now    func() time.Time
}

func NewKeyService(runtime *core.Runtime) (*KeyService, error) {
	store, err := runtime.RequireTenantStore()
	if err != nil {
		return nil, err
	}
	return &KeyService{
		store:  store,
		logger: glog.Ensure(runtime.Logger()),
		Now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Generate issues a fresh key for the tenant and returns its plaintext.
// Issuing while a hash is already live is a conflict; the caller must revoke
// first.
func (s *KeyService) Generate(ctx context.Context, tenantID string) (string, error) {
	if s == nil || s.store == nil {
		return "", goerrors.New("auth: key service is not configured", goerrors.CategoryInternal)
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", goerrors.NewValidation("auth: tenant id is required",
			goerrors.FieldError{Field: "tenant_id", Message: "required"})
	}

	tenant, err := s.store.GetByID(ctx, tenantID)
	if err != nil {
		return "", tenantLookupError(err)
	}
	if tenant.HasLiveAPIKey() {
		return "", liveKeyConflict(tenantID)
	}

	key, err := security.GenerateKey()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "auth: key generation failed")
	}

	// The store re-checks under its own serialization; a concurrent issuance
	// loses here even though the read above saw no live hash.
	if _, err := s.store.SetAPIKey(ctx, tenantID, security.HashKey(key), s.now()); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			return "", liveKeyConflict(tenantID)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "auth: key issuance failed")
	}

	if s.logger != nil {
		s.logger.Info("api key issued", "tenant_id", tenantID)
	}
	return key, nil
}

// Revoke clears the live key. Idempotent: revoking a tenant without a key
// succeeds.
func (s *KeyService) Revoke(ctx context.Context, tenantID string) error {
	if s == nil || s.store == nil {
		return goerrors.New("auth: key service is not configured", goerrors.CategoryInternal)
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return goerrors.NewValidation("auth: tenant id is required",
			goerrors.FieldError{Field: "tenant_id", Message: "required"})
	}
	if err := s.store.ClearAPIKey(ctx, tenantID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "auth: key revocation failed")
	}
	if s.logger != nil {
		s.logger.Info("api key revoked", "tenant_id", tenantID)
	}
	return nil
}

func liveKeyConflict(tenantID string) *goerrors.Error {
	return goerrors.New(
		"auth: tenant already has a live api key",
		goerrors.CategoryConflict,
	).
		WithTextCode(core.ConnectErrorConflict).
		WithCode(http.StatusConflict).
		WithMetadata(map[string]any{"tenant_id": tenantID})
}

func (s *KeyService) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
