package goconnect

import (
	"context"
	"net/http"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	connectcommand "github.com/schedulehq/go-connect/command"
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms/platformtest"
	"github.com/schedulehq/go-connect/security"
)

func TestRegisterDefaultPlatforms(t *testing.T) {
	registry := core.NewPlatformRegistry()
	if err := RegisterDefaultPlatforms(registry, &platformtest.Connector{}); err != nil {
		t.Fatalf("register default platforms: %v", err)
	}

	for _, id := range []string{
		core.PlatformFacebook,
		core.PlatformLinkedIn,
		core.PlatformPinterest,
		core.PlatformGoogleBusiness,
		core.PlatformTikTok,
	} {
		if _, ok := registry.Get(id); !ok {
			t.Fatalf("expected %s platform to be registered", id)
		}
	}

	if err := RegisterDefaultPlatforms(nil, &platformtest.Connector{}); err == nil {
		t.Fatalf("expected nil registry rejection")
	}
	if err := RegisterDefaultPlatforms(registry, nil); err == nil {
		t.Fatalf("expected nil client rejection")
	}
}

func TestSetupWiresConnectorAndRegistry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connector.BaseURL = "https://upstream.example"

	runtime, err := Setup(cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if runtime.Connector() == nil {
		t.Fatalf("expected default connector")
	}
	if _, ok := runtime.Registry().Get("facebook"); !ok {
		t.Fatalf("expected built-in platforms in registry")
	}
}

func TestSetupCallerOptionsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connector.BaseURL = "https://upstream.example"

	custom := &platformtest.Connector{}
	runtime, err := Setup(cfg, WithConnector(custom))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if runtime.Connector() != custom {
		t.Fatalf("expected caller connector to override default")
	}
}

func TestFacadeBundlesCommands(t *testing.T) {
	store := &facadeTenantStore{tenants: map[string]core.Tenant{
		"tenant_1": {
			ID:                 "tenant_1",
			Email:              "owner@example.com",
			SubscriptionStatus: core.SubscriptionStatusActive,
			PrimaryProfileID:   "profile_primary",
		},
	}}

	runtime, err := NewRuntime(DefaultConfig(),
		WithTenantStore(store),
		WithConnector(&platformtest.Connector{}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	facade, err := NewFacade(runtime, nil)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.GenerateAPIKey == nil || commands.RevokeAPIKey == nil ||
		commands.SelectEntity == nil ||
		commands.UpdateTenant == nil || commands.DeleteTenant == nil {
		t.Fatalf("expected all mutation commands, got %#v", commands)
	}
	if commands.SweepRateLimit != nil {
		t.Fatalf("expected no sweep command without a limiter")
	}

	collector := gocmd.NewResult[string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := commands.GenerateAPIKey.Execute(ctx, connectcommand.GenerateAPIKeyMessage{TenantID: "tenant_1"}); err != nil {
		t.Fatalf("execute generate: %v", err)
	}
	key, ok := collector.Load()
	if !ok {
		t.Fatalf("expected plaintext key result")
	}
	if !security.ValidFormat(key) {
		t.Fatalf("expected well-formed key, got %q", key)
	}
}

func TestFacadeRequiresTenantStore(t *testing.T) {
	runtime, err := NewRuntime(DefaultConfig(), WithConnector(&platformtest.Connector{}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := NewFacade(runtime, nil); err == nil {
		t.Fatalf("expected missing tenant store rejection")
	}
	if _, err := NewFacade(nil, nil); err == nil {
		t.Fatalf("expected nil runtime rejection")
	}
}

type facadeTenantStore struct {
	tenants map[string]core.Tenant
}

func (s *facadeTenantStore) GetByID(_ context.Context, id string) (core.Tenant, error) {
	tenant, ok := s.tenants[id]
	if !ok {
		return core.Tenant{}, goerrors.New("store: tenant not found", goerrors.CategoryNotFound)
	}
	return tenant, nil
}

func (s *facadeTenantStore) GetByEmail(_ context.Context, email string) (core.Tenant, error) {
	for _, tenant := range s.tenants {
		if tenant.Email == email {
			return tenant, nil
		}
	}
	return core.Tenant{}, goerrors.New("store: tenant not found", goerrors.CategoryNotFound)
}

func (s *facadeTenantStore) GetByAPIKeyHash(_ context.Context, hash string) (core.Tenant, error) {
	for _, tenant := range s.tenants {
		if tenant.APIKeyHash != "" && tenant.APIKeyHash == hash {
			return tenant, nil
		}
	}
	return core.Tenant{}, goerrors.New("store: tenant not found", goerrors.CategoryNotFound)
}

func (s *facadeTenantStore) Update(_ context.Context, id string, update core.TenantUpdate) (core.Tenant, error) {
	tenant, ok := s.tenants[id]
	if !ok {
		return core.Tenant{}, goerrors.New("store: tenant not found", goerrors.CategoryNotFound)
	}
	if update.IsAdmin != nil {
		tenant.IsAdmin = *update.IsAdmin
	}
	s.tenants[id] = tenant
	return tenant, nil
}

func (s *facadeTenantStore) SetAPIKey(_ context.Context, id string, hash string, createdAt time.Time) (core.Tenant, error) {
	tenant, ok := s.tenants[id]
	if !ok {
		return core.Tenant{}, goerrors.New("store: tenant not found", goerrors.CategoryNotFound)
	}
	if tenant.HasLiveAPIKey() {
		return core.Tenant{}, goerrors.New("store: tenant already has a live api key", goerrors.CategoryConflict).
			WithCode(http.StatusConflict)
	}
	tenant.APIKeyHash = hash
	tenant.APIKeyCreatedAt = &createdAt
	s.tenants[id] = tenant
	return tenant, nil
}

func (s *facadeTenantStore) ClearAPIKey(_ context.Context, id string) error {
	tenant, ok := s.tenants[id]
	if !ok {
		return nil
	}
	tenant.APIKeyHash = ""
	tenant.APIKeyCreatedAt = nil
	s.tenants[id] = tenant
	return nil
}

func (s *facadeTenantStore) Delete(_ context.Context, id string) error {
	delete(s.tenants, id)
	return nil
}

var _ core.TenantStore = (*facadeTenantStore)(nil)
