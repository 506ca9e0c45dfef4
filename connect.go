// Package goconnect is the embedding surface for the connect library. It
// re-exports the core configuration and wiring types, registers the built-in
// platforms, and bundles the mutation commands behind one facade.
package goconnect

import (
	"fmt"

	"github.com/schedulehq/go-connect/auth"
	connectcommand "github.com/schedulehq/go-connect/command"
	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms/facebook"
	"github.com/schedulehq/go-connect/platforms/googlebusiness"
	"github.com/schedulehq/go-connect/platforms/linkedin"
	"github.com/schedulehq/go-connect/platforms/pinterest"
	"github.com/schedulehq/go-connect/platforms/tiktok"
	"github.com/schedulehq/go-connect/ratelimit"
	"github.com/schedulehq/go-connect/upstream"
)

type Config = core.Config

type RateLimitConfig = core.RateLimitConfig

type ConnectorConfig = core.ConnectorConfig

type Option = core.Option

type Runtime = core.Runtime

type Tenant = core.Tenant
type TenantUpdate = core.TenantUpdate
type TenantStore = core.TenantStore
type SessionVerifier = core.SessionVerifier
type Identity = core.Identity
type AuthorizedContext = core.AuthorizedContext
type ConnectorClient = core.ConnectorClient
type AttemptStore = core.AttemptStore
type ConnectionAttempt = core.ConnectionAttempt
type Entity = core.Entity
type Platform = core.Platform
type PlatformRegistry = core.PlatformRegistry

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorFactory     = core.WithErrorFactory
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithAttemptStore     = core.WithAttemptStore
	WithPlatformRegistry = core.WithPlatformRegistry
	WithTenantStore      = core.WithTenantStore
	WithSessionVerifier  = core.WithSessionVerifier
	WithConnector        = core.WithConnector
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	return core.NewRuntime(cfg, opts...)
}

// Setup builds a runtime with the default wiring filled in: an upstream
// connector from cfg.Connector and a registry carrying every built-in
// platform. Caller options are applied last, so explicit wiring wins.
func Setup(cfg Config, opts ...Option) (*Runtime, error) {
	var defaults []Option
	if cfg.Connector.BaseURL != "" {
		client, err := upstream.New(upstream.Config{BaseURL: cfg.Connector.BaseURL})
		if err != nil {
			return nil, err
		}
		registry := core.NewPlatformRegistry()
		if err := RegisterDefaultPlatforms(registry, client); err != nil {
			return nil, err
		}
		defaults = append(defaults, core.WithConnector(client), core.WithPlatformRegistry(registry))
	}
	return core.NewRuntime(cfg, append(defaults, opts...)...)
}

func FacebookPlatform(cfg facebook.Config) (core.Platform, error) {
	return facebook.New(cfg)
}

func LinkedInPlatform(cfg linkedin.Config) (core.Platform, error) {
	return linkedin.New(cfg)
}

func PinterestPlatform(cfg pinterest.Config) (core.Platform, error) {
	return pinterest.New(cfg)
}

func GoogleBusinessPlatform(cfg googlebusiness.Config) (core.Platform, error) {
	return googlebusiness.New(cfg)
}

func TikTokPlatform(cfg tiktok.Config) (core.Platform, error) {
	return tiktok.New(cfg)
}

// RegisterDefaultPlatforms wires every built-in platform into the registry on
// top of one shared connector client.
func RegisterDefaultPlatforms(registry *core.PlatformRegistry, client core.ConnectorClient) error {
	if registry == nil {
		return fmt.Errorf("goconnect: platform registry is required")
	}
	if client == nil {
		return fmt.Errorf("goconnect: connector client is required")
	}

	factories := []func() (core.Platform, error){
		func() (core.Platform, error) { return facebook.New(facebook.Config{Client: client}) },
		func() (core.Platform, error) { return linkedin.New(linkedin.Config{Client: client}) },
		func() (core.Platform, error) { return pinterest.New(pinterest.Config{Client: client}) },
		func() (core.Platform, error) { return googlebusiness.New(googlebusiness.Config{Client: client}) },
		func() (core.Platform, error) { return tiktok.New(tiktok.Config{Client: client}) },
	}
	for _, factory := range factories {
		platform, err := factory()
		if err != nil {
			return err
		}
		if err := registry.Register(platform); err != nil {
			return err
		}
	}
	return nil
}

// Commands bundles the mutation command handlers ready for go-command
// registration.
type Commands struct {
	GenerateAPIKey *connectcommand.GenerateAPIKeyCommand
	RevokeAPIKey   *connectcommand.RevokeAPIKeyCommand
	SelectEntity   *connectcommand.SelectEntityCommand
	UpdateTenant   *connectcommand.UpdateTenantCommand
	DeleteTenant   *connectcommand.DeleteTenantCommand
	SweepRateLimit *connectcommand.SweepRateLimitCommand
}

type Facade struct {
	runtime  *Runtime
	keys     *auth.KeyService
	commands Commands
}

// NewFacade builds the command bundle from a configured runtime. The limiter
// is optional; without it the sweep command is left nil.
func NewFacade(runtime *Runtime, limiter *ratelimit.FixedWindowLimiter) (*Facade, error) {
	if runtime == nil {
		return nil, fmt.Errorf("goconnect: runtime is required")
	}
	store, err := runtime.RequireTenantStore()
	if err != nil {
		return nil, err
	}
	keys, err := auth.NewKeyService(runtime)
	if err != nil {
		return nil, err
	}
	completer, err := connect.NewSelectionCompleter(runtime)
	if err != nil {
		return nil, err
	}

	facade := &Facade{runtime: runtime, keys: keys}
	facade.commands = Commands{
		GenerateAPIKey: connectcommand.NewGenerateAPIKeyCommand(keys),
		RevokeAPIKey:   connectcommand.NewRevokeAPIKeyCommand(keys),
		SelectEntity:   connectcommand.NewSelectEntityCommand(completer),
		UpdateTenant:   connectcommand.NewUpdateTenantCommand(store),
		DeleteTenant:   connectcommand.NewDeleteTenantCommand(store),
	}
	if limiter != nil {
		facade.commands.SweepRateLimit = connectcommand.NewSweepRateLimitCommand(limiter)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Keys() *auth.KeyService {
	if f == nil {
		return nil
	}
	return f.keys
}

func (f *Facade) Runtime() *Runtime {
	if f == nil {
		return nil
	}
	return f.runtime
}
