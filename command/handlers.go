package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/schedulehq/go-connect/auth"
	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
)

// KeyMutator issues and retires tenant API keys. *auth.KeyService satisfies it.
type KeyMutator interface {
	Generate(ctx context.Context, tenantID string) (string, error)
	Revoke(ctx context.Context, tenantID string) error
}

// TenantMutator is the slice of the tenant store the admin commands need.
type TenantMutator interface {
	Update(ctx context.Context, id string, update core.TenantUpdate) (core.Tenant, error)
	Delete(ctx context.Context, id string) error
}

// SelectionCompleter dispatches a chosen entity to its platform.
// *connect.SelectionCompleter satisfies it.
type SelectionCompleter interface {
	Complete(ctx context.Context, req connect.SelectionRequest) error
}

// LimiterSweeper drops lapsed rate limit windows and reports how many went.
type LimiterSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type GenerateAPIKeyCommand struct {
	keys KeyMutator
}

func NewGenerateAPIKeyCommand(keys KeyMutator) *GenerateAPIKeyCommand {
	return &GenerateAPIKeyCommand{keys: keys}
}

func (c *GenerateAPIKeyCommand) Execute(ctx context.Context, msg GenerateAPIKeyMessage) error {
	if c == nil || c.keys == nil {
		return commandDependencyError("command: key service is required")
	}
	key, err := c.keys.Generate(ctx, msg.TenantID)
	if err != nil {
		return err
	}
	storeResult(ctx, key)
	return nil
}

type RevokeAPIKeyCommand struct {
	keys KeyMutator
}

func NewRevokeAPIKeyCommand(keys KeyMutator) *RevokeAPIKeyCommand {
	return &RevokeAPIKeyCommand{keys: keys}
}

func (c *RevokeAPIKeyCommand) Execute(ctx context.Context, msg RevokeAPIKeyMessage) error {
	if c == nil || c.keys == nil {
		return commandDependencyError("command: key service is required")
	}
	return c.keys.Revoke(ctx, msg.TenantID)
}

type SelectEntityCommand struct {
	completer SelectionCompleter
}

func NewSelectEntityCommand(completer SelectionCompleter) *SelectEntityCommand {
	return &SelectEntityCommand{completer: completer}
}

func (c *SelectEntityCommand) Execute(ctx context.Context, msg SelectEntityMessage) error {
	if c == nil || c.completer == nil {
		return commandDependencyError("command: selection completer is required")
	}
	return c.completer.Complete(ctx, msg.Request)
}

type UpdateTenantCommand struct {
	store TenantMutator
}

func NewUpdateTenantCommand(store TenantMutator) *UpdateTenantCommand {
	return &UpdateTenantCommand{store: store}
}

func (c *UpdateTenantCommand) Execute(ctx context.Context, msg UpdateTenantMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: tenant store is required")
	}
	if err := auth.GuardSelfDemotion(msg.CallerID, msg.TenantID, msg.Update); err != nil {
		return err
	}
	updated, err := c.store.Update(ctx, msg.TenantID, msg.Update)
	if err != nil {
		return err
	}
	storeResult(ctx, updated)
	return nil
}

type DeleteTenantCommand struct {
	store TenantMutator
}

func NewDeleteTenantCommand(store TenantMutator) *DeleteTenantCommand {
	return &DeleteTenantCommand{store: store}
}

func (c *DeleteTenantCommand) Execute(ctx context.Context, msg DeleteTenantMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: tenant store is required")
	}
	if err := auth.GuardSelfDeletion(msg.CallerID, msg.TenantID); err != nil {
		return err
	}
	return c.store.Delete(ctx, msg.TenantID)
}

type SweepRateLimitCommand struct {
	limiter LimiterSweeper
}

func NewSweepRateLimitCommand(limiter LimiterSweeper) *SweepRateLimitCommand {
	return &SweepRateLimitCommand{limiter: limiter}
}

func (c *SweepRateLimitCommand) Execute(ctx context.Context, _ SweepRateLimitMessage) error {
	if c == nil || c.limiter == nil {
		return commandDependencyError("command: rate limiter is required")
	}
	removed, err := c.limiter.Sweep(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, removed)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
