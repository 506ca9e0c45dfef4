// Package gocommand wires the connect mutation commands into the go-command
// registry and dispatcher, so embedding applications can trigger key and
// tenant mutations through their existing command bus.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	connectcommand "github.com/schedulehq/go-connect/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry,
// letting the sweep command run off the queue worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Dependencies carries the services the connect commands execute against.
// Selection and Limiter are optional; their commands are skipped when nil.
type Dependencies struct {
	Keys      connectcommand.KeyMutator
	Tenants   connectcommand.TenantMutator
	Selection connectcommand.SelectionCompleter
	Limiter   connectcommand.LimiterSweeper
}

// RegisterConnectCommands subscribes and registers every connect mutation
// command. On any failure the subscriptions made so far are torn down.
func RegisterConnectCommands(
	adapter *RegistryAdapter,
	deps Dependencies,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if deps.Keys == nil {
		return nil, fmt.Errorf("gocommand: key service is required")
	}
	if deps.Tenants == nil {
		return nil, fmt.Errorf("gocommand: tenant store is required")
	}

	var subscriptions []commanddispatcher.Subscription
	teardown := func() {
		for _, sub := range subscriptions {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}

	generateSub, err := RegisterAndSubscribe(adapter, connectcommand.NewGenerateAPIKeyCommand(deps.Keys), runnerOpts...)
	if err != nil {
		teardown()
		return nil, err
	}
	subscriptions = append(subscriptions, generateSub)

	revokeSub, err := RegisterAndSubscribe(adapter, connectcommand.NewRevokeAPIKeyCommand(deps.Keys), runnerOpts...)
	if err != nil {
		teardown()
		return nil, err
	}
	subscriptions = append(subscriptions, revokeSub)

	updateSub, err := RegisterAndSubscribe(adapter, connectcommand.NewUpdateTenantCommand(deps.Tenants), runnerOpts...)
	if err != nil {
		teardown()
		return nil, err
	}
	subscriptions = append(subscriptions, updateSub)

	deleteSub, err := RegisterAndSubscribe(adapter, connectcommand.NewDeleteTenantCommand(deps.Tenants), runnerOpts...)
	if err != nil {
		teardown()
		return nil, err
	}
	subscriptions = append(subscriptions, deleteSub)

	if deps.Selection != nil {
		selectSub, err := RegisterAndSubscribe(adapter, connectcommand.NewSelectEntityCommand(deps.Selection), runnerOpts...)
		if err != nil {
			teardown()
			return nil, err
		}
		subscriptions = append(subscriptions, selectSub)
	}

	if deps.Limiter != nil {
		sweepSub, err := RegisterAndSubscribe(adapter, connectcommand.NewSweepRateLimitCommand(deps.Limiter), runnerOpts...)
		if err != nil {
			teardown()
			return nil, err
		}
		subscriptions = append(subscriptions, sweepSub)
	}

	return subscriptions, nil
}
