package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	connectcommand "github.com/schedulehq/go-connect/command"
	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
)

type okMessage struct{}

func (okMessage) Type() string { return "connect.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "connect.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "connect.command.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "connect.command.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("connect.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

func TestRegisterConnectCommandsDispatches(t *testing.T) {
	keys := &trackingKeyMutator{}
	tenants := &trackingTenantMutator{}
	selection := &trackingCompleter{}
	limiter := &trackingSweeper{}

	adapter := NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := RegisterConnectCommands(adapter, Dependencies{
		Keys:      keys,
		Tenants:   tenants,
		Selection: selection,
		Limiter:   limiter,
	})
	if err != nil {
		t.Fatalf("register connect commands: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if len(subscriptions) != 6 {
		t.Fatalf("expected 6 subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	if err := Dispatch(context.Background(), connectcommand.RevokeAPIKeyMessage{TenantID: "tenant_1"}); err != nil {
		t.Fatalf("dispatch revoke: %v", err)
	}
	if keys.revoked != "tenant_1" {
		t.Fatalf("expected revoke to reach key service, got %q", keys.revoked)
	}

	if err := Dispatch(context.Background(), connectcommand.DeleteTenantMessage{
		CallerID: "tenant_admin",
		TenantID: "tenant_1",
	}); err != nil {
		t.Fatalf("dispatch delete: %v", err)
	}
	if tenants.deleted != "tenant_1" {
		t.Fatalf("expected delete to reach tenant store, got %q", tenants.deleted)
	}

	if err := Dispatch(context.Background(), connectcommand.SelectEntityMessage{
		Request: connect.SelectionRequest{
			ConnectionID: "att_1",
			ProfileID:    "profile_1",
			EntityID:     "page_1",
		},
	}); err != nil {
		t.Fatalf("dispatch select: %v", err)
	}
	if selection.entityID != "page_1" {
		t.Fatalf("expected selection to reach completer, got %q", selection.entityID)
	}

	if err := Dispatch(context.Background(), connectcommand.SweepRateLimitMessage{}); err != nil {
		t.Fatalf("dispatch sweep: %v", err)
	}
	if !limiter.called {
		t.Fatalf("expected sweep to reach limiter")
	}
}

func TestRegisterConnectCommandsRequiresServices(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	if _, err := RegisterConnectCommands(adapter, Dependencies{}); err == nil {
		t.Fatalf("expected missing services rejection")
	}
}

type trackingKeyMutator struct {
	revoked string
}

func (m *trackingKeyMutator) Generate(_ context.Context, tenantID string) (string, error) {
	return "sch_" + tenantID, nil
}

func (m *trackingKeyMutator) Revoke(_ context.Context, tenantID string) error {
	m.revoked = tenantID
	return nil
}

type trackingTenantMutator struct {
	deleted string
}

func (m *trackingTenantMutator) Update(_ context.Context, id string, _ core.TenantUpdate) (core.Tenant, error) {
	return core.Tenant{ID: id}, nil
}

func (m *trackingTenantMutator) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

type trackingCompleter struct {
	entityID string
}

func (c *trackingCompleter) Complete(_ context.Context, req connect.SelectionRequest) error {
	c.entityID = req.EntityID
	return nil
}

type trackingSweeper struct {
	called bool
}

func (s *trackingSweeper) Sweep(context.Context) (int, error) {
	s.called = true
	return 0, nil
}
