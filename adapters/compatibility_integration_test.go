package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/adapters/gocommand"
	"github.com/schedulehq/go-connect/adapters/gojob"
	"github.com/schedulehq/go-connect/adapters/gologger"
	connectcommand "github.com/schedulehq/go-connect/command"
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/ratelimit"
)

// The sweep flow crosses three libraries: the scheduler enqueues through
// go-job, the command bus dispatches through go-command, and both log through
// the shared go-logger stack. This test runs the whole chain end to end.
func TestMaintenanceFlow_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := compatLogger{}
	provider := &compatProvider{logger: logger}

	_, resolvedLogger, jobProvider, jobLogger := gologger.ResolveForJob("connect", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	// A lapsed window that the sweep should remove.
	store := ratelimit.NewMemoryStateStore()
	if err := store.Upsert(ctx, ratelimit.Entry{
		TenantID:      "tenant_lapsed",
		Count:         10,
		WindowResetAt: time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed lapsed entry: %v", err)
	}
	limiter := ratelimit.NewFixedWindowLimiter(store, 100, time.Hour)

	enqueuer := &compatEnqueuer{}
	scheduler := gojob.NewScheduler(enqueuer, time.Hour)
	if err := scheduler.EnqueueSweep(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != gojob.JobIDRateLimitSweep {
		t.Fatalf("expected sweep message on the queue")
	}

	delivery := &compatDelivery{msg: enqueuer.last}
	processor := gojob.NewProcessor(limiter, gojob.RetryPolicy{MaxAttempts: 3}, resolvedLogger)
	if err := processor.Process(ctx, delivery); err != nil {
		t.Fatalf("process sweep delivery: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected sweep delivery to ack")
	}

	size, err := store.Size(ctx)
	if err != nil {
		t.Fatalf("state store size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected lapsed entry to be swept, %d remain", size)
	}
}

func TestMaintenanceFlow_SweepCommandThroughDispatcher(t *testing.T) {
	ctx := context.Background()

	store := ratelimit.NewMemoryStateStore()
	if err := store.Upsert(ctx, ratelimit.Entry{
		TenantID:      "tenant_lapsed",
		Count:         3,
		WindowResetAt: time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed lapsed entry: %v", err)
	}
	limiter := ratelimit.NewFixedWindowLimiter(store, 100, time.Hour)

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()
	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}

	subscriptions, err := gocommand.RegisterConnectCommands(adapter, gocommand.Dependencies{
		Keys:    compatKeyMutator{},
		Tenants: compatTenantMutator{},
		Limiter: limiter,
	})
	if err != nil {
		t.Fatalf("register connect commands: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	// The sweep command is mirrored into the go-job queue registry, so queue
	// workers can pick it up alongside direct dispatch.
	if _, ok := queueRegistry.Get(connectcommand.TypeSweepRateLimit); !ok {
		t.Fatalf("expected sweep command in queue registry")
	}

	if err := gocommand.Dispatch(ctx, connectcommand.SweepRateLimitMessage{}); err != nil {
		t.Fatalf("dispatch sweep: %v", err)
	}

	size, err := store.Size(ctx)
	if err != nil {
		t.Fatalf("state store size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected dispatched sweep to clear lapsed entry, %d remain", size)
	}
}

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatDelivery struct {
	msg   *job.ExecutionMessage
	acked bool
}

func (d *compatDelivery) Message() *job.ExecutionMessage {
	return d.msg
}

func (d *compatDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error {
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatKeyMutator struct{}

func (compatKeyMutator) Generate(_ context.Context, tenantID string) (string, error) {
	return "sch_" + tenantID, nil
}

func (compatKeyMutator) Revoke(context.Context, string) error { return nil }

type compatTenantMutator struct{}

func (compatTenantMutator) Update(_ context.Context, id string, _ core.TenantUpdate) (core.Tenant, error) {
	return core.Tenant{ID: id}, nil
}

func (compatTenantMutator) Delete(context.Context, string) error { return nil }
