// Package gojob runs the periodic maintenance work over the go-job queue:
// sweeping lapsed rate limit windows so the state store does not grow without
// bound.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDRateLimitSweep = "connect.ratelimit.sweep"

// Sweeper drops lapsed rate limit entries. *ratelimit.FixedWindowLimiter and
// the command-level sweeper both satisfy it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// SweepMessage builds the execution message for one sweep tick. The
// idempotency key is derived from the window bucket, so competing schedulers
// enqueueing the same tick collapse into one delivery.
func SweepMessage(at time.Time, window time.Duration) *job.ExecutionMessage {
	if window <= 0 {
		window = time.Hour
	}
	bucket := at.UTC().Truncate(window)
	return &job.ExecutionMessage{
		JobID:          JobIDRateLimitSweep,
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDRateLimitSweep, bucket.Unix()),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// Scheduler enqueues sweep ticks onto any go-job queue backend.
type Scheduler struct {
	enqueuer queue.Enqueuer
	window   time.Duration
}

func NewScheduler(enqueuer queue.Enqueuer, window time.Duration) *Scheduler {
	return &Scheduler{enqueuer: enqueuer, window: window}
}

func (s *Scheduler) EnqueueSweep(ctx context.Context, at time.Time) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return s.enqueuer.Enqueue(ctx, SweepMessage(at, s.window))
}

// Processor consumes sweep deliveries. Failures nack with the bounded retry
// policy; anything else acks.
type Processor struct {
	sweeper Sweeper
	policy  RetryPolicy
	logger  glog.Logger
}

func NewProcessor(sweeper Sweeper, policy RetryPolicy, logger glog.Logger) *Processor {
	return &Processor{
		sweeper: sweeper,
		policy:  policy,
		logger:  glog.Ensure(logger),
	}
}

func (p *Processor) Process(ctx context.Context, delivery queue.Delivery) error {
	return p.ProcessAttempt(ctx, delivery, 0)
}

func (p *Processor) ProcessAttempt(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if p == nil || p.sweeper == nil {
		return fmt.Errorf("gojob: sweeper is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || msg.JobID != JobIDRateLimitSweep {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		p.logger.Warn("discarding unknown job", "job_id", jobID)
		return delivery.Ack(ctx)
	}

	removed, err := p.sweeper.Sweep(ctx)
	if err != nil {
		p.logger.Error("rate limit sweep failed", "error", err, "attempt", attempt)
		return delivery.Nack(ctx, p.policy.Normalize(queue.NackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attempt))
	}
	if removed > 0 {
		p.logger.Info("rate limit sweep completed", "removed", removed)
	}
	return delivery.Ack(ctx)
}

// LoggingHook surfaces worker lifecycle events through the service logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("job started", "job_id", eventJobID(event), "attempt", event.Attempt)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("job succeeded",
		"job_id", eventJobID(event),
		"duration", event.Duration,
	)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("job failed",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"error", event.Err,
	)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("job retrying",
		"job_id", eventJobID(event),
		"attempt", event.Attempt,
		"delay", event.Delay,
	)
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return message.JobID
}

var _ worker.Hook = (*LoggingHook)(nil)
