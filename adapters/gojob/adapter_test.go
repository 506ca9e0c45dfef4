package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

func TestSweepMessageCollapsesWithinWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 12, 0, 0, time.UTC)

	first := SweepMessage(base, time.Hour)
	second := SweepMessage(base.Add(20*time.Minute), time.Hour)
	if first.IdempotencyKey != second.IdempotencyKey {
		t.Fatalf("expected same key within one window, got %q and %q",
			first.IdempotencyKey, second.IdempotencyKey)
	}

	next := SweepMessage(base.Add(time.Hour), time.Hour)
	if next.IdempotencyKey == first.IdempotencyKey {
		t.Fatalf("expected fresh key for the next window")
	}
	if first.JobID != JobIDRateLimitSweep {
		t.Fatalf("unexpected job id %q", first.JobID)
	}
}

func TestSchedulerEnqueuesSweepTick(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	scheduler := NewScheduler(enqueuer, time.Hour)

	if err := scheduler.EnqueueSweep(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("enqueue sweep: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDRateLimitSweep {
		t.Fatalf("expected sweep message on the queue")
	}
}

func TestProcessorAcksOnSuccessfulSweep(t *testing.T) {
	sweeper := &stubSweeper{removed: 4}
	delivery := &stubQueueDelivery{msg: SweepMessage(time.Now().UTC(), time.Hour)}
	processor := NewProcessor(sweeper, RetryPolicy{}, nil)

	if err := processor.Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !sweeper.called {
		t.Fatalf("expected sweep invocation")
	}
	if !delivery.acked {
		t.Fatalf("expected ack on success")
	}
}

func TestProcessorNacksWithBoundedRetryOnFailure(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("store unavailable")}
	delivery := &stubQueueDelivery{msg: SweepMessage(time.Now().UTC(), time.Hour)}
	processor := NewProcessor(sweeper, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	}, nil)

	if err := processor.ProcessAttempt(context.Background(), delivery, 1); err != nil {
		t.Fatalf("process attempt 1: %v", err)
	}
	if delivery.acked {
		t.Fatalf("expected no ack on failure")
	}
	if !delivery.nackOpts.Requeue {
		t.Fatalf("expected requeue before max attempts")
	}

	if err := processor.ProcessAttempt(context.Background(), delivery, 3); err != nil {
		t.Fatalf("process max attempt: %v", err)
	}
	if delivery.nackOpts.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

func TestProcessorDiscardsUnknownJobs(t *testing.T) {
	sweeper := &stubSweeper{}
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "connect.unknown"}}
	processor := NewProcessor(sweeper, RetryPolicy{}, nil)

	if err := processor.Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if sweeper.called {
		t.Fatalf("expected no sweep for foreign job")
	}
	if !delivery.acked {
		t.Fatalf("expected foreign job to be acked away")
	}
}

func TestRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second, DeadLetterOnMax: true}

	bounded := policy.Normalize(queue.NackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  " transient ",
	}, 1)
	if bounded.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", bounded.Delay)
	}
	if !bounded.Requeue {
		t.Fatalf("expected requeue before max attempts")
	}
	if bounded.Reason != "transient" {
		t.Fatalf("expected trimmed reason, got %q", bounded.Reason)
	}

	final := policy.Normalize(queue.NackOptions{Requeue: true}, 3)
	if final.Requeue {
		t.Fatalf("expected no requeue at max attempts")
	}
	if !final.DeadLetter {
		t.Fatalf("expected dead letter at max attempts")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type stubSweeper struct {
	removed int
	err     error
	called  bool
}

func (s *stubSweeper) Sweep(context.Context) (int, error) {
	s.called = true
	return s.removed, s.err
}

var _ queue.Delivery = (*stubQueueDelivery)(nil)
