package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAttemptStoreRoundTrip(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)

	handle, err := store.Save(context.Background(), ConnectionAttempt{
		Platform:  PlatformLinkedIn,
		StepType:  "select_organization",
		TempToken: "tok_1",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if handle == "" {
		t.Fatalf("expected non-empty handle")
	}

	attempt, err := store.Get(context.Background(), handle)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if attempt.TempToken != "tok_1" {
		t.Fatalf("expected temp token to round trip, got %q", attempt.TempToken)
	}

	// Handle survives a second read; the chain reads it once for listing and
	// once for selection.
	if _, err := store.Get(context.Background(), handle); err != nil {
		t.Fatalf("second get: %v", err)
	}

	if err := store.Delete(context.Background(), handle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), handle); err == nil {
		t.Fatalf("expected handle to be gone after delete")
	}
}

func TestMemoryAttemptStoreExpiry(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	now := time.Unix(1_700_000_000, 0).UTC()
	store.now = func() time.Time { return now }

	handle, err := store.Save(context.Background(), ConnectionAttempt{
		Platform: PlatformFacebook,
		StepType: "select_page",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), handle); err == nil {
		t.Fatalf("expected expired attempt error")
	}
}

func TestMemoryAttemptStoreRejectsInvalidAttempt(t *testing.T) {
	store := NewMemoryAttemptStore(0)
	if _, err := store.Save(context.Background(), ConnectionAttempt{Platform: "myspace", StepType: "x"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMemoryAttemptStoreSweepDropsExpired(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	store.sweepMax = 2
	now := time.Unix(1_700_000_000, 0).UTC()
	store.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, err := store.Save(context.Background(), ConnectionAttempt{
			Platform: PlatformPinterest,
			StepType: "select_board",
		}); err != nil {
			t.Fatalf("seed save: %v", err)
		}
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Save(context.Background(), ConnectionAttempt{
		Platform: PlatformPinterest,
		StepType: "select_board",
	}); err != nil {
		t.Fatalf("post-expiry save: %v", err)
	}

	store.mu.Lock()
	size := len(store.entries)
	store.mu.Unlock()
	if size != 1 {
		t.Fatalf("expected sweep to drop expired entries, have %d", size)
	}
}
