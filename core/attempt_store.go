package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultAttemptTTL      = 15 * time.Minute
	defaultAttemptSweepMax = 1024
)

// AttemptStore holds in-flight ConnectionAttempts keyed by an opaque handle.
// The handle replaces threading every ephemeral token through redirect URLs: a
// redirect carries only the handle, the store holds the structured attempt
// until the chain completes or the TTL lapses.
type AttemptStore interface {
	Save(ctx context.Context, attempt ConnectionAttempt) (string, error)
	Get(ctx context.Context, handle string) (ConnectionAttempt, error)
	Delete(ctx context.Context, handle string) error
}

type MemoryAttemptStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sweepMax int
	now      func() time.Time
	entries  map[string]ConnectionAttempt
}

func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &MemoryAttemptStore{
		ttl:      ttl,
		sweepMax: defaultAttemptSweepMax,
		now:      func() time.Time { return time.Now().UTC() },
		entries:  map[string]ConnectionAttempt{},
	}
}

func (s *MemoryAttemptStore) Save(_ context.Context, attempt ConnectionAttempt) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: attempt store is not configured")
	}
	if err := attempt.Validate(); err != nil {
		return "", err
	}

	handle, err := generateAttemptHandle()
	if err != nil {
		return "", err
	}

	now := s.now()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	if attempt.ExpiresAt.IsZero() {
		attempt.ExpiresAt = attempt.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	if len(s.entries) >= s.sweepMax {
		s.sweepLocked(now)
	}
	s.entries[handle] = cloneAttempt(attempt)
	s.mu.Unlock()

	return handle, nil
}

func (s *MemoryAttemptStore) Get(_ context.Context, handle string) (ConnectionAttempt, error) {
	if s == nil {
		return ConnectionAttempt{}, fmt.Errorf("core: attempt store is not configured")
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ConnectionAttempt{}, fmt.Errorf("core: attempt handle is required")
	}

	s.mu.Lock()
	attempt, ok := s.entries[handle]
	s.mu.Unlock()

	if !ok {
		return ConnectionAttempt{}, fmt.Errorf("core: attempt not found")
	}
	if !attempt.ExpiresAt.IsZero() && s.now().After(attempt.ExpiresAt) {
		_ = s.Delete(context.Background(), handle)
		return ConnectionAttempt{}, fmt.Errorf("core: attempt expired")
	}
	return cloneAttempt(attempt), nil
}

func (s *MemoryAttemptStore) Delete(_ context.Context, handle string) error {
	if s == nil {
		return fmt.Errorf("core: attempt store is not configured")
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.entries, handle)
	s.mu.Unlock()
	return nil
}

// sweepLocked drops expired entries; callers hold s.mu.
func (s *MemoryAttemptStore) sweepLocked(now time.Time) {
	for handle, attempt := range s.entries {
		if !attempt.ExpiresAt.IsZero() && now.After(attempt.ExpiresAt) {
			delete(s.entries, handle)
		}
	}
}

func generateAttemptHandle() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate attempt handle: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func cloneAttempt(attempt ConnectionAttempt) ConnectionAttempt {
	cloned := attempt
	cloned.Organizations = append([]string(nil), attempt.Organizations...)
	cloned.InlineEntities = append([]Entity(nil), attempt.InlineEntities...)
	return cloned
}
