// Package ratelimit bounds abuse on the bearer-credential path with a
// per-tenant fixed-window counter. Windows start at the first request and
// reset wholesale after the window elapses; there is no gradual decay.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/schedulehq/go-connect/core"
)

var ErrEntryNotFound = errors.New("ratelimit: entry not found")

const (
	DefaultMaxRequests = 100
	DefaultWindow      = time.Hour
	// defaultSweepBound caps the counter map before expired entries are
	// dropped opportunistically.
	defaultSweepBound = 4096
)

// Entry is one tenant's live window.
type Entry struct {
	TenantID      string
	Count         int
	WindowResetAt time.Time
}

type StateStore interface {
	Get(ctx context.Context, tenantID string) (Entry, error)
	Upsert(ctx context.Context, entry Entry) error
	// Admit performs the whole admit-or-reject step for one request as a
	// single atomic operation. Concurrent callers for the same tenant must
	// observe each other's increments; a read-then-write split across calls
	// would under-count.
	Admit(ctx context.Context, tenantID string, max int, window time.Duration, now time.Time) (Decision, error)
	// Sweep drops entries whose window lapsed before now and reports how many
	// were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Size(ctx context.Context) (int, error)
}

// Decision is the outcome of one admission check. ResetAt is always populated
// so limited callers know when to retry.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// LimitedError renders a denied decision as the service error envelope.
func (d Decision) LimitedError(tenantID string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("ratelimit: tenant %q exceeded request limit", strings.TrimSpace(tenantID)),
		goerrors.CategoryRateLimit,
	).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ConnectErrorRateLimited).
		WithMetadata(map[string]any{
			"reset_at": d.ResetAt.UTC().Format(time.RFC3339),
		})
}

// FixedWindowLimiter admits up to MaxRequests per tenant per Window. The
// default in-memory store is single-instance by design; deployments spanning
// instances swap StateStore for an external atomic counter.
type FixedWindowLimiter struct {
	Store       StateStore
	MaxRequests int
	Window      time.Duration
	Now         func() time.Time
}

func NewFixedWindowLimiter(store StateStore, maxRequests int, window time.Duration) *FixedWindowLimiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &FixedWindowLimiter{
		Store:       store,
		MaxRequests: maxRequests,
		Window:      window,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Check admits or rejects one request for tenantID. A denied request does not
// increment the counter. The whole step runs inside the store so concurrent
// requests for one tenant contend on the same entry instead of racing a
// read-then-write.
func (l *FixedWindowLimiter) Check(ctx context.Context, tenantID string) (Decision, error) {
	if l == nil || l.Store == nil {
		return Decision{}, fmt.Errorf("ratelimit: limiter is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Decision{}, fmt.Errorf("ratelimit: tenant id is required")
	}
	return l.Store.Admit(ctx, tenantID, l.max(), l.window(), l.now())
}

// Sweep drops lapsed windows; exposed for scheduled maintenance.
func (l *FixedWindowLimiter) Sweep(ctx context.Context) (int, error) {
	if l == nil || l.Store == nil {
		return 0, fmt.Errorf("ratelimit: limiter is not configured")
	}
	return l.Store.Sweep(ctx, l.now())
}

func (l *FixedWindowLimiter) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *FixedWindowLimiter) max() int {
	if l != nil && l.MaxRequests > 0 {
		return l.MaxRequests
	}
	return DefaultMaxRequests
}

func (l *FixedWindowLimiter) window() time.Duration {
	if l != nil && l.Window > 0 {
		return l.Window
	}
	return DefaultWindow
}

type MemoryStateStore struct {
	// Now feeds the opportunistic sweep; overridable in tests.
	Now func() time.Time

	mu         sync.Mutex
	sweepBound int
	items      map[string]Entry
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		Now:        func() time.Time { return time.Now().UTC() },
		sweepBound: defaultSweepBound,
		items:      map[string]Entry{},
	}
}

func (s *MemoryStateStore) Get(_ context.Context, tenantID string) (Entry, error) {
	if s == nil {
		return Entry{}, fmt.Errorf("ratelimit: state store is nil")
	}
	tenantID = strings.TrimSpace(tenantID)
	s.mu.Lock()
	entry, ok := s.items[tenantID]
	s.mu.Unlock()
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, entry Entry) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	entry.TenantID = strings.TrimSpace(entry.TenantID)
	if entry.TenantID == "" {
		return fmt.Errorf("ratelimit: tenant id is required")
	}
	s.mu.Lock()
	if len(s.items) >= s.sweepBound {
		s.sweepLocked(s.now())
	}
	s.items[entry.TenantID] = entry
	s.mu.Unlock()
	return nil
}

// Admit holds the store lock across the lookup, the bound check, and the
// write, so two concurrent requests cannot both take the same slot.
func (s *MemoryStateStore) Admit(_ context.Context, tenantID string, max int, window time.Duration, now time.Time) (Decision, error) {
	if s == nil {
		return Decision{}, fmt.Errorf("ratelimit: state store is nil")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Decision{}, fmt.Errorf("ratelimit: tenant id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[tenantID]
	if !ok || !now.Before(entry.WindowResetAt) {
		if len(s.items) >= s.sweepBound {
			s.sweepLocked(now)
		}
		entry = Entry{
			TenantID:      tenantID,
			Count:         1,
			WindowResetAt: now.Add(window),
		}
		s.items[tenantID] = entry
		return Decision{Allowed: true, Remaining: max - 1, ResetAt: entry.WindowResetAt}, nil
	}

	if entry.Count >= max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: entry.WindowResetAt}, nil
	}

	entry.Count++
	s.items[tenantID] = entry
	return Decision{Allowed: true, Remaining: max - entry.Count, ResetAt: entry.WindowResetAt}, nil
}

func (s *MemoryStateStore) Sweep(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ratelimit: state store is nil")
	}
	s.mu.Lock()
	removed := s.sweepLocked(now)
	s.mu.Unlock()
	return removed, nil
}

func (s *MemoryStateStore) Size(_ context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ratelimit: state store is nil")
	}
	s.mu.Lock()
	size := len(s.items)
	s.mu.Unlock()
	return size, nil
}

func (s *MemoryStateStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *MemoryStateStore) sweepLocked(now time.Time) int {
	removed := 0
	for tenantID, entry := range s.items {
		if !now.Before(entry.WindowResetAt) {
			delete(s.items, tenantID)
			removed++
		}
	}
	return removed
}

var _ StateStore = (*MemoryStateStore)(nil)
