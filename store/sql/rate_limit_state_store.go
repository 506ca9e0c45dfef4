package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/schedulehq/go-connect/ratelimit"
)

// RateLimitStateStore persists fixed-window counters so limits survive
// restarts. Upserts run in a transaction keyed by tenant_id; the unique index
// on that column backstops concurrent first requests.
type RateLimitStateStore struct {
	db *bun.DB
}

func NewRateLimitStateStore(db *bun.DB) (*RateLimitStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &RateLimitStateStore{db: db}, nil
}

func (s *RateLimitStateStore) Get(ctx context.Context, tenantID string) (ratelimit.Entry, error) {
	if s == nil || s.db == nil {
		return ratelimit.Entry{}, fmt.Errorf("sqlstore: rate limit store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ratelimit.Entry{}, ratelimit.ErrEntryNotFound
	}

	record := &rateLimitEntryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return ratelimit.Entry{}, ratelimit.ErrEntryNotFound
		}
		return ratelimit.Entry{}, err
	}
	return ratelimit.Entry{
		TenantID:      record.TenantID,
		Count:         record.RequestCount,
		WindowResetAt: record.WindowResetAt.UTC(),
	}, nil
}

func (s *RateLimitStateStore) Upsert(ctx context.Context, entry ratelimit.Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: rate limit store is not configured")
	}
	entry.TenantID = strings.TrimSpace(entry.TenantID)
	if entry.TenantID == "" {
		return fmt.Errorf("sqlstore: tenant id is required")
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &rateLimitEntryRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.tenant_id = ?", entry.TenantID).
			Limit(1).
			Scan(ctx)
		now := time.Now().UTC()
		if err != nil {
			if err != sql.ErrNoRows {
				return err
			}
			record := &rateLimitEntryRecord{
				ID:            uuid.NewString(),
				TenantID:      entry.TenantID,
				RequestCount:  entry.Count,
				WindowResetAt: entry.WindowResetAt.UTC(),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			_, err := tx.NewInsert().Model(record).Exec(ctx)
			return err
		}

		existing.RequestCount = entry.Count
		existing.WindowResetAt = entry.WindowResetAt.UTC()
		existing.UpdatedAt = now
		_, err = tx.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx)
		return err
	})
}

// Admit takes one slot in the tenant's current window with a conditional
// increment, so concurrent requests contend on the row instead of racing a
// read-then-write. The unique index on tenant_id resolves concurrent first
// requests; the loser of an insert race retries the increment once.
func (s *RateLimitStateStore) Admit(ctx context.Context, tenantID string, max int, window time.Duration, now time.Time) (ratelimit.Decision, error) {
	if s == nil || s.db == nil {
		return ratelimit.Decision{}, fmt.Errorf("sqlstore: rate limit store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ratelimit.Decision{}, fmt.Errorf("sqlstore: tenant id is required")
	}

	now = now.UTC()
	resetAt := now.Add(window).UTC()
	decision := ratelimit.Decision{}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := s.takeSlot(ctx, tx, tenantID, max, now)
		if err != nil {
			return err
		}
		if taken {
			decision, err = s.decisionFor(ctx, tx, tenantID, max, true)
			return err
		}

		// Lapsed window: restart it with this request as the first slot.
		reset, err := tx.NewUpdate().
			Model((*rateLimitEntryRecord)(nil)).
			Set("request_count = 1").
			Set("window_reset_at = ?", resetAt).
			Set("updated_at = ?", now).
			Where("tenant_id = ?", tenantID).
			Where("window_reset_at <= ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := reset.RowsAffected(); err != nil {
			return err
		} else if n == 1 {
			decision = ratelimit.Decision{Allowed: true, Remaining: max - 1, ResetAt: resetAt}
			return nil
		}

		// First request for this tenant.
		record := &rateLimitEntryRecord{
			ID:            uuid.NewString(),
			TenantID:      tenantID,
			RequestCount:  1,
			WindowResetAt: resetAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		inserted, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (tenant_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := inserted.RowsAffected(); err != nil {
			return err
		} else if n == 1 {
			decision = ratelimit.Decision{Allowed: true, Remaining: max - 1, ResetAt: resetAt}
			return nil
		}

		// A concurrent request created the window; try its remaining slots.
		taken, err = s.takeSlot(ctx, tx, tenantID, max, now)
		if err != nil {
			return err
		}
		decision, err = s.decisionFor(ctx, tx, tenantID, max, taken)
		return err
	})
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return decision, nil
}

func (s *RateLimitStateStore) takeSlot(ctx context.Context, tx bun.Tx, tenantID string, max int, now time.Time) (bool, error) {
	result, err := tx.NewUpdate().
		Model((*rateLimitEntryRecord)(nil)).
		Set("request_count = request_count + 1").
		Set("updated_at = ?", now).
		Where("tenant_id = ?", tenantID).
		Where("window_reset_at > ?", now).
		Where("request_count < ?", max).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *RateLimitStateStore) decisionFor(ctx context.Context, tx bun.Tx, tenantID string, max int, allowed bool) (ratelimit.Decision, error) {
	record := &rateLimitEntryRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	remaining := max - record.RequestCount
	if remaining < 0 || !allowed {
		remaining = 0
	}
	return ratelimit.Decision{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   record.WindowResetAt.UTC(),
	}, nil
}

func (s *RateLimitStateStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: rate limit store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*rateLimitEntryRecord)(nil)).
		Where("window_reset_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *RateLimitStateStore) Size(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: rate limit store is not configured")
	}
	return s.db.NewSelect().
		Model((*rateLimitEntryRecord)(nil)).
		Count(ctx)
}
