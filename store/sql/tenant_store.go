package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/schedulehq/go-connect/core"
)

// TenantStore is the persisted tenant collaborator. Key issuance is
// serialized per tenant by a conditional write: the hash column must still be
// empty at commit time.
type TenantStore struct {
	db   *bun.DB
	repo repository.Repository[*tenantRecord]
}

func NewTenantStore(db *bun.DB) (*TenantStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*tenantRecord](db, tenantHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid tenant repository wiring: %w", err)
		}
	}
	return &TenantStore{db: db, repo: repo}, nil
}

// CreateTenantInput seeds a tenant at signup completion.
type CreateTenantInput struct {
	Email                string
	SubscriptionStatus   core.SubscriptionStatus
	PrimaryProfileID     string
	AccessibleProfileIDs []string
	IsAdmin              bool
}

func (s *TenantStore) Create(ctx context.Context, in CreateTenantInput) (core.Tenant, error) {
	if s == nil || s.repo == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant email is required")
	}
	status := in.SubscriptionStatus
	if strings.TrimSpace(string(status)) == "" {
		status = core.SubscriptionStatusInactive
	}

	if existing, err := s.findByEmail(ctx, email); err == nil && existing != nil {
		return core.Tenant{}, duplicateEmailError(email)
	}

	now := time.Now().UTC()
	record := &tenantRecord{
		ID:                   uuid.NewString(),
		Email:                email,
		SubscriptionStatus:   string(status),
		PrimaryProfileID:     strings.TrimSpace(in.PrimaryProfileID),
		AccessibleProfileIDs: normalizeProfileIDs(in.AccessibleProfileIDs),
		IsAdmin:              in.IsAdmin,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Tenant{}, err
	}
	return created.toDomain(), nil
}

func (s *TenantStore) GetByID(ctx context.Context, id string) (core.Tenant, error) {
	if s == nil || s.db == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Tenant{}, tenantNotFoundError()
	}

	record := &tenantRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Tenant{}, tenantNotFoundError()
		}
		return core.Tenant{}, err
	}
	return record.toDomain(), nil
}

func (s *TenantStore) GetByEmail(ctx context.Context, email string) (core.Tenant, error) {
	if s == nil || s.db == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	record, err := s.findByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return core.Tenant{}, err
	}
	if record == nil {
		return core.Tenant{}, tenantNotFoundError()
	}
	return record.toDomain(), nil
}

func (s *TenantStore) GetByAPIKeyHash(ctx context.Context, hash string) (core.Tenant, error) {
	if s == nil || s.db == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return core.Tenant{}, tenantNotFoundError()
	}

	record := &tenantRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.api_key_hash = ?", hash).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Tenant{}, tenantNotFoundError()
		}
		return core.Tenant{}, err
	}
	return record.toDomain(), nil
}

func (s *TenantStore) Update(ctx context.Context, id string, update core.TenantUpdate) (core.Tenant, error) {
	if s == nil || s.db == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	id = strings.TrimSpace(id)

	var updated core.Tenant
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findTenantTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return tenantNotFoundError()
		}

		if update.Email != nil {
			record.Email = strings.TrimSpace(strings.ToLower(*update.Email))
		}
		if update.SubscriptionStatus != nil {
			record.SubscriptionStatus = string(*update.SubscriptionStatus)
		}
		if update.ClearPeriodEnd {
			record.CurrentPeriodEnd = nil
		} else if update.CurrentPeriodEnd != nil {
			record.CurrentPeriodEnd = copyTimePointer(update.CurrentPeriodEnd)
		}
		if update.PrimaryProfileID != nil {
			record.PrimaryProfileID = strings.TrimSpace(*update.PrimaryProfileID)
		}
		if update.AccessibleProfileIDs != nil {
			record.AccessibleProfileIDs = normalizeProfileIDs(*update.AccessibleProfileIDs)
		}
		if update.IsAdmin != nil {
			record.IsAdmin = *update.IsAdmin
		}
		record.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx); err != nil {
			return err
		}
		updated = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Tenant{}, err
	}
	return updated, nil
}

func (s *TenantStore) SetAPIKey(ctx context.Context, id string, hash string, createdAt time.Time) (core.Tenant, error) {
	if s == nil || s.db == nil {
		return core.Tenant{}, fmt.Errorf("sqlstore: tenant store is not configured")
	}
	id = strings.TrimSpace(id)
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return core.Tenant{}, fmt.Errorf("sqlstore: api key hash is required")
	}
	issuedAt := createdAt.UTC()

	var updated core.Tenant
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findTenantTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return tenantNotFoundError()
		}
		if record.APIKeyHash != nil && strings.TrimSpace(*record.APIKeyHash) != "" {
			return liveKeyConflictError(id)
		}

		record.APIKeyHash = &hash
		record.APIKeyCreatedAt = &issuedAt
		record.UpdatedAt = time.Now().UTC()

		// Conditional write: a concurrent issuance that committed first makes
		// this update match zero rows.
		result, err := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Where("api_key_hash IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return liveKeyConflictError(id)
		}
		updated = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Tenant{}, err
	}
	return updated, nil
}

func (s *TenantStore) ClearAPIKey(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: tenant store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*tenantRecord)(nil)).
		Set("api_key_hash = NULL").
		Set("api_key_created_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (s *TenantStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: tenant store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*tenantRecord)(nil)).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func (s *TenantStore) findByEmail(ctx context.Context, email string) (*tenantRecord, error) {
	if email == "" {
		return nil, nil
	}
	record := &tenantRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", email).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func findTenantTx(ctx context.Context, tx bun.Tx, id string) (*tenantRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	record := &tenantRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func normalizeProfileIDs(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func tenantNotFoundError() *goerrors.Error {
	return goerrors.New("sqlstore: tenant not found", goerrors.CategoryNotFound).
		WithTextCode(core.ConnectErrorNotFound).
		WithCode(http.StatusNotFound)
}

func liveKeyConflictError(id string) *goerrors.Error {
	return goerrors.New("sqlstore: tenant already has a live api key", goerrors.CategoryConflict).
		WithTextCode(core.ConnectErrorConflict).
		WithCode(http.StatusConflict).
		WithMetadata(map[string]any{"tenant_id": id})
}

func duplicateEmailError(email string) *goerrors.Error {
	return goerrors.New("sqlstore: tenant email already registered", goerrors.CategoryConflict).
		WithTextCode(core.ConnectErrorConflict).
		WithCode(http.StatusConflict).
		WithMetadata(map[string]any{"email": email})
}
