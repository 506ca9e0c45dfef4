package connect

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/core"
)

// EntityRequest identifies an in-flight attempt either by its parked handle
// or by the raw token form carried directly on the query string.
type EntityRequest struct {
	ConnectionID     string
	Platform         string
	StepType         string
	TempToken        string
	ConnectToken     string
	PendingDataToken string
	Organizations    string
}

// EntityResolver produces the normalized candidate list the user picks from.
type EntityResolver struct {
	runtime   *core.Runtime
	attempts  core.AttemptStore
	registry  *core.PlatformRegistry
	connector core.ConnectorClient
}

func NewEntityResolver(runtime *core.Runtime) (*EntityResolver, error) {
	connector, err := runtime.RequireConnector()
	if err != nil {
		return nil, err
	}
	if runtime.AttemptStore() == nil {
		return nil, goerrors.New("connect: attempt store is required", goerrors.CategoryInternal)
	}
	return &EntityResolver{
		runtime:   runtime,
		attempts:  runtime.AttemptStore(),
		registry:  runtime.Registry(),
		connector: connector,
	}, nil
}

func (r *EntityResolver) Resolve(ctx context.Context, req EntityRequest) ([]core.Entity, error) {
	startedAt := time.Now()
	entities, err := r.resolve(ctx, req)
	r.runtime.ObserveOperation(ctx, startedAt, "list_entities", err, map[string]any{
		"platform": core.NormalizePlatformID(req.Platform),
	})
	return entities, err
}

func (r *EntityResolver) resolve(ctx context.Context, req EntityRequest) ([]core.Entity, error) {
	attempt, err := r.loadAttempt(ctx, req)
	if err != nil {
		return nil, err
	}

	platform, ok := r.registry.Get(attempt.Platform)
	if !ok {
		return nil, unsupportedPlatformError(attempt.Platform)
	}

	tokens := core.EntityTokens{
		TempToken:       attempt.TempToken,
		ConnectToken:    attempt.ConnectToken,
		OrganizationIDs: attempt.Organizations,
	}

	// Pending-data indirection runs before any listing: a subset of
	// platforms only hand out the real temp token through this lookup.
	if token := strings.TrimSpace(attempt.PendingDataToken); token != "" {
		pending, err := r.connector.PendingOAuthData(ctx, token)
		if err != nil {
			return nil, upstreamError(attempt.Platform, err)
		}
		tokens.TempToken = pending.TempToken
		if len(pending.OrganizationIDs) > 0 {
			tokens.OrganizationIDs = pending.OrganizationIDs
		}
	}

	entities := attempt.InlineEntities
	if len(entities) == 0 {
		entities, err = platform.ListEntities(ctx, tokens)
		if err != nil {
			return nil, wrapUpstream(attempt.Platform, err)
		}
	}

	entities = core.DedupEntities(entities)

	if provider, ok := platform.(core.SyntheticEntityProvider); ok {
		entities = prependSynthetic(provider.SyntheticEntity(), entities)
	}
	return entities, nil
}

// loadAttempt reconstructs the attempt from the parked handle when present,
// falling back to the raw token form.
func (r *EntityResolver) loadAttempt(ctx context.Context, req EntityRequest) (core.ConnectionAttempt, error) {
	if handle := strings.TrimSpace(req.ConnectionID); handle != "" {
		attempt, err := r.attempts.Get(ctx, handle)
		if err != nil {
			return core.ConnectionAttempt{}, expiredAttemptError(err)
		}
		return attempt, nil
	}

	platform := core.NormalizePlatformID(req.Platform)
	if platform == "" {
		return core.ConnectionAttempt{}, goerrors.NewValidation("connect: platform is required",
			goerrors.FieldError{Field: "platform", Message: "required"})
	}

	attempt := core.ConnectionAttempt{
		Platform:         platform,
		StepType:         strings.TrimSpace(req.StepType),
		TempToken:        strings.TrimSpace(req.TempToken),
		ConnectToken:     strings.TrimSpace(req.ConnectToken),
		PendingDataToken: strings.TrimSpace(req.PendingDataToken),
	}
	if attempt.StepType == "" {
		attempt.StepType = "select"
	}
	if raw := strings.TrimSpace(req.Organizations); raw != "" {
		if entities, ok := ParseInlineEntities(raw); ok {
			attempt.InlineEntities = entities
		}
	}
	return attempt, nil
}

// prependSynthetic puts the fixed entry first, exactly once, regardless of
// whether the raw listing already contained it.
func prependSynthetic(synthetic core.Entity, entities []core.Entity) []core.Entity {
	out := make([]core.Entity, 0, len(entities)+1)
	out = append(out, synthetic)
	for _, entity := range entities {
		if entity.ID == synthetic.ID {
			continue
		}
		out = append(out, entity)
	}
	return out
}

func expiredAttemptError(cause error) *goerrors.Error {
	return goerrors.Wrap(
		cause,
		goerrors.CategoryBadInput,
		"connect: connection attempt is unknown or expired",
	).
		WithTextCode(core.ConnectErrorBadInput).
		WithCode(http.StatusBadRequest)
}
