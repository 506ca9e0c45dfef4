package connect

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/core"
)

// SelectionRequest finalizes one account link. UserProfile accepts either a
// parsed object or the stringified blob the redirect chain carried.
type SelectionRequest struct {
	ConnectionID string
	Platform     string
	ProfileID    string
	EntityID     string
	TempToken    string
	UserProfile  any
}

// SelectionCompleter dispatches the chosen entity to the platform's select
// operation and retires the parked attempt on success.
type SelectionCompleter struct {
	runtime  *core.Runtime
	attempts core.AttemptStore
	registry *core.PlatformRegistry
	logger   core.Logger
}

func NewSelectionCompleter(runtime *core.Runtime) (*SelectionCompleter, error) {
	if runtime == nil || runtime.AttemptStore() == nil {
		return nil, goerrors.New("connect: attempt store is required", goerrors.CategoryInternal)
	}
	return &SelectionCompleter{
		runtime:  runtime,
		attempts: runtime.AttemptStore(),
		registry: runtime.Registry(),
		logger:   glog.Ensure(runtime.Logger()),
	}, nil
}

func (c *SelectionCompleter) Complete(ctx context.Context, req SelectionRequest) error {
	startedAt := time.Now()
	err := c.complete(ctx, req)
	c.runtime.ObserveOperation(ctx, startedAt, "select_entity", err, map[string]any{
		"platform":   core.NormalizePlatformID(req.Platform),
		"profile_id": req.ProfileID,
	})
	return err
}

func (c *SelectionCompleter) complete(ctx context.Context, req SelectionRequest) error {
	if strings.TrimSpace(req.EntityID) == "" {
		return goerrors.NewValidation("connect: entity id is required",
			goerrors.FieldError{Field: "entityId", Message: "required"})
	}
	if strings.TrimSpace(req.ProfileID) == "" {
		return goerrors.NewValidation("connect: profile id is required",
			goerrors.FieldError{Field: "profileId", Message: "required"})
	}

	platformID := core.NormalizePlatformID(req.Platform)
	tempToken := strings.TrimSpace(req.TempToken)
	userProfile := parseUserProfile(req.UserProfile)

	handle := strings.TrimSpace(req.ConnectionID)
	if handle != "" {
		attempt, err := c.attempts.Get(ctx, handle)
		if err != nil {
			return expiredAttemptError(err)
		}
		if platformID == "" {
			platformID = attempt.Platform
		}
		if tempToken == "" {
			tempToken = attempt.TempToken
		}
		if userProfile == nil {
			userProfile = parseUserProfile(attempt.UserProfile)
		}
	}

	platform, ok := c.registry.Get(platformID)
	if !ok {
		return unsupportedPlatformError(platformID)
	}

	if err := platform.SelectEntity(ctx, core.EntitySelection{
		ProfileID:   strings.TrimSpace(req.ProfileID),
		EntityID:    strings.TrimSpace(req.EntityID),
		TempToken:   tempToken,
		UserProfile: userProfile,
	}); err != nil {
		return wrapUpstream(platformID, err)
	}

	if handle != "" {
		if err := c.attempts.Delete(ctx, handle); err != nil {
			c.logger.Warn("retire attempt failed", "error", err)
		}
	}
	c.logger.Info("account link completed",
		"platform", platformID,
		"profile_id", req.ProfileID,
	)
	return nil
}

// parseUserProfile tolerates the blob arriving already parsed, as a JSON
// string, or not at all.
func parseUserProfile(value any) map[string]any {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return nil
		}
		return typed
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return nil
		}
		if len(parsed) == 0 {
			return nil
		}
		return parsed
	default:
		return nil
	}
}
