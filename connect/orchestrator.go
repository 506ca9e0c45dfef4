// Package connect drives the account-linking flow: authorize-URL issuance,
// callback classification, entity listing, and selection completion. The
// multi-hop browser chain is correlated by an opaque connection handle held
// in the attempt store rather than by token sprawl in redirect URLs.
package connect

import (
	"context"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/core"
)

// Orchestrator requests upstream authorize URLs. Stateless: nothing is
// recorded until the callback returns.
type Orchestrator struct {
	runtime   *core.Runtime
	connector core.ConnectorClient
	registry  *core.PlatformRegistry
}

func NewOrchestrator(runtime *core.Runtime) (*Orchestrator, error) {
	connector, err := runtime.RequireConnector()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		runtime:   runtime,
		connector: connector,
		registry:  runtime.Registry(),
	}, nil
}

// ConnectURL returns the upstream authorize URL for the platform. Headless is
// always requested so the upstream hands the URL back instead of redirecting
// server side.
func (o *Orchestrator) ConnectURL(ctx context.Context, platform string, profileID string, redirectURL string) (string, error) {
	startedAt := time.Now()
	url, err := o.connectURL(ctx, platform, profileID, redirectURL)
	o.runtime.ObserveOperation(ctx, startedAt, "connect_url", err, map[string]any{
		"platform":   core.NormalizePlatformID(platform),
		"profile_id": profileID,
	})
	return url, err
}

func (o *Orchestrator) connectURL(ctx context.Context, platform string, profileID string, redirectURL string) (string, error) {
	if o == nil || o.connector == nil {
		return "", goerrors.New("connect: orchestrator is not configured", goerrors.CategoryInternal)
	}
	normalized := core.NormalizePlatformID(platform)
	if _, ok := o.registry.Get(normalized); !ok {
		return "", unsupportedPlatformError(platform)
	}

	url, err := o.connector.ConnectURL(ctx, core.ConnectURLRequest{
		Platform:    normalized,
		ProfileID:   profileID,
		RedirectURL: redirectURL,
		Headless:    true,
	})
	if err != nil {
		return "", upstreamError(normalized, err)
	}
	return url, nil
}

func unsupportedPlatformError(platform string) *goerrors.Error {
	return goerrors.New(
		"connect: platform "+core.NormalizePlatformID(platform)+" is not supported",
		goerrors.CategoryBadInput,
	).
		WithTextCode(core.ConnectErrorPlatformUnsupported).
		WithCode(http.StatusBadRequest)
}

// upstreamError hides the upstream payload behind a generic failure that
// names the platform.
func upstreamError(platform string, cause error) *goerrors.Error {
	return goerrors.Wrap(
		cause,
		goerrors.CategoryExternal,
		"connect: upstream call for "+platform+" failed",
	).
		WithTextCode(core.ConnectErrorUpstreamFailed).
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{"platform": platform})
}

// wrapUpstream classifies a platform operation failure. Errors the platform
// already categorized (missing tokens and the like) pass through untouched;
// anything else is an upstream call failure carrying the platform name.
func wrapUpstream(platform string, err error) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}
	return upstreamError(platform, err)
}
