package connect

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/core"
)

// State is the callback classification outcome.
type State string

const (
	StateSuccess           State = "success"
	StateError             State = "error"
	StateAwaitingSelection State = "awaiting_entity_selection"
	// StateIgnored covers unrecognized callbacks: a soft failure that lands
	// on the accounts screen with no parameters.
	StateIgnored State = "ignored"
)

// Query parameter names on the inbound redirect. connect_token arrives in
// snake case from the upstream and is normalized here.
const (
	paramError         = "error"
	paramConnected     = "connected"
	paramStep          = "step"
	paramPlatform      = "platform"
	paramTempToken     = "tempToken"
	paramConnectToken  = "connect_token"
	paramPendingData   = "pendingDataToken"
	paramUserProfile   = "userProfile"
	paramOrganizations = "organizations"

	// ParamConnectionID carries the attempt handle on the outbound redirect
	// and on subsequent listing and selection calls.
	ParamConnectionID = "connection_id"
)

// Outcome is the routed callback: the terminal (or intermediate) state and
// the browser redirect that expresses it.
type Outcome struct {
	State        State
	RedirectURL  string
	ConnectionID string
}

// CallbackRouter classifies inbound OAuth redirects and, for flows that need
// entity selection, parks the attempt behind an opaque handle.
type CallbackRouter struct {
	runtime  *core.Runtime
	attempts core.AttemptStore
	logger   core.Logger
}

func NewCallbackRouter(runtime *core.Runtime) (*CallbackRouter, error) {
	if runtime == nil || runtime.AttemptStore() == nil {
		return nil, goerrors.New("connect: attempt store is required", goerrors.CategoryInternal)
	}
	return &CallbackRouter{
		runtime:  runtime,
		attempts: runtime.AttemptStore(),
		logger:   glog.Ensure(runtime.Logger()),
	}, nil
}

// Route applies the classification precedence: explicit error, terminal
// success, selection step, then the unrecognized soft failure. Each hop is
// one-shot; a failed chain restarts from authorize-URL issuance.
func (r *CallbackRouter) Route(ctx context.Context, query url.Values) (Outcome, error) {
	startedAt := time.Now()
	outcome, err := r.route(ctx, query)
	r.runtime.ObserveOperation(ctx, startedAt, "callback", err, map[string]any{
		"platform": core.NormalizePlatformID(query.Get(paramPlatform)),
		"state":    string(outcome.State),
	})
	return outcome, err
}

func (r *CallbackRouter) route(ctx context.Context, query url.Values) (Outcome, error) {
	accountsURL := r.runtime.Config().AccountsURL

	if reason := strings.TrimSpace(query.Get(paramError)); reason != "" {
		return Outcome{
			State:       StateError,
			RedirectURL: redirectWith(accountsURL, url.Values{paramError: []string{reason}}),
		}, nil
	}

	if label := strings.TrimSpace(query.Get(paramConnected)); label != "" {
		return Outcome{
			State:       StateSuccess,
			RedirectURL: redirectWith(accountsURL, url.Values{paramConnected: []string{label}}),
		}, nil
	}

	step := strings.TrimSpace(query.Get(paramStep))
	platform := core.NormalizePlatformID(query.Get(paramPlatform))
	if step != "" && platform != "" {
		return r.routeSelectionStep(ctx, accountsURL, step, platform, query)
	}

	r.logger.Debug("unrecognized oauth callback", "query_keys", queryKeys(query))
	return Outcome{State: StateIgnored, RedirectURL: accountsURL}, nil
}

func (r *CallbackRouter) routeSelectionStep(ctx context.Context, accountsURL, step, platform string, query url.Values) (Outcome, error) {
	attempt := core.ConnectionAttempt{
		Platform:         platform,
		StepType:         step,
		TempToken:        strings.TrimSpace(query.Get(paramTempToken)),
		ConnectToken:     strings.TrimSpace(query.Get(paramConnectToken)),
		PendingDataToken: strings.TrimSpace(query.Get(paramPendingData)),
		UserProfile:      strings.TrimSpace(query.Get(paramUserProfile)),
	}

	if raw := strings.TrimSpace(query.Get(paramOrganizations)); raw != "" {
		if entities, ok := ParseInlineEntities(raw); ok {
			attempt.InlineEntities = entities
		} else {
			// Both decode attempts failed; the listing step falls back to an
			// upstream fetch.
			r.logger.Warn("inline entity payload is undecodable",
				"platform", platform,
			)
		}
	}

	handle, err := r.attempts.Save(ctx, attempt)
	if err != nil {
		return Outcome{}, goerrors.Wrap(err, goerrors.CategoryInternal, "connect: park attempt")
	}

	return Outcome{
		State:        StateAwaitingSelection,
		ConnectionID: handle,
		RedirectURL: redirectWith(accountsURL, url.Values{
			paramStep:         []string{step},
			paramPlatform:     []string{platform},
			ParamConnectionID: []string{handle},
		}),
	}, nil
}

// ParseInlineEntities decodes an entity array carried directly in a redirect
// parameter. The surrounding redirect layer may or may not have already
// URL-decoded the value once, so two attempts run: unescape-then-parse, then
// parse on the raw string. A false return means neither form held JSON.
func ParseInlineEntities(raw string) ([]core.Entity, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		if entities, ok := decodeEntityArray(unescaped); ok {
			return entities, true
		}
	}
	return decodeEntityArray(raw)
}

func decodeEntityArray(payload string) ([]core.Entity, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, false
	}
	var entities []core.Entity
	if err := json.Unmarshal([]byte(payload), &entities); err != nil {
		return nil, false
	}
	return entities, true
}

func redirectWith(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	separator := "?"
	if strings.Contains(base, "?") {
		separator = "&"
	}
	return base + separator + params.Encode()
}

func queryKeys(query url.Values) []string {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	return keys
}
