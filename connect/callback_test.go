package connect

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms/facebook"
	"github.com/schedulehq/go-connect/platforms/linkedin"
	"github.com/schedulehq/go-connect/platforms/platformtest"
)

func newConnectRuntime(t *testing.T, connector core.ConnectorClient) *core.Runtime {
	t.Helper()
	registry := core.NewPlatformRegistry()
	fb, err := facebook.New(facebook.Config{Client: connector})
	if err != nil {
		t.Fatalf("facebook platform: %v", err)
	}
	li, err := linkedin.New(linkedin.Config{Client: connector})
	if err != nil {
		t.Fatalf("linkedin platform: %v", err)
	}
	for _, platform := range []core.Platform{fb, li} {
		if err := registry.Register(platform); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	runtime, err := core.NewRuntime(core.DefaultConfig(),
		core.WithConnector(connector),
		core.WithPlatformRegistry(registry),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return runtime
}

func newRouter(t *testing.T, runtime *core.Runtime) *CallbackRouter {
	t.Helper()
	router, err := NewCallbackRouter(runtime)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router
}

func TestRouteErrorCallback(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{"error": []string{"access_denied"}})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome.State != StateError {
		t.Fatalf("unexpected state %s", outcome.State)
	}
	if outcome.RedirectURL != "/accounts?error=access_denied" {
		t.Fatalf("unexpected redirect %q", outcome.RedirectURL)
	}
}

func TestRouteConnectedCallback(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{"connected": []string{"twitter"}})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome.State != StateSuccess || outcome.RedirectURL != "/accounts?connected=twitter" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestRouteErrorBeatsConnected(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{
		"error":     []string{"denied"},
		"connected": []string{"twitter"},
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome.State != StateError {
		t.Fatalf("expected error precedence, got %s", outcome.State)
	}
}

func TestRouteUnrecognizedCallback(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{"foo": []string{"bar"}})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome.State != StateIgnored {
		t.Fatalf("unexpected state %s", outcome.State)
	}
	if outcome.RedirectURL != "/accounts" {
		t.Fatalf("expected bare accounts redirect, got %q", outcome.RedirectURL)
	}
}

func TestRouteSelectionStepParksAttempt(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{
		"step":          []string{"selectPage"},
		"platform":      []string{"facebook"},
		"tempToken":     []string{"tmp_1"},
		"connect_token": []string{"ct_1"},
		"userProfile":   []string{`{"name":"Ada"}`},
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if outcome.State != StateAwaitingSelection {
		t.Fatalf("unexpected state %s", outcome.State)
	}
	if outcome.ConnectionID == "" {
		t.Fatalf("expected a connection handle")
	}
	if !strings.Contains(outcome.RedirectURL, "connection_id="+outcome.ConnectionID) {
		t.Fatalf("expected handle in redirect, got %q", outcome.RedirectURL)
	}
	if !strings.Contains(outcome.RedirectURL, "step=selectPage") || !strings.Contains(outcome.RedirectURL, "platform=facebook") {
		t.Fatalf("expected step and platform in redirect, got %q", outcome.RedirectURL)
	}
	if strings.Contains(outcome.RedirectURL, "tempToken") {
		t.Fatalf("tokens must not leak into the redirect: %q", outcome.RedirectURL)
	}

	attempt, err := runtime.AttemptStore().Get(context.Background(), outcome.ConnectionID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.TempToken != "tmp_1" || attempt.ConnectToken != "ct_1" || attempt.Platform != "facebook" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestRouteSelectionStepParsesInlineEntities(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	inline := `[{"id":"org_1","name":"Acme"},{"id":"org_2","name":"Beta"}]`
	for name, raw := range map[string]string{
		"already decoded": inline,
		"encoded once":    url.QueryEscape(inline),
	} {
		outcome, err := router.Route(context.Background(), url.Values{
			"step":          []string{"selectOrganization"},
			"platform":      []string{"linkedin"},
			"connect_token": []string{"ct_1"},
			"organizations": []string{raw},
		})
		if err != nil {
			t.Fatalf("%s: route: %v", name, err)
		}
		attempt, err := runtime.AttemptStore().Get(context.Background(), outcome.ConnectionID)
		if err != nil {
			t.Fatalf("%s: load attempt: %v", name, err)
		}
		if len(attempt.InlineEntities) != 2 || attempt.InlineEntities[0].ID != "org_1" {
			t.Fatalf("%s: unexpected inline entities %v", name, attempt.InlineEntities)
		}
	}
}

func TestRouteSelectionStepToleratesUndecodableInline(t *testing.T) {
	runtime := newConnectRuntime(t, &platformtest.Connector{})
	router := newRouter(t, runtime)

	outcome, err := router.Route(context.Background(), url.Values{
		"step":          []string{"selectOrganization"},
		"platform":      []string{"linkedin"},
		"organizations": []string{"%%%not-json"},
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	attempt, err := runtime.AttemptStore().Get(context.Background(), outcome.ConnectionID)
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if len(attempt.InlineEntities) != 0 {
		t.Fatalf("expected no inline entities, got %v", attempt.InlineEntities)
	}
}

func TestParseInlineEntities(t *testing.T) {
	if _, ok := ParseInlineEntities(""); ok {
		t.Fatalf("empty input must not parse")
	}
	if _, ok := ParseInlineEntities("{not an array}"); ok {
		t.Fatalf("non-array input must not parse")
	}
	entities, ok := ParseInlineEntities(`[{"id":"a","name":"A"}]`)
	if !ok || len(entities) != 1 || entities[0].ID != "a" {
		t.Fatalf("unexpected parse result %v %v", entities, ok)
	}
}
