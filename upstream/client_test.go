package upstream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/schedulehq/go-connect/core"
)

type stubDoer struct {
	requests []*http.Request
	status   int
	body     string
	err      error
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     http.Header{},
	}, nil
}

func newTestClient(t *testing.T, doer *stubDoer) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:      "https://connector.internal/",
		ServiceToken: "svc-token",
		HTTPClient:   doer,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestConnectURLBuildsHeadlessRequest(t *testing.T) {
	doer := &stubDoer{body: `{"url":"https://platform.example/authorize?state=abc"}`}
	client := newTestClient(t, doer)

	url, err := client.ConnectURL(context.Background(), connectRequest())
	if err != nil {
		t.Fatalf("connect url: %v", err)
	}
	if url != "https://platform.example/authorize?state=abc" {
		t.Fatalf("unexpected url %q", url)
	}

	if len(doer.requests) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(doer.requests))
	}
	req := doer.requests[0]
	if req.URL.Path != "/connect/facebook" {
		t.Fatalf("unexpected path %q", req.URL.Path)
	}
	query := req.URL.Query()
	if query.Get("headless") != "true" {
		t.Fatalf("expected headless=true, got %q", query.Get("headless"))
	}
	if query.Get("profileId") != "profile_1" {
		t.Fatalf("expected profile id, got %q", query.Get("profileId"))
	}
	if query.Get("redirectUrl") != "https://app.example/accounts" {
		t.Fatalf("expected redirect url, got %q", query.Get("redirectUrl"))
	}
	if req.Header.Get("Authorization") != "Bearer svc-token" {
		t.Fatalf("expected service token header, got %q", req.Header.Get("Authorization"))
	}
}

func TestConnectURLRequiresURLInResponse(t *testing.T) {
	client := newTestClient(t, &stubDoer{body: `{}`})
	if _, err := client.ConnectURL(context.Background(), connectRequest()); err == nil {
		t.Fatalf("expected error for missing url")
	}
}

func TestPendingOAuthDataParsesOrganizations(t *testing.T) {
	doer := &stubDoer{body: `{"tempToken":"tmp_1","organizations":[{"id":"org_1"},"org_2",{"name":"no id"}]}`}
	client := newTestClient(t, doer)

	data, err := client.PendingOAuthData(context.Background(), "pending_1")
	if err != nil {
		t.Fatalf("pending data: %v", err)
	}
	if data.TempToken != "tmp_1" {
		t.Fatalf("unexpected temp token %q", data.TempToken)
	}
	if len(data.OrganizationIDs) != 2 || data.OrganizationIDs[0] != "org_1" || data.OrganizationIDs[1] != "org_2" {
		t.Fatalf("unexpected organizations %v", data.OrganizationIDs)
	}
	if got := doer.requests[0].URL.Query().Get("token"); got != "pending_1" {
		t.Fatalf("expected token query, got %q", got)
	}
}

func TestPendingOAuthDataRequiresTempToken(t *testing.T) {
	client := newTestClient(t, &stubDoer{body: `{"organizations":[]}`})
	if _, err := client.PendingOAuthData(context.Background(), "pending_1"); err == nil {
		t.Fatalf("expected error for missing temp token")
	}
}

func TestDoJSONRejectsNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, &stubDoer{status: http.StatusBadGateway, body: `{"error":"boom"}`})
	_, err := client.Get(context.Background(), "/connect/facebook/pages", nil)
	if err == nil {
		t.Fatalf("expected status error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	doer := &stubDoer{body: `{"success":true}`}
	client := newTestClient(t, doer)

	payload, err := client.Post(context.Background(), "connect/facebook/select", map[string]any{
		"pageId": "page_1",
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if success, _ := payload["success"].(bool); !success {
		t.Fatalf("expected success payload, got %v", payload)
	}

	req := doer.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("unexpected method %s", req.Method)
	}
	if req.URL.Path != "/connect/facebook/select" {
		t.Fatalf("unexpected path %q", req.URL.Path)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected json content type, got %q", req.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(req.Body)
	if !strings.Contains(string(body), `"pageId":"page_1"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}

func connectRequest() core.ConnectURLRequest {
	return core.ConnectURLRequest{
		Platform:    "facebook",
		ProfileID:   "profile_1",
		RedirectURL: "https://app.example/accounts",
		Headless:    true,
	}
}
