// Package upstream is the HTTP client for the connector service that fronts
// the social platforms: authorize-URL issuance, pending OAuth data lookup,
// and the raw per-platform listing and selection calls the platform packages
// drive.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/schedulehq/go-connect/core"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL        string
	ServiceToken   string
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
	Logger         core.Logger
}

type Client struct {
	baseURL        string
	serviceToken   string
	httpClient     HTTPDoer
	requestTimeout time.Duration
	logger         core.Logger
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("upstream: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:        baseURL,
		serviceToken:   strings.TrimSpace(cfg.ServiceToken),
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		logger:         glog.Ensure(cfg.Logger),
	}, nil
}

func (c *Client) ConnectURL(ctx context.Context, req core.ConnectURLRequest) (string, error) {
	platform := core.NormalizePlatformID(req.Platform)
	if platform == "" {
		return "", fmt.Errorf("upstream: platform is required")
	}
	if strings.TrimSpace(req.ProfileID) == "" {
		return "", fmt.Errorf("upstream: profile id is required")
	}

	query := map[string]string{
		"profileId": strings.TrimSpace(req.ProfileID),
	}
	if req.Headless {
		query["headless"] = "true"
	}
	if redirect := strings.TrimSpace(req.RedirectURL); redirect != "" {
		query["redirectUrl"] = redirect
	}

	payload, err := c.Get(ctx, "/connect/"+platform, query)
	if err != nil {
		return "", err
	}
	connectURL := readString(payload["url"])
	if connectURL == "" {
		return "", fmt.Errorf("upstream: connect response for %s carries no url", platform)
	}
	return connectURL, nil
}

func (c *Client) PendingOAuthData(ctx context.Context, token string) (core.PendingOAuthData, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.PendingOAuthData{}, fmt.Errorf("upstream: pending data token is required")
	}

	payload, err := c.Get(ctx, "/oauth/pending", map[string]string{"token": token})
	if err != nil {
		return core.PendingOAuthData{}, err
	}

	data := core.PendingOAuthData{
		TempToken:       readString(payload["tempToken"]),
		OrganizationIDs: readIDList(payload["organizations"]),
	}
	if data.TempToken == "" {
		return core.PendingOAuthData{}, fmt.Errorf("upstream: pending data resolution returned no temp token")
	}
	return data, nil
}

func (c *Client) Get(ctx context.Context, path string, query map[string]string) (map[string]any, error) {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			if strings.TrimSpace(key) == "" {
				continue
			}
			values.Set(key, value)
		}
		endpoint += "?" + values.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	return c.doJSON(ctx, http.MethodPost, endpoint, reader)
}

func (c *Client) endpoint(path string) (string, error) {
	if c == nil || c.httpClient == nil {
		return "", fmt.Errorf("upstream: client is not configured")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("upstream: request path is required")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}

func (c *Client) doJSON(ctx context.Context, method string, endpoint string, body io.Reader) (map[string]any, error) {
	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: connector call failed: %w", err)
	}
	defer res.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("upstream: read connector response: %w", readErr)
	}
	if int64(len(raw)) > maxResponseBytes {
		return nil, fmt.Errorf("upstream: connector response exceeds %d bytes", maxResponseBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		if c.logger != nil {
			c.logger.Warn("connector call rejected",
				"method", method,
				"status", res.StatusCode,
			)
		}
		return nil, fmt.Errorf("upstream: connector returned status %d", res.StatusCode)
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("upstream: decode connector response: %w", err)
	}
	return payload, nil
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}

// readIDList accepts either plain id strings or objects carrying an id field.
func readIDList(value any) []string {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				out = append(out, trimmed)
			}
		case map[string]any:
			if id := readString(typed["id"]); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

var _ core.ConnectorClient = (*Client)(nil)
