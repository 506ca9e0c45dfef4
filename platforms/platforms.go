// Package platforms holds the shared plumbing for the per-platform account
// listing and selection implementations, plus the default registration
// wiring. Each platform lives in its own subpackage; this package only owns
// what every branch needs.
package platforms

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/core"
)

// MissingTokenError rejects a listing or selection before any upstream call
// when a required ephemeral token is absent. A client error, not a server
// fault.
func MissingTokenError(token string) *goerrors.Error {
	return goerrors.New("Missing "+strings.TrimSpace(token), goerrors.CategoryBadInput).
		WithTextCode(core.ConnectErrorBadInput).
		WithCode(http.StatusBadRequest)
}

// Items pulls the named array out of an upstream payload, keeping only object
// entries.
func Items(payload map[string]any, key string) []map[string]any {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}

// ReadString returns the first non-empty string under any of the given keys.
func ReadString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// PictureURL accepts the picture shapes the upstream emits: a plain URL
// string, {url}, or the nested {data:{url}} form.
func PictureURL(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		if url := ReadString(typed, "url"); url != "" {
			return url
		}
		if data, ok := typed["data"].(map[string]any); ok {
			return ReadString(data, "url")
		}
	}
	return ""
}
