// Package googlebusiness lists a tenant's business locations and completes
// location selection.
package googlebusiness

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms"
)

const (
	listPath   = "/connect/googlebusiness/locations"
	selectPath = "/connect/googlebusiness/select"
)

type Config struct {
	Client core.ConnectorClient
}

type Platform struct {
	client core.ConnectorClient
}

func New(cfg Config) (*Platform, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("googlebusiness: connector client is required")
	}
	return &Platform{client: cfg.Client}, nil
}

func (p *Platform) ID() string {
	return core.PlatformGoogleBusiness
}

func (p *Platform) ListEntities(ctx context.Context, tokens core.EntityTokens) ([]core.Entity, error) {
	if strings.TrimSpace(tokens.TempToken) == "" {
		return nil, platforms.MissingTokenError("tempToken")
	}

	payload, err := p.client.Get(ctx, listPath, map[string]string{
		"tempToken": strings.TrimSpace(tokens.TempToken),
	})
	if err != nil {
		return nil, fmt.Errorf("googlebusiness: list locations: %w", err)
	}

	items := platforms.Items(payload, "locations")
	entities := make([]core.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, core.Entity{
			ID:      platforms.ReadString(item, "id", "name"),
			Name:    platforms.ReadString(item, "title", "locationName"),
			Address: readAddress(item),
		})
	}
	return entities, nil
}

func (p *Platform) SelectEntity(ctx context.Context, sel core.EntitySelection) error {
	if strings.TrimSpace(sel.TempToken) == "" {
		return platforms.MissingTokenError("tempToken")
	}
	if strings.TrimSpace(sel.EntityID) == "" {
		return platforms.MissingTokenError("locationId")
	}

	if _, err := p.client.Post(ctx, selectPath, map[string]any{
		"profileId":  strings.TrimSpace(sel.ProfileID),
		"locationId": strings.TrimSpace(sel.EntityID),
		"tempToken":  strings.TrimSpace(sel.TempToken),
	}); err != nil {
		return fmt.Errorf("googlebusiness: select location: %w", err)
	}
	return nil
}

// readAddress flattens either a plain address string or the structured
// storefront form into a single display line.
func readAddress(item map[string]any) string {
	if address := platforms.ReadString(item, "address"); address != "" {
		return address
	}
	structured, ok := item["storefrontAddress"].(map[string]any)
	if !ok {
		return ""
	}
	parts := []string{}
	if lines, ok := structured["addressLines"].([]any); ok {
		for _, line := range lines {
			if text, ok := line.(string); ok && strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
	}
	if locality := platforms.ReadString(structured, "locality"); locality != "" {
		parts = append(parts, locality)
	}
	return strings.Join(parts, ", ")
}

var _ core.Platform = (*Platform)(nil)
