// Package facebook lists a tenant's pages and completes page selection.
package facebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms"
)

const (
	listPath   = "/connect/facebook/pages"
	selectPath = "/connect/facebook/select"
)

type Config struct {
	Client core.ConnectorClient
}

type Platform struct {
	client core.ConnectorClient
}

func New(cfg Config) (*Platform, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("facebook: connector client is required")
	}
	return &Platform{client: cfg.Client}, nil
}

func (p *Platform) ID() string {
	return core.PlatformFacebook
}

func (p *Platform) ListEntities(ctx context.Context, tokens core.EntityTokens) ([]core.Entity, error) {
	if strings.TrimSpace(tokens.TempToken) == "" {
		return nil, platforms.MissingTokenError("tempToken")
	}

	payload, err := p.client.Get(ctx, listPath, map[string]string{
		"tempToken": strings.TrimSpace(tokens.TempToken),
	})
	if err != nil {
		return nil, fmt.Errorf("facebook: list pages: %w", err)
	}

	items := platforms.Items(payload, "pages")
	entities := make([]core.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, core.Entity{
			ID:      platforms.ReadString(item, "id"),
			Name:    platforms.ReadString(item, "name"),
			Picture: platforms.PictureURL(item["picture"]),
		})
	}
	return entities, nil
}

func (p *Platform) SelectEntity(ctx context.Context, sel core.EntitySelection) error {
	if strings.TrimSpace(sel.TempToken) == "" {
		return platforms.MissingTokenError("tempToken")
	}
	if strings.TrimSpace(sel.EntityID) == "" {
		return platforms.MissingTokenError("pageId")
	}

	if _, err := p.client.Post(ctx, selectPath, map[string]any{
		"profileId": strings.TrimSpace(sel.ProfileID),
		"pageId":    strings.TrimSpace(sel.EntityID),
		"tempToken": strings.TrimSpace(sel.TempToken),
	}); err != nil {
		return fmt.Errorf("facebook: select page: %w", err)
	}
	return nil
}

var _ core.Platform = (*Platform)(nil)
