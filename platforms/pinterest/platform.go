// Package pinterest lists a tenant's boards and completes board selection.
package pinterest

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms"
)

const (
	listPath   = "/connect/pinterest/boards"
	selectPath = "/connect/pinterest/select"
)

type Config struct {
	Client core.ConnectorClient
}

type Platform struct {
	client core.ConnectorClient
}

func New(cfg Config) (*Platform, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("pinterest: connector client is required")
	}
	return &Platform{client: cfg.Client}, nil
}

func (p *Platform) ID() string {
	return core.PlatformPinterest
}

func (p *Platform) ListEntities(ctx context.Context, tokens core.EntityTokens) ([]core.Entity, error) {
	if strings.TrimSpace(tokens.TempToken) == "" {
		return nil, platforms.MissingTokenError("tempToken")
	}

	payload, err := p.client.Get(ctx, listPath, map[string]string{
		"tempToken": strings.TrimSpace(tokens.TempToken),
	})
	if err != nil {
		return nil, fmt.Errorf("pinterest: list boards: %w", err)
	}

	items := platforms.Items(payload, "boards")
	entities := make([]core.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, core.Entity{
			ID:      platforms.ReadString(item, "id"),
			Name:    platforms.ReadString(item, "name"),
			Picture: platforms.PictureURL(item["image"]),
		})
	}
	return entities, nil
}

func (p *Platform) SelectEntity(ctx context.Context, sel core.EntitySelection) error {
	if strings.TrimSpace(sel.TempToken) == "" {
		return platforms.MissingTokenError("tempToken")
	}
	if strings.TrimSpace(sel.EntityID) == "" {
		return platforms.MissingTokenError("boardId")
	}

	if _, err := p.client.Post(ctx, selectPath, map[string]any{
		"profileId": strings.TrimSpace(sel.ProfileID),
		"boardId":   strings.TrimSpace(sel.EntityID),
		"tempToken": strings.TrimSpace(sel.TempToken),
	}); err != nil {
		return fmt.Errorf("pinterest: select board: %w", err)
	}
	return nil
}

var _ core.Platform = (*Platform)(nil)
