// Package tiktok lists a tenant's creator profiles and completes profile
// selection.
package tiktok

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms"
)

const (
	listPath   = "/connect/tiktok/profiles"
	selectPath = "/connect/tiktok/select"
)

type Config struct {
	Client core.ConnectorClient
}

type Platform struct {
	client core.ConnectorClient
}

func New(cfg Config) (*Platform, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("tiktok: connector client is required")
	}
	return &Platform{client: cfg.Client}, nil
}

func (p *Platform) ID() string {
	return core.PlatformTikTok
}

func (p *Platform) ListEntities(ctx context.Context, tokens core.EntityTokens) ([]core.Entity, error) {
	if strings.TrimSpace(tokens.TempToken) == "" {
		return nil, platforms.MissingTokenError("tempToken")
	}

	payload, err := p.client.Get(ctx, listPath, map[string]string{
		"tempToken": strings.TrimSpace(tokens.TempToken),
	})
	if err != nil {
		return nil, fmt.Errorf("tiktok: list profiles: %w", err)
	}

	items := platforms.Items(payload, "profiles")
	entities := make([]core.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, core.Entity{
			ID:      platforms.ReadString(item, "id", "openId"),
			Name:    platforms.ReadString(item, "displayName", "username"),
			Picture: platforms.PictureURL(item["avatar"]),
		})
	}
	return entities, nil
}

func (p *Platform) SelectEntity(ctx context.Context, sel core.EntitySelection) error {
	if strings.TrimSpace(sel.TempToken) == "" {
		return platforms.MissingTokenError("tempToken")
	}
	if strings.TrimSpace(sel.EntityID) == "" {
		return platforms.MissingTokenError("tiktokId")
	}

	body := map[string]any{
		"profileId": strings.TrimSpace(sel.ProfileID),
		"tiktokId":  strings.TrimSpace(sel.EntityID),
		"tempToken": strings.TrimSpace(sel.TempToken),
	}
	if len(sel.UserProfile) > 0 {
		body["userProfile"] = sel.UserProfile
	}

	if _, err := p.client.Post(ctx, selectPath, body); err != nil {
		return fmt.Errorf("tiktok: select profile: %w", err)
	}
	return nil
}

var _ core.Platform = (*Platform)(nil)
