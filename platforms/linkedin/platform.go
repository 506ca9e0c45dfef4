// Package linkedin lists a tenant's organizations and completes selection.
// It is the one platform with a personal-account option: a synthetic entry is
// prepended to every listing, and choosing it switches the selection payload
// to the personal shape.
package linkedin

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms"
)

const (
	listPath   = "/connect/linkedin/organizations"
	selectPath = "/connect/linkedin/select"

	// PersonalEntityID is the sentinel id for posting as the member rather
	// than as an organization.
	PersonalEntityID   = "personal"
	personalEntityName = "Personal Account"
)

type Config struct {
	Client core.ConnectorClient
}

type Platform struct {
	client core.ConnectorClient
}

func New(cfg Config) (*Platform, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("linkedin: connector client is required")
	}
	return &Platform{client: cfg.Client}, nil
}

func (p *Platform) ID() string {
	return core.PlatformLinkedIn
}

func (p *Platform) SyntheticEntity() core.Entity {
	return core.Entity{ID: PersonalEntityID, Name: personalEntityName}
}

func (p *Platform) ListEntities(ctx context.Context, tokens core.EntityTokens) ([]core.Entity, error) {
	if strings.TrimSpace(tokens.ConnectToken) == "" {
		return nil, platforms.MissingTokenError("connectToken")
	}

	query := map[string]string{
		"connectToken": strings.TrimSpace(tokens.ConnectToken),
	}
	if len(tokens.OrganizationIDs) > 0 {
		query["organizations"] = strings.Join(tokens.OrganizationIDs, ",")
	}

	payload, err := p.client.Get(ctx, listPath, query)
	if err != nil {
		return nil, fmt.Errorf("linkedin: list organizations: %w", err)
	}

	items := platforms.Items(payload, "organizations")
	entities := make([]core.Entity, 0, len(items))
	for _, item := range items {
		entities = append(entities, core.Entity{
			ID:      platforms.ReadString(item, "id", "organizationId"),
			Name:    platforms.ReadString(item, "name", "localizedName"),
			Picture: platforms.PictureURL(item["logo"]),
		})
	}
	return entities, nil
}

func (p *Platform) SelectEntity(ctx context.Context, sel core.EntitySelection) error {
	entityID := strings.TrimSpace(sel.EntityID)
	if entityID == "" {
		return platforms.MissingTokenError("entityId")
	}

	body := map[string]any{
		"profileId": strings.TrimSpace(sel.ProfileID),
	}
	if token := strings.TrimSpace(sel.TempToken); token != "" {
		body["tempToken"] = token
	}
	if len(sel.UserProfile) > 0 {
		body["userProfile"] = sel.UserProfile
	}
	if entityID == PersonalEntityID {
		body["personal"] = true
	} else {
		body["organizationId"] = entityID
	}

	if _, err := p.client.Post(ctx, selectPath, body); err != nil {
		return fmt.Errorf("linkedin: select organization: %w", err)
	}
	return nil
}

var (
	_ core.Platform                = (*Platform)(nil)
	_ core.SyntheticEntityProvider = (*Platform)(nil)
)
