package tiktok

import (
	"context"
	"testing"

	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/platforms/platformtest"
)

func TestListEntitiesMapsProfiles(t *testing.T) {
	connector := &platformtest.Connector{
		GetPayload: map[string]any{
			"profiles": []any{
				map[string]any{"openId": "tt_1", "displayName": "Creator One", "avatar": "https://cdn/a1.png"},
				map[string]any{"id": "tt_2", "username": "creator_two"},
			},
		},
	}
	platform, err := New(Config{Client: connector})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	entities, err := platform.ListEntities(context.Background(), core.EntityTokens{TempToken: "tmp_1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entities) != 2 || entities[0].ID != "tt_1" || entities[1].Name != "creator_two" {
		t.Fatalf("unexpected entities %v", entities)
	}
}

func TestListEntitiesRequiresTempToken(t *testing.T) {
	connector := &platformtest.Connector{}
	platform, err := New(Config{Client: connector})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := platform.ListEntities(context.Background(), core.EntityTokens{}); err == nil {
		t.Fatalf("expected missing token error")
	}
	if len(connector.Gets) != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestSelectEntityForwardsUserProfile(t *testing.T) {
	connector := &platformtest.Connector{}
	platform, err := New(Config{Client: connector})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = platform.SelectEntity(context.Background(), core.EntitySelection{
		ProfileID:   "profile_1",
		EntityID:    "tt_1",
		TempToken:   "tmp_1",
		UserProfile: map[string]any{"displayName": "Creator One"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	body := connector.Posts[0].Body
	if body["tiktokId"] != "tt_1" || body["userProfile"] == nil {
		t.Fatalf("unexpected body %v", body)
	}
}
