package store_test

import (
	"context"
	"testing"

	"github.com/worktrail/worktrail/internal/models"
	"github.com/worktrail/worktrail/internal/store"
)

func TestActivityLogJoinsActor(t *testing.T) {
	fx := setupFixture(t)
	as := store.NewActivityStore(fx.base)
	ctx := context.Background()
	pid := fx.projectID

	req := &models.ActivityLogRequest{
		ProjectID: pid, EntityType: "problem", EntityID: "p-1", ActivityType: "problem_resolved",
		Metadata: models.ActivityMetadata{EntityName: "Cracked slab", Tags: []string{"structural", "level-2"}},
	}

	if _, err := as.Log(ctx, req, &fx.principal.ID); err != nil {
		t.Fatalf("Log: %v", err)
	}

	page, err := as.Query(ctx, models.ActivityQuery{ProjectID: &pid})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(page.Data) != 1 {
		t.Fatalf("Query len = %d, want 1", len(page.Data))
	}

	ev := page.Data[0]
	if ev.Actor == nil || ev.Actor.ID != fx.principal.ID || ev.Actor.Name != "Test Inspector" {
		t.Errorf("Actor = %+v", ev.Actor)
	}

	if ev.Metadata.EntityName != "Cracked slab" {
		t.Errorf("EntityName = %q", ev.Metadata.EntityName)
	}
}

func TestActivityTagFilterRequiresAllTags(t *testing.T) {
	fx := setupFixture(t)
	as := store.NewActivityStore(fx.base)
	ctx := context.Background()
	pid := fx.projectID

	for _, tags := range [][]string{{"a", "b"}, {"a"}, nil} {
		req := &models.ActivityLogRequest{
			ProjectID: pid, EntityType: "diary", EntityID: "d-1", ActivityType: "diary_submitted",
			Metadata: models.ActivityMetadata{Tags: tags},
		}
		if _, err := as.Log(ctx, req, nil); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	page, err := as.Query(ctx, models.ActivityQuery{ProjectID: &pid, Tags: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if page.Total != 1 {
		t.Errorf("tag filter total = %d, want 1", page.Total)
	}

	page, err = as.Query(ctx, models.ActivityQuery{ProjectID: &pid})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if page.Total != 3 {
		t.Errorf("unfiltered total = %d, want 3", page.Total)
	}

	for _, ev := range page.Data {
		if ev.ActorID == nil && ev.Actor != nil {
			t.Errorf("event %d has actor without actor id", ev.ID)
		}
	}
}
