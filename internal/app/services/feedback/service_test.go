package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/storage/memory"
)

func TestSaveDerivesSlugAndRecordsEvent(t *testing.T) {
	store := memory.New()
	svc := NewService(store, nil)
	ctx := context.Background()

	fb, err := svc.Save(ctx, feedback.Feedback{Title: "Dark Mode Please"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if fb.Slug != "dark-mode-please" {
		t.Fatalf("slug = %q, want %q", fb.Slug, "dark-mode-please")
	}
	if fb.OwnerID != "owner-1" {
		t.Fatalf("owner = %q, want owner-1", fb.OwnerID)
	}

	events, err := store.ListEvents(ctx, timeline.Filter{UserID: "owner-1", Category: timeline.CategoryListApp})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
}

func TestSaveRequiresTitle(t *testing.T) {
	svc := NewService(memory.New(), nil)
	if _, err := svc.Save(context.Background(), feedback.Feedback{}, "owner-1"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("got %v, want ErrTitleRequired", err)
	}
}

func TestOwnershipGate(t *testing.T) {
	svc := NewService(memory.New(), nil)
	ctx := context.Background()

	fb, err := svc.Save(ctx, feedback.Feedback{Title: "Dark Mode Please"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Save(ctx, fb, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("update by non-owner: got %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, fb.ID, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("delete by non-owner: got %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, fb.ID, "owner-1"); err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
}
