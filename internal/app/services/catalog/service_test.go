package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/internal/app/storage/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return NewService(store, store, store, nil), store
}

func TestSaveDerivesSlugAndDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App", Version: "1.0"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if a.Slug != "my-cool-app" {
		t.Fatalf("slug = %q, want %q", a.Slug, "my-cool-app")
	}
	if a.OwnerID != "owner-1" {
		t.Fatalf("owner = %q, want owner-1", a.OwnerID)
	}
	if a.DevelopmentStage != catalog.StageUnderConstruction {
		t.Fatalf("stage = %q, want default", a.DevelopmentStage)
	}
}

func TestSlugRecomputedOnEverySave(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	a.Name = "Renamed App"
	a.Slug = "stale-slug"
	a, err = svc.Save(ctx, a, "owner-1")
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if a.Slug != "renamed-app" {
		t.Fatalf("slug = %q, want %q", a.Slug, "renamed-app")
	}
}

func TestEverySaveWritesVersionAndEvent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App", Version: "1.0", LongDescription: "first"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	// Two more saves, one of which changes nothing relevant to versions.
	a.Description = "short blurb"
	if a, err = svc.Save(ctx, a, "owner-1"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	a.Version = "2.0"
	if a, err = svc.Save(ctx, a, "owner-1"); err != nil {
		t.Fatalf("third save: %v", err)
	}

	versions, err := svc.Versions(ctx, a.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("version count = %d, want 3", len(versions))
	}
	// Newest first.
	if versions[0].Version != "2.0" {
		t.Fatalf("latest version = %q, want 2.0", versions[0].Version)
	}
	if !versions[0].IsUpgrade {
		t.Fatal("version bump should mark the snapshot as an upgrade")
	}
	if versions[1].IsUpgrade {
		t.Fatal("unchanged version string should not be an upgrade")
	}

	events, err := store.ListEvents(ctx, timeline.Filter{AppID: a.ID, Category: timeline.CategoryListApp})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("event count = %d, want 3", len(events))
	}
}

func TestOwnershipGate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := svc.Save(ctx, a, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("update by non-owner: got %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, a.ID, "intruder"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("delete by non-owner: got %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, a.ID, "owner-1"); err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: got %v, want ErrNotFound", err)
	}
}

func TestGetHydratesCurrentVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App", Version: "1.0"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	a.Version = "2.0"
	if _, err := svc.Save(ctx, a, "owner-1"); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != "2.0" {
		t.Fatalf("hydrated version = %q, want 2.0", got.Version)
	}
}

func TestListFiltersByOwnerAndSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Save(ctx, catalog.App{Name: "Alpha Notes", Category: "productivity"}, "owner-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Save(ctx, catalog.App{Name: "Beta Game", Category: "games"}, "owner-2"); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, err := svc.List(ctx, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list all = %d, want 2", len(all))
	}

	mine, err := svc.List(ctx, "owner-1", "")
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "Alpha Notes" {
		t.Fatalf("owner filter failed: %+v", mine)
	}

	games, err := svc.List(ctx, "", "game")
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if len(games) != 1 || games[0].Name != "Beta Game" {
		t.Fatalf("search filter failed: %+v", games)
	}
}

func TestToggleLike(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Save(ctx, catalog.App{Name: "My Cool App"}, "owner-1")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	like, err := svc.ToggleLike(ctx, a.ID, "user-1")
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if like.Count != 1 || !like.Status {
		t.Fatalf("after first like: %+v", like)
	}

	like, err = svc.ToggleLike(ctx, a.ID, "user-2")
	if err != nil {
		t.Fatalf("second user: %v", err)
	}
	if like.Count != 2 {
		t.Fatalf("count = %d, want 2", like.Count)
	}

	like, err = svc.ToggleLike(ctx, a.ID, "user-1")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if like.Count != 1 {
		t.Fatalf("count after untoggle = %d, want 1", like.Count)
	}

	like, err = svc.ToggleLike(ctx, a.ID, "user-2")
	if err != nil {
		t.Fatalf("last untoggle: %v", err)
	}
	if like.Count != 0 || like.Status {
		t.Fatalf("after all unliked: %+v", like)
	}

	if _, err := svc.ToggleLike(ctx, "missing", "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown app: got %v, want ErrNotFound", err)
	}
}
