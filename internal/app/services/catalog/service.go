// Package catalog manages published apps, their version history and likes.
// Save is the single mutation entrypoint: every call rewrites the slug from
// the name, records a LIST_APP timeline event and appends an immutable
// version snapshot, all in one transaction.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/metrics"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

var (
	// ErrNameRequired is returned when saving an app without a name.
	ErrNameRequired = errors.New("catalog: name is required")
	// ErrNotOwner is returned when a mutation comes from anyone but the
	// app's owner.
	ErrNotOwner = errors.New("catalog: not the owner")
)

// Service owns the app lifecycle.
type Service struct {
	apps     storage.AppStore
	versions storage.VersionStore
	likes    storage.LikeStore
	log      *logger.Logger
}

func NewService(apps storage.AppStore, versions storage.VersionStore, likes storage.LikeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{apps: apps, versions: versions, likes: likes, log: log}
}

// Save creates or updates an app on behalf of actorID. Updates require
// actorID to be the owner. The slug is recomputed from the name on every
// save, and a version snapshot is written even when only unrelated fields
// changed.
func (s *Service) Save(ctx context.Context, a catalog.App, actorID string) (catalog.App, error) {
	if strings.TrimSpace(a.Name) == "" {
		return catalog.App{}, ErrNameRequired
	}

	isUpgrade := false
	if a.ID == "" {
		a.OwnerID = actorID
	} else {
		existing, err := s.apps.GetApp(ctx, a.ID)
		if err != nil {
			return catalog.App{}, err
		}
		if existing.OwnerID != actorID {
			return catalog.App{}, ErrNotOwner
		}
		isUpgrade = a.Version != "" && a.Version != existing.Version
	}

	a.Slug = Slugify(a.Name)
	if a.DevelopmentStage == "" {
		a.DevelopmentStage = catalog.StageUnderConstruction
	}

	v := catalog.Version{
		Version:      a.Version,
		ReleaseNotes: a.LongDescription,
		ReleaseType:  catalog.StageInDevelopment,
		IsUpgrade:    isUpgrade,
	}
	ev := timeline.Event{
		UserID:   actorID,
		Entity:   timeline.EntityApp,
		Category: timeline.CategoryListApp,
	}

	saved, err := s.apps.SaveApp(ctx, a, v, ev)
	if err != nil {
		return catalog.App{}, fmt.Errorf("save app: %w", err)
	}
	metrics.RecordCatalogSave()
	s.log.WithField("app_id", saved.ID).WithField("slug", saved.Slug).Info("App saved")
	return saved, nil
}

// Get returns an app with its version field hydrated from the latest
// snapshot for that app.
func (s *Service) Get(ctx context.Context, id string) (catalog.App, error) {
	a, err := s.apps.GetApp(ctx, id)
	if err != nil {
		return catalog.App{}, err
	}
	if current, err := s.versions.CurrentVersion(ctx, id); err == nil {
		a.Version = current.Version
	}
	return a, nil
}

// List returns apps, optionally filtered by owner and by a substring search
// over name, category and stack.
func (s *Service) List(ctx context.Context, ownerID, search string) ([]catalog.App, error) {
	return s.apps.ListApps(ctx, ownerID, search)
}

// Delete removes an app and its versions. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	a, err := s.apps.GetApp(ctx, id)
	if err != nil {
		return err
	}
	if a.OwnerID != actorID {
		return ErrNotOwner
	}
	return s.apps.DeleteApp(ctx, id)
}

// Versions returns the snapshot history of an app, newest first.
func (s *Service) Versions(ctx context.Context, appID string) ([]catalog.Version, error) {
	if _, err := s.apps.GetApp(ctx, appID); err != nil {
		return nil, err
	}
	return s.versions.ListVersions(ctx, appID)
}

// CurrentVersion returns the latest snapshot of an app.
func (s *Service) CurrentVersion(ctx context.Context, appID string) (catalog.Version, error) {
	return s.versions.CurrentVersion(ctx, appID)
}

// ToggleLike flips userID's like on an app and returns the new state.
func (s *Service) ToggleLike(ctx context.Context, appID, userID string) (catalog.Like, error) {
	if _, err := s.apps.GetApp(ctx, appID); err != nil {
		return catalog.Like{}, err
	}

	like, err := s.likes.GetLike(ctx, appID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return catalog.Like{}, fmt.Errorf("get like: %w", err)
		}
		like = catalog.Like{AppID: appID}
	}

	found := false
	kept := like.UserIDs[:0]
	for _, id := range like.UserIDs {
		if id == userID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		kept = append(kept, userID)
	}
	like.UserIDs = kept
	like.Count = int64(len(kept))
	like.Status = like.Count > 0

	return s.likes.PutLike(ctx, like)
}

// Slugify derives the URL slug from a name: lowercase, spaces to hyphens.
func Slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}
