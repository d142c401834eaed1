// Package timeline records and queries the append-only activity feed.
package timeline

import (
	"context"
	"fmt"

	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

// Service appends and lists timeline events. Events are immutable; there is
// no update or delete.
type Service struct {
	store storage.TimelineStore
	log   *logger.Logger
}

func NewService(store storage.TimelineStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("timeline")
	}
	return &Service{store: store, log: log}
}

// RecordUserEvent appends an event about the user themselves.
func (s *Service) RecordUserEvent(ctx context.Context, userID, category string) (timeline.Event, error) {
	ev, err := s.store.AppendEvent(ctx, timeline.Event{
		UserID:   userID,
		Entity:   timeline.EntityUser,
		Category: category,
	})
	if err != nil {
		return timeline.Event{}, fmt.Errorf("append user event: %w", err)
	}
	return ev, nil
}

// RecordAppEvent appends an event about an app, attributed to userID.
func (s *Service) RecordAppEvent(ctx context.Context, userID, appID, category string) (timeline.Event, error) {
	ev, err := s.store.AppendEvent(ctx, timeline.Event{
		UserID:   userID,
		AppID:    appID,
		Entity:   timeline.EntityApp,
		Category: category,
	})
	if err != nil {
		return timeline.Event{}, fmt.Errorf("append app event: %w", err)
	}
	return ev, nil
}

// List returns events matching the filter, newest first.
func (s *Service) List(ctx context.Context, f timeline.Filter) ([]timeline.Event, error) {
	events, err := s.store.ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
