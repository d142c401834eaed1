// Package feedback manages community-submitted catalog entries. Entries
// follow the app lifecycle minus version snapshots: each save rewrites the
// slug and records a LIST_APP timeline event in the same transaction.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

var (
	// ErrTitleRequired is returned when saving an entry without a title.
	ErrTitleRequired = errors.New("feedback: title is required")
	// ErrNotOwner is returned when a mutation comes from anyone but the
	// entry's owner.
	ErrNotOwner = errors.New("feedback: not the owner")
)

// Service owns the feedback entry lifecycle.
type Service struct {
	store storage.FeedbackStore
	log   *logger.Logger
}

func NewService(store storage.FeedbackStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("feedback")
	}
	return &Service{store: store, log: log}
}

// Save creates or updates an entry on behalf of actorID.
func (s *Service) Save(ctx context.Context, fb feedback.Feedback, actorID string) (feedback.Feedback, error) {
	if strings.TrimSpace(fb.Title) == "" {
		return feedback.Feedback{}, ErrTitleRequired
	}

	if fb.ID == "" {
		fb.OwnerID = actorID
	} else {
		existing, err := s.store.GetFeedback(ctx, fb.ID)
		if err != nil {
			return feedback.Feedback{}, err
		}
		if existing.OwnerID != actorID {
			return feedback.Feedback{}, ErrNotOwner
		}
	}

	fb.Slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fb.Title), " ", "-"))

	ev := timeline.Event{
		UserID:   actorID,
		Entity:   timeline.EntityApp,
		Category: timeline.CategoryListApp,
	}
	saved, err := s.store.SaveFeedback(ctx, fb, ev)
	if err != nil {
		return feedback.Feedback{}, fmt.Errorf("save feedback: %w", err)
	}
	s.log.WithField("feedback_id", saved.ID).Info("Feedback saved")
	return saved, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (feedback.Feedback, error) {
	return s.store.GetFeedback(ctx, id)
}

// List returns entries, optionally filtered by owner and a substring search
// over title and category.
func (s *Service) List(ctx context.Context, ownerID, search string) ([]feedback.Feedback, error) {
	return s.store.ListFeedback(ctx, ownerID, search)
}

// Delete removes an entry. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	fb, err := s.store.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	if fb.OwnerID != actorID {
		return ErrNotOwner
	}
	return s.store.DeleteFeedback(ctx, id)
}
