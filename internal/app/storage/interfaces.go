package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	"github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/domain/user"
)

// ErrNotFound is returned by every store when a record does not exist. The
// consume operations also return it when another transaction already deleted
// the code, which makes the losing caller indistinguishable from one that
// never had a code.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when creating a user whose email (compared
// case-insensitively) is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context, search string, isActive *bool) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// CodeStore persists outstanding verification codes and applies their
// consumption side effects atomically.
type CodeStore interface {
	UpsertRegCode(ctx context.Context, userID, code string, at time.Time) (user.AccountCode, error)
	UpsertResetCode(ctx context.Context, userID, code string, at time.Time) (user.AccountCode, error)
	GetCodeByRegCode(ctx context.Context, code string) (user.AccountCode, error)
	GetCodeByResetCode(ctx context.Context, userID, code string) (user.AccountCode, error)

	// ConsumeRegCode marks the user verified, deletes the code row and appends
	// the timeline event in one transaction. Exactly one concurrent caller
	// succeeds; the rest observe ErrNotFound.
	ConsumeRegCode(ctx context.Context, codeID, userID string, ev timeline.Event) error

	// ConsumeResetCode replaces the user's password hash with lockedHash and
	// deletes the code row in one transaction.
	ConsumeResetCode(ctx context.Context, codeID, userID, lockedHash string) error
}

// AppStore persists catalog apps. SaveApp is the single mutation entrypoint:
// the entity write, the version snapshot and the timeline event commit
// together or not at all.
type AppStore interface {
	SaveApp(ctx context.Context, a catalog.App, v catalog.Version, ev timeline.Event) (catalog.App, error)
	GetApp(ctx context.Context, id string) (catalog.App, error)
	ListApps(ctx context.Context, ownerID, search string) ([]catalog.App, error)
	DeleteApp(ctx context.Context, id string) error
}

// VersionStore reads the immutable version snapshots of an app.
type VersionStore interface {
	ListVersions(ctx context.Context, appID string) ([]catalog.Version, error)
	CurrentVersion(ctx context.Context, appID string) (catalog.Version, error)
}

// LikeStore persists per-app like state.
type LikeStore interface {
	GetLike(ctx context.Context, appID string) (catalog.Like, error)
	PutLike(ctx context.Context, like catalog.Like) (catalog.Like, error)
}

// FeedbackStore persists feedback entries; SaveFeedback commits the entity
// and its timeline event together.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb feedback.Feedback, ev timeline.Event) (feedback.Feedback, error)
	GetFeedback(ctx context.Context, id string) (feedback.Feedback, error)
	ListFeedback(ctx context.Context, ownerID, search string) ([]feedback.Feedback, error)
	DeleteFeedback(ctx context.Context, id string) error
}

// TimelineStore is append-only; events are never updated or deleted.
type TimelineStore interface {
	AppendEvent(ctx context.Context, ev timeline.Event) (timeline.Event, error)
	ListEvents(ctx context.Context, f timeline.Filter) ([]timeline.Event, error)
}
