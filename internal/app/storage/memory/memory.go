// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	"github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/storage"
)

// Store is an in-memory implementation of every storage interface.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]user.User
	usersByEmail map[string]string
	codes        map[string]user.AccountCode
	codesByUser  map[string]string
	apps         map[string]catalog.App
	versions     map[string][]catalog.Version
	likes        map[string]catalog.Like
	feedback     map[string]feedback.Feedback
	events       []timeline.Event
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CodeStore = (*Store)(nil)
var _ storage.AppStore = (*Store)(nil)
var _ storage.VersionStore = (*Store)(nil)
var _ storage.LikeStore = (*Store)(nil)
var _ storage.FeedbackStore = (*Store)(nil)
var _ storage.TimelineStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		codes:        make(map[string]user.AccountCode),
		codesByUser:  make(map[string]string),
		apps:         make(map[string]catalog.App),
		versions:     make(map[string][]catalog.Version),
		likes:        make(map[string]catalog.Like),
		feedback:     make(map[string]feedback.Feedback),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return user.User{}, storage.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	s.usersByEmail[key] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	u.Email = existing.Email
	u.EID = existing.EID
	u.DateJoined = existing.DateJoined
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context, search string, isActive *bool) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var result []user.User
	for _, u := range s.users {
		if isActive != nil && u.IsActive != *isActive {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(u.Email + " " + u.Firstname + " " + u.Lastname)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DateJoined.Before(result[j].DateJoined) })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	delete(s.usersByEmail, strings.ToLower(u.Email))
	if codeID, ok := s.codesByUser[id]; ok {
		delete(s.codes, codeID)
		delete(s.codesByUser, id)
	}
	return nil
}

// CodeStore implementation ----------------------------------------------------

func (s *Store) UpsertRegCode(_ context.Context, userID, code string, at time.Time) (user.AccountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCodeLocked(userID, code, "", at)
}

func (s *Store) UpsertResetCode(_ context.Context, userID, code string, at time.Time) (user.AccountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCodeLocked(userID, "", code, at)
}

func (s *Store) upsertCodeLocked(userID, regCode, resetCode string, at time.Time) (user.AccountCode, error) {
	if _, ok := s.users[userID]; !ok {
		return user.AccountCode{}, storage.ErrNotFound
	}

	at = at.UTC()
	if codeID, ok := s.codesByUser[userID]; ok {
		ac := s.codes[codeID]
		if regCode != "" {
			ac.RegCode = regCode
		}
		if resetCode != "" {
			ac.ResetCode = resetCode
		}
		ac.UpdatedAt = at
		s.codes[codeID] = ac
		return ac, nil
	}

	ac := user.AccountCode{
		ID:        s.nextIDLocked(),
		UserID:    userID,
		RegCode:   regCode,
		ResetCode: resetCode,
		CreatedAt: at,
		UpdatedAt: at,
	}
	s.codes[ac.ID] = ac
	s.codesByUser[userID] = ac.ID
	return ac, nil
}

func (s *Store) GetCodeByRegCode(_ context.Context, code string) (user.AccountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ac := range s.codes {
		if ac.RegCode == code {
			return ac, nil
		}
	}
	return user.AccountCode{}, storage.ErrNotFound
}

func (s *Store) GetCodeByResetCode(_ context.Context, userID, code string) (user.AccountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ac := range s.codes {
		if ac.UserID == userID && ac.ResetCode == code {
			return ac, nil
		}
	}
	return user.AccountCode{}, storage.ErrNotFound
}

func (s *Store) ConsumeRegCode(_ context.Context, codeID, userID string, ev timeline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[codeID]; !ok {
		return storage.ErrNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}

	u.IsVerified = true
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	delete(s.codes, codeID)
	delete(s.codesByUser, userID)
	s.appendEventLocked(ev)
	return nil
}

func (s *Store) ConsumeResetCode(_ context.Context, codeID, userID, lockedHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[codeID]; !ok {
		return storage.ErrNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}

	u.PasswordHash = lockedHash
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	delete(s.codes, codeID)
	delete(s.codesByUser, userID)
	return nil
}

// AppStore implementation -----------------------------------------------------

func (s *Store) SaveApp(_ context.Context, a catalog.App, v catalog.Version, ev timeline.Event) (catalog.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = s.nextIDLocked()
		a.CreatedAt = now
	} else if existing, ok := s.apps[a.ID]; ok {
		a.OwnerID = existing.OwnerID
		a.CreatedAt = existing.CreatedAt
	} else {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.apps[a.ID] = a

	ev.AppID = a.ID
	s.appendEventLocked(ev)

	v.ID = s.nextIDLocked()
	v.AppID = a.ID
	v.CreatedAt = now
	if v.ReleaseDate.IsZero() {
		v.ReleaseDate = now
	}
	s.versions[a.ID] = append(s.versions[a.ID], v)
	return a, nil
}

func (s *Store) GetApp(_ context.Context, id string) (catalog.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.apps[id]
	if !ok {
		return catalog.App{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListApps(_ context.Context, ownerID, search string) ([]catalog.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var result []catalog.App
	for _, a := range s.apps {
		if ownerID != "" && a.OwnerID != ownerID {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(a.Name + " " + a.Category + " " + a.Stack)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteApp(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.apps, id)
	delete(s.versions, id)
	delete(s.likes, id)
	return nil
}

// VersionStore implementation -------------------------------------------------

func (s *Store) ListVersions(_ context.Context, appID string) ([]catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.versions[appID]
	result := make([]catalog.Version, len(stored))
	// Insertion order is oldest-first; reverse for newest-first.
	for i, v := range stored {
		result[len(stored)-1-i] = v
	}
	return result, nil
}

func (s *Store) CurrentVersion(_ context.Context, appID string) (catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.versions[appID]
	if len(stored) == 0 {
		return catalog.Version{}, storage.ErrNotFound
	}
	return stored[len(stored)-1], nil
}

// LikeStore implementation ----------------------------------------------------

func (s *Store) GetLike(_ context.Context, appID string) (catalog.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	like, ok := s.likes[appID]
	if !ok {
		return catalog.Like{}, storage.ErrNotFound
	}
	return like, nil
}

func (s *Store) PutLike(_ context.Context, like catalog.Like) (catalog.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if like.ID == "" {
		like.ID = s.nextIDLocked()
	}
	like.UpdatedAt = time.Now().UTC()
	s.likes[like.AppID] = like
	return like, nil
}

// FeedbackStore implementation ------------------------------------------------

func (s *Store) SaveFeedback(_ context.Context, fb feedback.Feedback, ev timeline.Event) (feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if fb.ID == "" {
		fb.ID = s.nextIDLocked()
		fb.CreatedAt = now
	} else if existing, ok := s.feedback[fb.ID]; ok {
		fb.OwnerID = existing.OwnerID
		fb.CreatedAt = existing.CreatedAt
	} else {
		fb.CreatedAt = now
	}
	fb.UpdatedAt = now
	s.feedback[fb.ID] = fb

	ev.AppID = fb.ID
	s.appendEventLocked(ev)
	return fb, nil
}

func (s *Store) GetFeedback(_ context.Context, id string) (feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, ok := s.feedback[id]
	if !ok {
		return feedback.Feedback{}, storage.ErrNotFound
	}
	return fb, nil
}

func (s *Store) ListFeedback(_ context.Context, ownerID, search string) ([]feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var result []feedback.Feedback
	for _, fb := range s.feedback {
		if ownerID != "" && fb.OwnerID != ownerID {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(fb.Title + " " + fb.Category)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		result = append(result, fb)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteFeedback(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feedback[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.feedback, id)
	return nil
}

// TimelineStore implementation ------------------------------------------------

func (s *Store) AppendEvent(_ context.Context, ev timeline.Event) (timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEventLocked(ev), nil
}

func (s *Store) appendEventLocked(ev timeline.Event) timeline.Event {
	ev.ID = s.nextIDLocked()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return ev
}

func (s *Store) ListEvents(_ context.Context, f timeline.Filter) ([]timeline.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []timeline.Event
	// Events are appended oldest-first; walk backwards for newest-first.
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if f.UserID != "" && ev.UserID != f.UserID {
			continue
		}
		if f.AppID != "" && ev.AppID != f.AppID {
			continue
		}
		if f.Entity != "" && !strings.EqualFold(ev.Entity, f.Entity) {
			continue
		}
		if f.Category != "" && ev.Category != f.Category {
			continue
		}
		result = append(result, ev)
	}
	return result, nil
}
