// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nine-apps/catalog_service/internal/app/domain/catalog"
	"github.com/nine-apps/catalog_service/internal/app/domain/feedback"
	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CodeStore = (*Store)(nil)
var _ storage.AppStore = (*Store)(nil)
var _ storage.VersionStore = (*Store)(nil)
var _ storage.LikeStore = (*Store)(nil)
var _ storage.FeedbackStore = (*Store)(nil)
var _ storage.TimelineStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return storage.ErrDuplicateEmail
	}
	return err
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, email, password_hash, eid, firstname, lastname, phone_no, country, about_me,
	is_active, is_admin, is_verified, last_login, last_resend_code, date_joined, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, u.ID, u.Email, u.PasswordHash, u.EID, u.Firstname, u.Lastname, u.PhoneNo, u.Country, u.AboutMe,
		u.IsActive, u.IsAdmin, u.IsVerified, toNullTime(u.LastLogin), toNullTime(u.LastResendCode), u.DateJoined, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.Email = existing.Email
	u.EID = existing.EID
	u.DateJoined = existing.DateJoined
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE catalog_users
		SET password_hash = $2, firstname = $3, lastname = $4, phone_no = $5, country = $6, about_me = $7,
			is_active = $8, is_admin = $9, is_verified = $10, last_login = $11, last_resend_code = $12, updated_at = $13
		WHERE id = $1
	`, u.ID, u.PasswordHash, u.Firstname, u.Lastname, u.PhoneNo, u.Country, u.AboutMe,
		u.IsActive, u.IsAdmin, u.IsVerified, toNullTime(u.LastLogin), toNullTime(u.LastResendCode), u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var (
		u          user.User
		lastLogin  sql.NullTime
		lastResend sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EID, &u.Firstname, &u.Lastname, &u.PhoneNo,
		&u.Country, &u.AboutMe, &u.IsActive, &u.IsAdmin, &u.IsVerified, &lastLogin, &lastResend,
		&u.DateJoined, &u.UpdatedAt); err != nil {
		return user.User{}, mapErr(err)
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time.UTC()
	}
	if lastResend.Valid {
		u.LastResendCode = lastResend.Time.UTC()
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM catalog_users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM catalog_users
		WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, search string, isActive *bool) ([]user.User, error) {
	active := sql.NullBool{}
	if isActive != nil {
		active = sql.NullBool{Bool: *isActive, Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM catalog_users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR firstname ILIKE '%' || $1 || '%' OR lastname ILIKE '%' || $1 || '%')
		  AND ($2::boolean IS NULL OR is_active = $2)
		ORDER BY date_joined
	`, search, active)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_users WHERE id = $1
	`, id)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- CodeStore --------------------------------------------------------------

func (s *Store) UpsertRegCode(ctx context.Context, userID, code string, at time.Time) (user.AccountCode, error) {
	return s.upsertCode(ctx, userID, `reg_code`, code, at)
}

func (s *Store) UpsertResetCode(ctx context.Context, userID, code string, at time.Time) (user.AccountCode, error) {
	return s.upsertCode(ctx, userID, `reset_code`, code, at)
}

func (s *Store) upsertCode(ctx context.Context, userID, column, code string, at time.Time) (user.AccountCode, error) {
	at = at.UTC()
	id := uuid.NewString()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO catalog_account_codes (id, user_id, `+column+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET `+column+` = EXCLUDED.`+column+`, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, COALESCE(reg_code, ''), COALESCE(reset_code, ''), created_at, updated_at
	`, id, userID, code, at)

	var ac user.AccountCode
	if err := row.Scan(&ac.ID, &ac.UserID, &ac.RegCode, &ac.ResetCode, &ac.CreatedAt, &ac.UpdatedAt); err != nil {
		return user.AccountCode{}, mapErr(err)
	}
	return ac, nil
}

func (s *Store) GetCodeByRegCode(ctx context.Context, code string) (user.AccountCode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(reg_code, ''), COALESCE(reset_code, ''), created_at, updated_at
		FROM catalog_account_codes
		WHERE reg_code = $1
	`, code)

	var ac user.AccountCode
	if err := row.Scan(&ac.ID, &ac.UserID, &ac.RegCode, &ac.ResetCode, &ac.CreatedAt, &ac.UpdatedAt); err != nil {
		return user.AccountCode{}, mapErr(err)
	}
	return ac, nil
}

func (s *Store) GetCodeByResetCode(ctx context.Context, userID, code string) (user.AccountCode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(reg_code, ''), COALESCE(reset_code, ''), created_at, updated_at
		FROM catalog_account_codes
		WHERE user_id = $1 AND reset_code = $2
	`, userID, code)

	var ac user.AccountCode
	if err := row.Scan(&ac.ID, &ac.UserID, &ac.RegCode, &ac.ResetCode, &ac.CreatedAt, &ac.UpdatedAt); err != nil {
		return user.AccountCode{}, mapErr(err)
	}
	return ac, nil
}

func (s *Store) ConsumeRegCode(ctx context.Context, codeID, userID string, ev timeline.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The delete goes first; its rows-affected count decides the race when two
	// requests carry the same code.
	result, err := tx.ExecContext(ctx, `
		DELETE FROM catalog_account_codes WHERE id = $1
	`, codeID)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE catalog_users SET is_verified = true, updated_at = $2 WHERE id = $1
	`, userID, time.Now().UTC())
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}

	if err := insertEvent(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ConsumeResetCode(ctx context.Context, codeID, userID, lockedHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM catalog_account_codes WHERE id = $1
	`, codeID)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE catalog_users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, userID, lockedHash, time.Now().UTC())
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

// --- AppStore ---------------------------------------------------------------

const appColumns = `id, owner_id, name, slug, description, long_description, category, stack,
	development_stage, version, website, playstore_link, appstore_link, external_link, clicks, views,
	created_at, updated_at`

func (s *Store) SaveApp(ctx context.Context, a catalog.App, v catalog.Version, ev timeline.Event) (catalog.App, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.App{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_apps (`+appColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug, description = EXCLUDED.description,
			long_description = EXCLUDED.long_description, category = EXCLUDED.category, stack = EXCLUDED.stack,
			development_stage = EXCLUDED.development_stage, version = EXCLUDED.version, website = EXCLUDED.website,
			playstore_link = EXCLUDED.playstore_link, appstore_link = EXCLUDED.appstore_link,
			external_link = EXCLUDED.external_link, clicks = EXCLUDED.clicks, views = EXCLUDED.views,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.OwnerID, a.Name, a.Slug, a.Description, a.LongDescription, a.Category, a.Stack,
		a.DevelopmentStage, a.Version, a.Website, a.PlaystoreLink, a.AppstoreLink, a.ExternalLink,
		a.Clicks, a.Views, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return catalog.App{}, mapErr(err)
	}

	ev.AppID = a.ID
	if err := insertEvent(ctx, tx, ev); err != nil {
		return catalog.App{}, err
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.AppID = a.ID
	v.CreatedAt = now
	if v.ReleaseDate.IsZero() {
		v.ReleaseDate = now
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_app_versions (id, app_id, version, release_notes, release_type, is_upgrade, release_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.AppID, v.Version, v.ReleaseNotes, v.ReleaseType, v.IsUpgrade, v.ReleaseDate, v.CreatedAt)
	if err != nil {
		return catalog.App{}, mapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return catalog.App{}, err
	}
	return a, nil
}

func scanApp(row interface{ Scan(...any) error }) (catalog.App, error) {
	var a catalog.App
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Slug, &a.Description, &a.LongDescription,
		&a.Category, &a.Stack, &a.DevelopmentStage, &a.Version, &a.Website, &a.PlaystoreLink,
		&a.AppstoreLink, &a.ExternalLink, &a.Clicks, &a.Views, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return catalog.App{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) GetApp(ctx context.Context, id string) (catalog.App, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+appColumns+`
		FROM catalog_apps
		WHERE id = $1
	`, id)
	return scanApp(row)
}

func (s *Store) ListApps(ctx context.Context, ownerID, search string) ([]catalog.App, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+appColumns+`
		FROM catalog_apps
		WHERE ($1 = '' OR owner_id = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR category ILIKE '%' || $2 || '%' OR stack ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
	`, ownerID, search)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []catalog.App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) DeleteApp(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_apps WHERE id = $1
	`, id)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- VersionStore -----------------------------------------------------------

func (s *Store) ListVersions(ctx context.Context, appID string) ([]catalog.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app_id, version, release_notes, release_type, is_upgrade, release_date, created_at
		FROM catalog_app_versions
		WHERE app_id = $1
		ORDER BY created_at DESC
	`, appID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []catalog.Version
	for rows.Next() {
		var v catalog.Version
		if err := rows.Scan(&v.ID, &v.AppID, &v.Version, &v.ReleaseNotes, &v.ReleaseType,
			&v.IsUpgrade, &v.ReleaseDate, &v.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (s *Store) CurrentVersion(ctx context.Context, appID string) (catalog.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app_id, version, release_notes, release_type, is_upgrade, release_date, created_at
		FROM catalog_app_versions
		WHERE app_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, appID)

	var v catalog.Version
	if err := row.Scan(&v.ID, &v.AppID, &v.Version, &v.ReleaseNotes, &v.ReleaseType,
		&v.IsUpgrade, &v.ReleaseDate, &v.CreatedAt); err != nil {
		return catalog.Version{}, mapErr(err)
	}
	return v, nil
}

// --- LikeStore --------------------------------------------------------------

func (s *Store) GetLike(ctx context.Context, appID string) (catalog.Like, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app_id, user_ids, status, count, updated_at
		FROM catalog_likes
		WHERE app_id = $1
	`, appID)

	var (
		like       catalog.Like
		userIDsRaw []byte
	)
	if err := row.Scan(&like.ID, &like.AppID, &userIDsRaw, &like.Status, &like.Count, &like.UpdatedAt); err != nil {
		return catalog.Like{}, mapErr(err)
	}
	if len(userIDsRaw) > 0 {
		_ = json.Unmarshal(userIDsRaw, &like.UserIDs)
	}
	return like, nil
}

func (s *Store) PutLike(ctx context.Context, like catalog.Like) (catalog.Like, error) {
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	like.UpdatedAt = time.Now().UTC()

	userIDsJSON, err := json.Marshal(like.UserIDs)
	if err != nil {
		return catalog.Like{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_likes (id, app_id, user_ids, status, count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (app_id)
		DO UPDATE SET user_ids = EXCLUDED.user_ids, status = EXCLUDED.status, count = EXCLUDED.count,
			updated_at = EXCLUDED.updated_at
	`, like.ID, like.AppID, userIDsJSON, like.Status, like.Count, like.UpdatedAt)
	if err != nil {
		return catalog.Like{}, mapErr(err)
	}
	return like, nil
}

// --- FeedbackStore ----------------------------------------------------------

const feedbackColumns = `id, owner_id, title, slug, description, long_description, category, website,
	external_link, clicks, views, created_at, updated_at`

func (s *Store) SaveFeedback(ctx context.Context, fb feedback.Feedback, ev timeline.Event) (feedback.Feedback, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return feedback.Feedback{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if fb.ID == "" {
		fb.ID = uuid.NewString()
		fb.CreatedAt = now
	}
	fb.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_feedback (`+feedbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id)
		DO UPDATE SET title = EXCLUDED.title, slug = EXCLUDED.slug, description = EXCLUDED.description,
			long_description = EXCLUDED.long_description, category = EXCLUDED.category, website = EXCLUDED.website,
			external_link = EXCLUDED.external_link, clicks = EXCLUDED.clicks, views = EXCLUDED.views,
			updated_at = EXCLUDED.updated_at
	`, fb.ID, fb.OwnerID, fb.Title, fb.Slug, fb.Description, fb.LongDescription, fb.Category,
		fb.Website, fb.ExternalLink, fb.Clicks, fb.Views, fb.CreatedAt, fb.UpdatedAt)
	if err != nil {
		return feedback.Feedback{}, mapErr(err)
	}

	ev.AppID = fb.ID
	if err := insertEvent(ctx, tx, ev); err != nil {
		return feedback.Feedback{}, err
	}

	if err := tx.Commit(); err != nil {
		return feedback.Feedback{}, err
	}
	return fb, nil
}

func (s *Store) GetFeedback(ctx context.Context, id string) (feedback.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM catalog_feedback
		WHERE id = $1
	`, id)

	var fb feedback.Feedback
	if err := row.Scan(&fb.ID, &fb.OwnerID, &fb.Title, &fb.Slug, &fb.Description, &fb.LongDescription,
		&fb.Category, &fb.Website, &fb.ExternalLink, &fb.Clicks, &fb.Views, &fb.CreatedAt, &fb.UpdatedAt); err != nil {
		return feedback.Feedback{}, mapErr(err)
	}
	return fb, nil
}

func (s *Store) ListFeedback(ctx context.Context, ownerID, search string) ([]feedback.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM catalog_feedback
		WHERE ($1 = '' OR owner_id = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR category ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
	`, ownerID, search)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []feedback.Feedback
	for rows.Next() {
		var fb feedback.Feedback
		if err := rows.Scan(&fb.ID, &fb.OwnerID, &fb.Title, &fb.Slug, &fb.Description, &fb.LongDescription,
			&fb.Category, &fb.Website, &fb.ExternalLink, &fb.Clicks, &fb.Views, &fb.CreatedAt, &fb.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_feedback WHERE id = $1
	`, id)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- TimelineStore ----------------------------------------------------------

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, db execer, ev timeline.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO catalog_timeline (id, user_id, app_id, entity, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.UserID, toNullString(ev.AppID), ev.Entity, ev.Category, ev.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, ev timeline.Event) (timeline.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := insertEvent(ctx, s.db, ev); err != nil {
		return timeline.Event{}, err
	}
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context, f timeline.Filter) ([]timeline.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(app_id, ''), entity, category, created_at
		FROM catalog_timeline
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR app_id = $2)
		  AND ($3 = '' OR upper(entity) = upper($3))
		  AND ($4 = '' OR category = $4)
		ORDER BY created_at DESC
	`, f.UserID, f.AppID, f.Entity, f.Category)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var result []timeline.Event
	for rows.Next() {
		var ev timeline.Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.AppID, &ev.Entity, &ev.Category, &ev.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
