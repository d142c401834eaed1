// Package users implements registration, account verification and the
// password lifecycle. Verification codes are short keyed digests over the
// user's email and a per-issue salt; they expire after five minutes and are
// deleted the moment they are consumed.
package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/mailer"
	"github.com/nine-apps/catalog_service/internal/app/metrics"
	"github.com/nine-apps/catalog_service/internal/app/signer"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

// codeTTL is how long an issued code stays valid, measured from the moment
// it was (re)issued.
const codeTTL = 5 * time.Minute

// minPasswordLength applies to every password-setting path.
const minPasswordLength = 8

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrMalformedCode is returned before any lookup when the candidate code
	// has the wrong length.
	ErrMalformedCode = errors.New("users: malformed code")
	// ErrCodeNotFound is returned when no outstanding code matches. A code
	// that was already consumed reports the same error.
	ErrCodeNotFound = errors.New("users: code not found")
	// ErrInvalidCode is returned when the candidate does not match the
	// recomputed signature.
	ErrInvalidCode = errors.New("users: invalid code")
	// ErrCodeExpired is returned for codes older than five minutes.
	ErrCodeExpired = errors.New("users: code expired")
	// ErrAlreadyVerified guards re-verification and code resend.
	ErrAlreadyVerified = errors.New("users: account already verified")
	// ErrNotVerified is returned when an operation needs a verified account.
	ErrNotVerified = errors.New("users: account not verified")
	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("users: account inactive")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("users: passwords do not match")
	// ErrPasswordTooShort is returned for passwords under eight characters.
	ErrPasswordTooShort = errors.New("users: password too short")
	// ErrSamePassword is returned when the new password equals the current one.
	ErrSamePassword = errors.New("users: new password must differ")
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = errors.New("users: wrong password")
	// ErrNoPendingReset is returned by SetPassword when the account's
	// password was never locked by a reset code.
	ErrNoPendingReset = errors.New("users: no pending password reset")
)

// Mailer is the slice of the dispatcher the service needs.
type Mailer interface {
	Enqueue(msg mailer.Message)
}

// Service owns the user account lifecycle.
type Service struct {
	users  storage.UserStore
	codes  storage.CodeStore
	events storage.TimelineStore
	mail   Mailer
	log    *logger.Logger
	now    func() time.Time
}

// NewService wires the users service. mail may be nil, in which case no
// email is sent; a nil logger falls back to the default one.
func NewService(users storage.UserStore, codes storage.CodeStore, events storage.TimelineStore, mail Mailer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{
		users:  users,
		codes:  codes,
		events: events,
		mail:   mail,
		log:    log,
		now:    time.Now,
	}
}

// RegisterInput carries the fields accepted at signup.
type RegisterInput struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
	PhoneNo   string
	Country   string
	AboutMe   string
}

// Register creates an account, issues its registration code and mails it.
// The account starts active but unverified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return user.User{}, fmt.Errorf("users: email is required")
	}
	if len(in.Password) < minPasswordLength {
		return user.User{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}
	eid, err := newEID()
	if err != nil {
		return user.User{}, err
	}

	now := s.now().UTC()
	u, err := s.users.CreateUser(ctx, user.User{
		Email:          email,
		PasswordHash:   string(hash),
		EID:            eid,
		Firstname:      in.Firstname,
		Lastname:       in.Lastname,
		PhoneNo:        in.PhoneNo,
		Country:        in.Country,
		AboutMe:        in.AboutMe,
		IsActive:       true,
		LastResendCode: now,
		DateJoined:     now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return user.User{}, ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	code := s.codeFor(u)
	if _, err := s.codes.UpsertRegCode(ctx, u.ID, code, now); err != nil {
		return user.User{}, fmt.Errorf("issue registration code: %w", err)
	}
	metrics.RecordCodeIssued("registration")

	if _, err := s.events.AppendEvent(ctx, timeline.Event{
		UserID:   u.ID,
		Entity:   timeline.EntityUser,
		Category: timeline.CategorySignup,
	}); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to record signup event")
	}

	s.sendCode(mailer.KindNewUser, u.Email, code)
	s.log.WithField("user_id", u.ID).Info("User registered")
	return u, nil
}

// VerifyRegistration consumes a registration code and marks the account
// verified. The code row is deleted in the same transaction, so a second
// call with the same code fails with ErrCodeNotFound.
func (s *Service) VerifyRegistration(ctx context.Context, code string) (user.User, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return user.User{}, err
	}

	ac, err := s.codes.GetCodeByRegCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrCodeNotFound
		}
		return user.User{}, fmt.Errorf("lookup code: %w", err)
	}
	u, err := s.users.GetUser(ctx, ac.UserID)
	if err != nil {
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if !signer.Verify(s.codeInput(u), u.EID, code) {
		return user.User{}, ErrInvalidCode
	}
	if s.now().Sub(ac.UpdatedAt) > codeTTL {
		return user.User{}, ErrCodeExpired
	}
	if u.IsVerified {
		return user.User{}, ErrAlreadyVerified
	}

	err = s.codes.ConsumeRegCode(ctx, ac.ID, u.ID, timeline.Event{
		UserID:   u.ID,
		Entity:   timeline.EntityUser,
		Category: timeline.CategoryAccountVerified,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Another request consumed the code first.
			return user.User{}, ErrCodeNotFound
		}
		return user.User{}, fmt.Errorf("consume code: %w", err)
	}
	metrics.RecordCodeConsumed("registration")

	u.IsVerified = true
	s.log.WithField("user_id", u.ID).Info("Account verified")
	return u, nil
}

// ResendRegistrationCode reissues the registration code. The salt moves with
// it, so any previously mailed code stops verifying.
func (s *Service) ResendRegistrationCode(ctx context.Context, email string) error {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	return s.reissue(ctx, u, mailer.KindNewUser)
}

// ForgotPassword issues a password reset code to an existing account.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrAccountInactive
	}
	return s.reissue(ctx, u, mailer.KindPasswordReset)
}

func (s *Service) reissue(ctx context.Context, u user.User, kind string) error {
	now := s.now().UTC()
	u.LastResendCode = now
	u, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return fmt.Errorf("update salt: %w", err)
	}

	code := s.codeFor(u)
	switch kind {
	case mailer.KindPasswordReset:
		_, err = s.codes.UpsertResetCode(ctx, u.ID, code, now)
		metrics.RecordCodeIssued("reset")
	default:
		_, err = s.codes.UpsertRegCode(ctx, u.ID, code, now)
		metrics.RecordCodeIssued("registration")
	}
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}

	s.sendCode(kind, u.Email, code)
	return nil
}

// VerifyPasswordReset consumes a reset code. On success the stored password
// hash is replaced with an unusable sentinel, locking the account out of
// login until SetPassword completes the flow.
func (s *Service) VerifyPasswordReset(ctx context.Context, email, code string) (user.User, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return user.User{}, err
	}

	ac, err := s.codes.GetCodeByResetCode(ctx, u.ID, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrCodeNotFound
		}
		return user.User{}, fmt.Errorf("lookup code: %w", err)
	}
	if !signer.Verify(s.codeInput(u), u.EID, code) {
		return user.User{}, ErrInvalidCode
	}
	if s.now().Sub(ac.UpdatedAt) > codeTTL {
		return user.User{}, ErrCodeExpired
	}

	locked, err := lockedPasswordHash()
	if err != nil {
		return user.User{}, err
	}
	if err := s.codes.ConsumeResetCode(ctx, ac.ID, u.ID, locked); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrCodeNotFound
		}
		return user.User{}, fmt.Errorf("consume code: %w", err)
	}
	metrics.RecordCodeConsumed("reset")

	u.PasswordHash = locked
	s.log.WithField("user_id", u.ID).Info("Password reset verified")
	return u, nil
}

// SetPassword completes the reset flow. It only applies to active, verified
// accounts whose password is currently locked by a consumed reset code.
func (s *Service) SetPassword(ctx context.Context, email, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrAccountInactive
	}
	if !u.IsVerified {
		return ErrNotVerified
	}
	if u.HasUsablePassword() {
		return ErrNoPendingReset
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.WithField("user_id", u.ID).Info("Password set")
	return nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	if next == current {
		return ErrSamePassword
	}
	if len(next) < minPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// GenerateStrongPassword returns a random 12-character password mixing
// letters, digits and symbols.
func GenerateStrongPassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
	out := make([]byte, 12)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// GetByEmail returns a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.users.GetUserByEmail(ctx, normalizeEmail(email))
}

// List returns users matching a substring search over email and names,
// optionally filtered by active state.
func (s *Service) List(ctx context.Context, search string, isActive *bool) ([]user.User, error) {
	return s.users.ListUsers(ctx, search, isActive)
}

// UpdateProfile persists profile field changes. Identity fields (email, eid,
// join date) are preserved by the store.
func (s *Service) UpdateProfile(ctx context.Context, u user.User) (user.User, error) {
	return s.users.UpdateUser(ctx, u)
}

// Delete removes a user and their outstanding codes.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.users.DeleteUser(ctx, id)
}

// codeInput is the signed payload: the email plus the salt timestamp taken
// at the last (re)issue. Reissuing moves the salt and orphans older codes.
func (s *Service) codeInput(u user.User) string {
	return u.Email + u.LastResendCode.UTC().Format(time.RFC3339Nano)
}

func (s *Service) codeFor(u user.User) string {
	return signer.Sign(s.codeInput(u), u.EID)
}

func (s *Service) sendCode(kind, recipient, code string) {
	if s.mail == nil {
		return
	}
	s.mail.Enqueue(mailer.Message{
		Kind:      kind,
		Recipient: recipient,
		Data:      map[string]string{"code": strings.ToUpper(code)},
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeCode(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != signer.CodeLength {
		return "", ErrMalformedCode
	}
	return code, nil
}

// newEID generates the per-user signing secret: 32 random bytes rendered as
// url-safe base64, 44 characters.
func newEID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate eid: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// lockedPasswordHash builds the unusable sentinel stored while a reset is
// pending. The leading '!' can never appear in a bcrypt hash, so login
// comparisons always fail.
func lockedPasswordHash() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate sentinel: %w", err)
	}
	return "!" + hex.EncodeToString(buf), nil
}
