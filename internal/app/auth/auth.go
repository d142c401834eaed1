// Package auth implements credential checks and JWT session tokens for the
// catalog service. Access tokens are short-lived HS256 JWTs; refresh tokens
// are longer-lived JWTs that can be revoked through a blacklist.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/storage"
	"github.com/nine-apps/catalog_service/pkg/logger"
)

var (
	// ErrInvalidCredentials is returned for unknown emails, wrong
	// passwords and accounts whose password has been locked pending a
	// reset. The caller cannot tell which, on purpose.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// dummyHash is compared against when the email does not exist, so the miss
// costs the same as a real password check.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service authenticates users and manages their token lifecycle.
type Service struct {
	users     storage.UserStore
	issuer    *TokenIssuer
	blacklist Blacklist
	log       *logger.Logger
	now       func() time.Time
}

// NewService wires an authenticator. A nil blacklist falls back to the
// in-memory implementation and a nil logger to the default one.
func NewService(users storage.UserStore, issuer *TokenIssuer, blacklist Blacklist, log *logger.Logger) *Service {
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		users:     users,
		issuer:    issuer,
		blacklist: blacklist,
		log:       log,
		now:       time.Now,
	}
}

// Login checks email/password and returns a token pair. The user's
// last_login timestamp is updated on success.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn a hash comparison so the miss is not observable
			// through response timing.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.HasUsablePassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	pair, err := s.issuer.Issue(u)
	if err != nil {
		return nil, err
	}

	u.LastLogin = s.now().UTC()
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to record last login")
	}

	s.log.WithField("user_id", u.ID).Info("User logged in")
	return pair, nil
}

// Refresh exchanges a valid, unrevoked refresh token for a fresh pair.
// The presented refresh token is revoked so it cannot be reused.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.issuer.Validate(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.revokeClaims(ctx, claims); err != nil {
		return nil, err
	}
	return s.issuer.Issue(u)
}

// Logout revokes a refresh token. Expired or malformed tokens are treated
// as already logged out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.issuer.Validate(refreshToken, TypeRefresh)
	if err != nil {
		return nil
	}
	return s.revokeClaims(ctx, claims)
}

// TokensFor issues a pair for a user authenticated by other means, such as
// a consumed registration code.
func (s *Service) TokensFor(u user.User) (*TokenPair, error) {
	return s.issuer.Issue(u)
}

// ValidateAccess checks an access token and returns its claims.
func (s *Service) ValidateAccess(tokenString string) (*Claims, error) {
	return s.issuer.Validate(tokenString, TypeAccess)
}

func (s *Service) revokeClaims(ctx context.Context, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
