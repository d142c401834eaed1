package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nine-apps/catalog_service/internal/app/domain/user"
)

const (
	// TypeAccess and TypeRefresh discriminate the two token kinds so a
	// refresh token can never be replayed against an access endpoint.
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalidToken covers malformed, mis-signed and wrong-type tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenRevoked is returned for refresh tokens found on the blacklist.
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// Claims carries the identity payload embedded in both token kinds.
type Claims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Firstname  string `json:"firstname,omitempty"`
	Lastname   string `json:"lastname,omitempty"`
	IsVerified bool   `json:"is_verified"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// TokenIssuer mints and validates HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates an issuer signing with secret. TTLs of zero fall
// back to 15 minutes for access and 7 days for refresh tokens.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue returns a fresh access/refresh pair for u.
func (t *TokenIssuer) Issue(u user.User) (*TokenPair, error) {
	access, err := t.mint(u, TypeAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.mint(u, TypeRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int64(t.accessTTL.Seconds()),
		RefreshExpiresIn: int64(t.refreshTTL.Seconds()),
	}, nil
}

func (t *TokenIssuer) mint(u user.User, tokenType string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:     u.ID,
		Email:      u.Email,
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
		IsVerified: u.IsVerified,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        fmt.Sprintf("%s-%d", tokenType, now.UnixNano()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Validate parses tokenString, checks the signature and expiry, and
// enforces that its token_type claim matches wantType.
func (t *TokenIssuer) Validate(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
