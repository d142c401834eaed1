package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nine-apps/catalog_service/internal/app/domain/user"
	"github.com/nine-apps/catalog_service/internal/app/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, user.User) {
	t.Helper()
	store := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u, err := store.CreateUser(context.Background(), user.User{
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Firstname:    "Alice",
		IsActive:     true,
		IsVerified:   true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	issuer := NewTokenIssuer("test-secret", time.Minute, time.Hour)
	return NewService(store, issuer, nil, nil), store, u
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, store, u := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}

	claims, err := svc.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if claims.UserID != u.ID || claims.Email != "alice@example.com" || !claims.IsVerified {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	got, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.LastLogin.IsZero() {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	svc, store, u := newTestService(t)
	ctx := context.Background()

	u.IsActive = false
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "hunter22"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("got %v, want ErrAccountDisabled", err)
	}
}

func TestLoginRejectsLockedPassword(t *testing.T) {
	svc, store, u := newTestService(t)
	ctx := context.Background()

	u.PasswordHash = "!locked"
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesAndRevokes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == "" || next.RefreshToken == "" {
		t.Fatal("expected a full pair from refresh")
	}

	// The presented token was revoked during rotation.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("reused refresh token: got %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("got %v, want ErrTokenRevoked", err)
	}

	// Logging out twice, or with garbage, is not an error.
	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Logout(ctx, "not-a-token"); err != nil {
		t.Fatalf("garbage logout: %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute, time.Hour)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	token, err := issuer.mint(user.User{ID: "1", Email: "a@b.c"}, TypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Validate(token, TypeAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute, time.Hour)
	other := NewTokenIssuer("other-secret", time.Minute, time.Hour)

	token, err := other.mint(user.User{ID: "1"}, TypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := issuer.Validate(token, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestMemoryBlacklistExpiry(t *testing.T) {
	bl := NewMemoryBlacklist()
	base := time.Now()
	bl.now = func() time.Time { return base }
	ctx := context.Background()

	if err := bl.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := bl.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("expected token to be revoked")
	}

	bl.now = func() time.Time { return base.Add(2 * time.Minute) }
	if revoked, _ := bl.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("expected revocation to lapse with the token")
	}
}
