package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/rehabdir/kv"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-at-least-32-bytes"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func newTestSession(store kv.Store) *Session {
	return NewSession(store, WithSessionClock(func() time.Time { return testNow }))
}

type brokenStore struct{ kv.Store }

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk full")
}

func TestSession_NotAuthenticated(t *testing.T) {
	s := newTestSession(kv.NewMemory())

	if _, err := s.Token(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Token() error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := s.Header(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Header() error = %v, want ErrNotAuthenticated", err)
	}
	if s.Authenticated(context.Background()) {
		t.Error("Authenticated() = true without a credential")
	}
}

func TestSession_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := newTestSession(store)

	if err := s.SignIn(ctx, "Bearer opaque-token"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if raw, _, _ := store.Get(ctx, TokenKey); raw != "opaque-token" {
		t.Errorf("stored credential = %q, want opaque-token", raw)
	}

	header, err := s.Header(ctx)
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if header != "Bearer opaque-token" {
		t.Errorf("Header() = %q, want Bearer opaque-token", header)
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut() error = %v", err)
	}
	if s.Authenticated(ctx) {
		t.Error("Authenticated() = true after SignOut")
	}
}

func TestSession_SignInRejectsEmpty(t *testing.T) {
	s := newTestSession(kv.NewMemory())
	for _, token := range []string{"", "   ", "Bearer "} {
		if err := s.SignIn(context.Background(), token); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("SignIn(%q) error = %v, want ErrInvalidCredentials", token, err)
		}
	}
}

func TestSession_ExpiredJWT(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(kv.NewMemory())

	token := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": testNow.Add(-time.Minute).Unix(),
	})
	if err := s.SignIn(ctx, token); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if _, err := s.Token(ctx); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Token() error = %v, want ErrTokenExpired", err)
	}
}

func TestSession_ValidJWTIdentity(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(kv.NewMemory())

	token := signedToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "ana@example.com",
		"name":  "Ana",
		"roles": []any{"patient", "reviewer"},
		"exp":   testNow.Add(time.Hour).Unix(),
		"iat":   testNow.Add(-time.Hour).Unix(),
	})
	_ = s.SignIn(ctx, token)

	got, err := s.Token(ctx)
	if err != nil || got != token {
		t.Fatalf("Token() = %q, %v, want stored token", got, err)
	}

	id, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.Principal != "user-1" {
		t.Errorf("Principal = %q, want user-1", id.Principal)
	}
	if id.Email != "ana@example.com" || id.Name != "Ana" {
		t.Errorf("Email, Name = %q, %q", id.Email, id.Name)
	}
	if !id.HasRole("reviewer") || id.HasRole("admin") {
		t.Errorf("Roles = %v", id.Roles)
	}
	if !id.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, testNow.Add(time.Hour))
	}
	if id.IsExpired(testNow) {
		t.Error("IsExpired() = true before exp")
	}
}

func TestSession_OpaqueTokenHasNoIdentity(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(kv.NewMemory())
	_ = s.SignIn(ctx, "opaque")

	if _, err := s.Identity(ctx); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Identity() error = %v, want ErrTokenMalformed", err)
	}
}

func TestSession_GarbledJWTTreatedAsOpaque(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(kv.NewMemory())
	_ = s.SignIn(ctx, "not.a.jwt")

	if got, err := s.Token(ctx); err != nil || got != "not.a.jwt" {
		t.Errorf("Token() = %q, %v, want the stored token", got, err)
	}
}

func TestSession_StoreErrorsSurface(t *testing.T) {
	s := newTestSession(brokenStore{kv.NewMemory()})

	_, err := s.Token(context.Background())
	if err == nil || errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Token() error = %v, want a store error", err)
	}
}

func TestSession_CustomKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := NewSession(store, WithTokenKey("session"))

	_ = s.SignIn(ctx, "tok")
	if _, ok, _ := store.Get(ctx, "session"); !ok {
		t.Error("credential not stored under the custom key")
	}
}

func TestIdentity_NilSafe(t *testing.T) {
	var id *Identity
	if id.HasRole("admin") {
		t.Error("nil identity has a role")
	}
	if id.IsExpired(testNow) {
		t.Error("nil identity is expired")
	}
}

func TestContext_Identity(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Error("empty context carries an identity")
	}

	ctx = WithIdentity(ctx, &Identity{Principal: "user-1"})
	if got := PrincipalFromContext(ctx); got != "user-1" {
		t.Errorf("PrincipalFromContext() = %q, want user-1", got)
	}
}
