package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/rehabdir/kv"
)

// TokenKey is the kv key holding the bearer credential.
const TokenKey = "auth_token"

// Session reads and writes the bearer credential in a kv.Store.
//
// Contract:
// - Concurrency: safe for concurrent use; the store serializes access.
// - Errors: a missing credential is ErrNotAuthenticated, never a store error.
type Session struct {
	store  kv.Store
	key    string
	now    func() time.Time
	parser *jwt.Parser
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTokenKey overrides the kv key holding the credential.
func WithTokenKey(key string) SessionOption {
	return func(s *Session) {
		if key != "" {
			s.key = key
		}
	}
}

// WithSessionClock replaces time.Now, for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a session over store.
func NewSession(store kv.Store, opts ...SessionOption) *Session {
	s := &Session{
		store:  store,
		key:    TokenKey,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn stores token as the current credential. A leading "Bearer"
// scheme is dropped.
func (s *Session) SignIn(ctx context.Context, token string) error {
	fields := strings.Fields(token)
	if len(fields) > 0 && strings.EqualFold(fields[0], "Bearer") {
		fields = fields[1:]
	}
	if len(fields) != 1 {
		return ErrInvalidCredentials
	}
	token = fields[0]
	if err := s.store.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("auth: store credential: %w", err)
	}
	return nil
}

// SignOut removes the stored credential. Signing out twice is not an error.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.store.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("auth: remove credential: %w", err)
	}
	return nil
}

// Token returns the stored credential.
//
// Opaque tokens are returned as stored. Tokens that decode as a JWT are
// checked against their exp claim.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("auth: read credential: %w", err)
	}
	if !ok || token == "" {
		return "", ErrNotAuthenticated
	}

	id, err := s.decode(token)
	if errors.Is(err, ErrTokenMalformed) {
		return token, nil
	}
	if id.IsExpired(s.now()) {
		return "", ErrTokenExpired
	}
	return token, nil
}

// Header returns the Authorization header value for the stored credential.
func (s *Session) Header(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// Authenticated reports whether a usable credential is stored.
func (s *Session) Authenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

// Identity decodes the stored JWT. It fails with ErrTokenMalformed for
// opaque tokens.
func (s *Session) Identity(ctx context.Context) (*Identity, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return s.decode(token)
}

func (s *Session) decode(token string) (*Identity, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrTokenMalformed
	}
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	return identityFromClaims(claims), nil
}
