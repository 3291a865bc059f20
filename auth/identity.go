package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity describes the signed-in user as far as the token tells.
type Identity struct {
	// Principal is the subject claim, usually the user id.
	Principal string

	// Email and Name come from the claims of the same name when present.
	Email string
	Name  string

	// Roles are read from the roles claim.
	Roles []string

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// ExpiresAt is zero for tokens without exp.
	ExpiresAt time.Time

	// IssuedAt is zero for tokens without iat.
	IssuedAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired reports whether the identity expired before now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		identity.Claims[k] = v
	}

	if sub, err := claims.GetSubject(); err == nil {
		identity.Principal = sub
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}

	switch roles := claims["roles"].(type) {
	case []any:
		identity.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				identity.Roles = append(identity.Roles, s)
			}
		}
	case string:
		identity.Roles = []string{roles}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}

	return identity
}
