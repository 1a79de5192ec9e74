package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the backend's JWT claims. The client never verifies the
// signature (it has no key and the backend is the authority); claims are
// decoded only for pre-flight expiry checks and diagnostics.
type TokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// decodeClaims parses token without verification.
func decodeClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Claims returns the decoded token claims.
// ok is false when no token is held or it is not a well-formed JWT.
func (s *Store) Claims() (*TokenClaims, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return nil, false
	}
	claims, err := decodeClaims(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// TokenExpired reports whether the held token carries an exp claim in the
// past. Opaque or claim-less tokens are never reported expired; the
// backend's 401 remains the authority.
func (s *Store) TokenExpired() bool {
	claims, ok := s.Claims()
	if !ok || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
