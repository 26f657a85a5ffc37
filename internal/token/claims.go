package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Type distinguishes access from refresh tokens.
type Type string

const (
	// TypeAccess authorizes API requests.
	TypeAccess Type = "access"
	// TypeRefresh is only accepted by Refresh.
	TypeRefresh Type = "refresh"
)

// Identity is who a token speaks for.
type Identity struct {
	SubjectID uint64 `json:"subjectId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Claims is the token payload: sub_id, email, role, typ plus iat, exp, iss, aud and jti.
// iat_ms repeats iat in milliseconds, revocation watermarks are compared against it.
type Claims struct {
	SubjectID     uint64 `json:"sub_id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Type          Type   `json:"typ"`
	IssuedAtMilli int64  `json:"iat_ms"`

	jwt.RegisteredClaims
}

// Identity returns the identity bound by the claims.
func (c *Claims) Identity() Identity {
	return Identity{SubjectID: c.SubjectID, Email: c.Email, Role: c.Role}
}

// Pair is what login and refresh hand out.
type Pair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
