package utils // package utils provides helpers for token creation and hashing

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed JWT along with its expiry.  The Token
// field contains the JWT string.  Exp stores the expiration timestamp as a
// time.Time.  Tokens are sent in the Authorization header when calling
// protected endpoints.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user ID, the user's role, the user's tenant id (zero
// for platform users) and a TTL in hours.  The JWT includes standard claims:
// subject (sub), role, tenant, expiration (exp) and issued at (iat).
func NewSessionToken(secret string, userID uint64, role string, tenantID uint64, ttlHours int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlHours) * time.Hour)
	claims := jwt.MapClaims{
		"sub":    userID,
		"role":   role,
		"tenant": tenantID,
		"exp":    exp.Unix(),
		"iat":    time.Now().UTC().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
