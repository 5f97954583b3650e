package middleware // middleware contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token,
// resolves the user it names and injects a typed Identity into the request
// context.  The provided secret must match the one used when issuing
// tokens.  Beyond signature and expiry checks, the user record is loaded so
// that accounts disabled after token issue are still rejected.
func JWTAuth(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return authErr(c, http.StatusUnauthorized, "authentication required")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject other signing methods.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return authErr(c, http.StatusUnauthorized, "token expired")
				}
				return authErr(c, http.StatusUnauthorized, "invalid token")
			}
			if !tok.Valid {
				return authErr(c, http.StatusUnauthorized, "invalid token")
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return authErr(c, http.StatusUnauthorized, "invalid claims")
			}
			sub, okSub := claimUint(claims, "sub")
			_, okRole := claims["role"].(string)
			if !okSub || !okRole {
				return authErr(c, http.StatusUnauthorized, "invalid claims")
			}

			// Resolve the user so status and role changes take effect
			// immediately instead of at token expiry.
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, sub)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return authErr(c, http.StatusUnauthorized, "invalid token")
				}
				return authErr(c, http.StatusInternalServerError, "database error")
			}
			if u.Status != repository.UserActive {
				return authErr(c, http.StatusForbidden, "account is inactive")
			}

			tenantID, _ := claimUint(claims, "tenant")
			c.Set(identityKey, Identity{
				UserID:   u.ID,
				Name:     u.Name,
				Email:    u.Email,
				Role:     u.Role,
				TenantID: tenantID,
			})
			return next(c)
		}
	}
}

// claimUint reads a numeric claim; JSON numbers decode as float64.
func claimUint(claims jwt.MapClaims, key string) (uint64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}

// authErr writes the standard error envelope used across the API.
func authErr(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{
		"success": false,
		"message": msg,
		"errors":  []string{},
	})
}
