package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextScope  = "token_scope"
)

const apiTokenHeader = "X-API-Token"

// Middleware authenticates requests. It accepts either a Bearer JWT session
// token or an X-API-Token header carrying a raw API token secret.
func Middleware(issuer *SessionIssuer, verifier *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := c.Request().Header.Get(apiTokenHeader); raw != "" {
				t, err := verifier.Verify(c.Request().Context(), raw, c.RealIP())
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid api token")
				}
				c.Set(ContextUserID, t.UserID)
				c.Set(ContextScope, t.Scope)
				if t.Scope == ScopeAdmin {
					c.Set(ContextRole, "admin")
				} else {
					c.Set(ContextRole, "pharmacist")
				}
				return next(c)
			}

			authz := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(authz, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}
			claims, err := issuer.Validate(strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session subject")
			}
			c.Set(ContextUserID, userID)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextScope, ScopeReadWrite)
			return next(c)
		}
	}
}

// DevMiddleware grants every request an admin identity. Development only.
func DevMiddleware() echo.MiddlewareFunc {
	devUser := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextUserID, devUser)
			c.Set(ContextRole, "admin")
			c.Set(ContextScope, ScopeAdmin)
			return next(c)
		}
	}
}

// RequireRole restricts a route group to the listed roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if role == "admin" || allowed[role] {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

// RequireWriteScope rejects API tokens whose scope is read-only.
func RequireWriteScope() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope, _ := c.Get(ContextScope).(string)
			if scope == ScopeRead {
				return echo.NewHTTPError(http.StatusForbidden, "token scope does not allow writes")
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user id from the echo context.
func UserID(c echo.Context) uuid.UUID {
	id, _ := c.Get(ContextUserID).(uuid.UUID)
	return id
}
