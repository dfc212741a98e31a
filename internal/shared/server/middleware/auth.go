package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/auth"
	"dochub-backend/internal/shared/metrics"
	"dochub-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	principalKey = "principal"
)

// PrincipalResolver turns an Authorization header into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, header string) (auth.Principal, error)
}

// Auth resolves the bearer token on every request and stores the principal
// in context. Requests without a usable token are rejected with 401; tokens
// belonging to a disabled account with 403.
func Auth(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			writeAuthError(c, err)
			return
		}

		c.Set(userIDKey, p.ID)
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireSuperuser rejects principals without the superuser flag. It must
// run after Auth.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok || !p.IsSuperuser {
			respond.Error(c, http.StatusForbidden, "forbidden", "Not enough privileges", nil)
			return
		}
		c.Next()
	}
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInactivePrincipal):
		metrics.IncAuthFailure("inactive")
		respond.Error(c, http.StatusForbidden, "inactive_user", "User account is inactive", nil)
	case errors.Is(err, auth.ErrMissingCredentials):
		metrics.IncAuthFailure("missing")
		c.Header("WWW-Authenticate", "Bearer")
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Not authenticated", nil)
	case errors.Is(err, auth.ErrTokenExpired):
		metrics.IncAuthFailure("expired")
		c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="token expired"`)
		respond.Error(c, http.StatusUnauthorized, "token_expired", "Token has expired", nil)
	case errors.Is(err, auth.ErrUnauthenticated):
		metrics.IncAuthFailure("invalid")
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "Could not validate credentials", nil)
	default:
		respond.Internal(c, "auth.resolve", err)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// PrincipalFromContext fetches the principal set by the auth middleware.
func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	if c == nil {
		return auth.Principal{}, false
	}
	val, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := val.(auth.Principal)
	return p, ok
}
