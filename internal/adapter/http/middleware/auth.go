package middleware

import (
	"net/http"
	"strings"

	. "todoweb/internal/adapter/http/helper"
	. "todoweb/pkg/auth"

	"todoweb/internal/core/domain"

	"github.com/gin-gonic/gin"
)

// ResolveIdentity attaches x-user-id and x-user-role when a valid bearer
// token is present, rejecting nothing. It must run on the engine, ahead of
// the response cache and rate limiter: both key on the caller's identity,
// and an unset user id would collapse their keys onto the client IP, so
// users behind one NAT would share cache entries and quota.
func ResolveIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")

		if !strings.HasPrefix(bearer, "Bearer ") {
			c.Next()
			return
		}

		token, err := VerifyJwtToken(bearer[len("Bearer "):])

		if err != nil {
			c.Next()
			return
		}

		userId, ok := token["user_id"].(float64)

		if !ok {
			c.Next()
			return
		}

		role, _ := token["role"].(string)

		if role == "" {
			role = string(domain.RoleUser)
		}

		c.Set("x-user-id", int(userId))
		c.Set("x-user-role", role)

		c.Next()
	}
}

// IdentityMiddleware verifies the bearer token and exposes the caller's
// identity to downstream handlers as x-user-id and x-user-role. When
// ResolveIdentity already ran, its verified claims are reused.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetInt("x-user-id") > 0 {
			c.Next()
			return
		}

		bearer := c.GetHeader("Authorization")

		if bearer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errors": []string{"Unauthorized request"},
			})

			c.Abort()
			return
		}

		if !strings.HasPrefix(bearer, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errors": []string{"Invalid authorization format"},
			})

			c.Abort()
			return
		}

		token, err := VerifyJwtToken(bearer[len("Bearer "):])

		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errors": []string{"Unauthorized request", err.Error()},
			})
			c.Abort()
			return
		}

		userId, ok := token["user_id"].(float64)

		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"errors": []string{"Unauthorized request"},
			})
			c.Abort()
			return
		}

		role, _ := token["role"].(string)

		if role == "" {
			role = string(domain.RoleUser)
		}

		c.Set("x-user-id", int(userId))
		c.Set("x-user-role", role)

		c.Next()
	}
}

// RequireAdmin gates a route group to admin callers. It must run after
// IdentityMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("x-user-role")

		if role != string(domain.RoleAdmin) {
			SendForbiddenError(c, "Admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
