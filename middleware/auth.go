package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	UserContextKey      = "userID"
	UserEmailContextKey = "userEmail"
)

// AuthMiddleware trusts the identity headers set by the API gateway after it has
// verified the caller's token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "UNAUTHORIZED"})
			return
		}
		c.Set(UserContextKey, userID)
		c.Set(UserEmailContextKey, strings.TrimSpace(c.GetHeader("X-User-Email")))
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

// GetUserEmail returns the caller's email, or "" when the gateway did not send one.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(UserEmailContextKey)
}

// UserRateKey keys rate limiting by authenticated user, falling back to client IP.
func UserRateKey(c *gin.Context) string {
	if id, err := GetUserID(c); err == nil {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}
