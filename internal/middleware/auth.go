package middleware

import (
	"errors"
	"net/http"
	"strings"

	"CuteTutor/internal/auth"
	"CuteTutor/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	ContextUsername = "username"
	ContextSession  = "session"
)

// AuthMiddleware accepts "Authorization: Bearer <jwt>" or, for WebSocket and
// download links, a "token" query parameter.
func AuthMiddleware(tokens *auth.TokenManager, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			var vErr *jwt.ValidationError
			if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// 재시작 또는 로그아웃으로 세션이 사라진 경우
		st, err := sessions.Get(claims.SessionID, claims.Username)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please login again"})
			return
		}

		c.Set(ContextUsername, claims.Username)
		c.Set(ContextSession, st)
		c.Next()
	}
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) *session.State {
	v, _ := c.Get(ContextSession)
	st, _ := v.(*session.State)
	return st
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", false
		}
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
