package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
	"github.com/tmc-tutoring/match-api/pkg/response"
)

// ContextAdminKey is the gin context key storing the admin session claims.
const ContextAdminKey = "adminSession"

type sessionValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.AdminClaims, error)
}

// AdminSession protects routes by requiring a token of the current admin session.
func AdminSession(sessions sessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}

// AdminClaims returns the session claims attached by AdminSession.
func AdminClaims(c *gin.Context) (*models.AdminClaims, bool) {
	value, exists := c.Get(ContextAdminKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.AdminClaims)
	return claims, ok
}
