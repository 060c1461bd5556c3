package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"boxoffice/internal/pkg/jwt"
	"boxoffice/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

// TokenValidator abstracts token parsing so handler tests can stub it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	tokenValidator TokenValidator
}

const ctxActorKey = "actor"

func NewAuthMiddleware(tokenValidator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokenValidator: tokenValidator,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(authHeader[len("Bearer "):])
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokenValidator.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxActorKey, shared.ActorRef{ID: claims.OperatorID, Label: claims.Label})
		c.Set("jwt_claims", map[string]any{
			"operator_id": claims.OperatorID.String(),
			"label":       claims.Label,
		})
		c.Next()
	}
}

// GetActor returns the authenticated operator set by RequireAuth.
func GetActor(c *gin.Context) (shared.ActorRef, bool) {
	v, exists := c.Get(ctxActorKey)
	if !exists {
		return shared.ActorRef{}, false
	}

	actor, ok := v.(shared.ActorRef)
	return actor, ok
}
