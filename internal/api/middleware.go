package api

import (
	"context"
	"net/http"
	"strings"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/service"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// SessionResolver maps a bearer token to the caller's identity
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// requireSession rejects requests without a live session and stores the identity on the context
func requireSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request.Context(), bearerToken(c))
		if err != nil {
			if kind, ok := service.KindOf(err); ok && kind == service.KindUnauthenticated {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   string(kind),
					"details": err.Error(),
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"details": "failed to resolve session",
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireStaff only lets staff members through
func requireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentIdentity(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   string(service.KindForbidden),
				"details": "staff access required",
			})
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
