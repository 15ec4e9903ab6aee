package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the verified identity.
const ContextIdentityKey = "identity"

type authenticator interface {
	Authenticate(ctx context.Context, header string) (*models.Identity, error)
}

// Auth protects routes by requiring a verified bearer token on every request.
func Auth(identities authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := identities.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		identity.IP = c.ClientIP()
		identity.UserAgent = c.GetHeader("User-Agent")
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok && identity != nil
}
