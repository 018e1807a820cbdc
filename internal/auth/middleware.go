package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mintzusung/restaurant-orders/internal/httpx"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
)

const identityKey = "identity"

// Middleware turns the Authorization header into an rbac.Identity or rejects
// the request with 401 before any handler runs.
func Middleware(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		id, err := s.Identify(c.Request.Context(), token)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// SetIdentity attaches the caller to the request context.
func SetIdentity(c *gin.Context, id rbac.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the caller set by Middleware. Handlers behind the
// middleware can rely on it being present.
func IdentityFrom(c *gin.Context) rbac.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(rbac.Identity)
	return id
}
