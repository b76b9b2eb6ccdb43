package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "bottleworks/internal/core/context"
	"bottleworks/internal/core/security"
)

// UserContext propagates the authenticated user into the request context
// for the domain layer: security.GetUserID(ctx) for audit stamps and
// security.GetScope(ctx) for authorization checks (admin override).
//
// Must run AFTER Auth, which populates the user context.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := appctx.GetUser(c.Request.Context()); user != nil {
			ctx := security.WithUserID(c.Request.Context(), user.UserID)
			ctx = security.WithScope(ctx, security.ScopeFromUser(user))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
