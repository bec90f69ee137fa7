package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "clinicstock/internal/core/context"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderClinicID = "X-Clinic-ID"
)

// UserContext copies the caller identity set by the upstream gateway into
// the request context, where audit records pick it up.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
				UserID:   userID,
				ClinicID: c.GetHeader(HeaderClinicID),
			})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
