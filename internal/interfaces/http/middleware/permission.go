package middleware

import (
	"net/http"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequirePermission denies the request unless the caller's role in the
// current tenant grants perm. Must run after TenantAccess.
func RequirePermission(perm identity.Permission, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		access := GetTenantAccess(c)
		if access == nil || !access.Can(perm) {
			role := ""
			if access != nil && access.Role != nil {
				role = access.Role.Name
			}
			log.Warn("Permission denied",
				zap.String("user_id", GetUserID(c).String()),
				zap.String("tenant_id", GetTenantID(c).String()),
				zap.String("role", role),
				zap.String("required_permission", string(perm)),
				zap.String("path", c.FullPath()),
				zap.String("method", c.Request.Method),
			)
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

// HasPermission reports whether the caller's tenant role grants perm
func HasPermission(c *gin.Context, perm identity.Permission) bool {
	access := GetTenantAccess(c)
	return access != nil && access.Can(perm)
}
