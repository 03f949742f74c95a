package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantParam is the route parameter holding the tenant id
const TenantParam = "tenantId"

// TenantResolver resolves the membership and role of a user in a tenant
type TenantResolver interface {
	Access(ctx context.Context, tenantID, userID uuid.UUID) (*identity.TenantAccess, error)
}

// TenantAccess loads the caller's membership in the tenant named by the
// route. Any tenant the user belongs to is accepted, not only the
// session's active one. Membership is looked up on every request, so a
// removed member loses access immediately. Must run after SessionAuth.
func TenantAccess(resolver TenantResolver, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param(TenantParam))
		if err != nil {
			abortWithError(c, http.StatusNotFound, dto.ErrCodeNotFound, shared.ErrNotFound.Message)
			return
		}
		userID := GetUserID(c)
		if userID == uuid.Nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		access, err := resolver.Access(c.Request.Context(), tenantID, userID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			abortWithError(c, http.StatusNotFound, dto.ErrCodeNotFound, shared.ErrNotFound.Message)
			return
		case errors.Is(err, shared.ErrForbidden):
			log.Warn("Tenant access denied",
				zap.String("user_id", userID.String()),
				zap.String("tenant_id", tenantID.String()),
			)
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, shared.ErrForbidden.Message)
			return
		case err != nil:
			log.Error("Tenant access lookup failed", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
			return
		}

		c.Set(TenantAccessKey, access)
		c.Set(logger.GinTenantIDKey, tenantID.String())
		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
