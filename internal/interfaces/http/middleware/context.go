package middleware

import (
	"github.com/flowdesk/backend/internal/application/identity"
	domain "github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names
const (
	RequestIDHeader = "X-Request-ID"
	CSRFHeader      = "X-CSRF-Token"
)

// Gin context keys
const (
	SessionKey      = "session"
	SessionTokenKey = "session_token"
	TenantAccessKey = "tenant_access"
)

// GetRequestID returns the request id set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// GetSession returns the authenticated session, or nil
func GetSession(c *gin.Context) *domain.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*domain.Session); ok {
			return s
		}
	}
	return nil
}

// GetUserID returns the authenticated user id, or uuid.Nil
func GetUserID(c *gin.Context) uuid.UUID {
	if s := GetSession(c); s != nil {
		return s.UserID
	}
	return uuid.Nil
}

// GetTenantAccess returns the access resolved by TenantAccess, or nil
func GetTenantAccess(c *gin.Context) *identity.TenantAccess {
	if v, ok := c.Get(TenantAccessKey); ok {
		if a, ok := v.(*identity.TenantAccess); ok {
			return a
		}
	}
	return nil
}

// GetTenantID returns the tenant of the current tenant route, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if a := GetTenantAccess(c); a != nil {
		return a.Tenant.ID
	}
	return uuid.Nil
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
