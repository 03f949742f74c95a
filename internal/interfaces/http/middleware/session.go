package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/auth"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionValidator resolves a session token to a live session
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*identity.Session, error)
}

// SessionCookie writes, reads and clears the signed session cookie
type SessionCookie struct {
	signer   *auth.CookieSigner
	name     string
	domain   string
	path     string
	secure   bool
	sameSite http.SameSite
}

// NewSessionCookie creates the cookie helper from the session settings
func NewSessionCookie(cfg config.SessionConfig, signer *auth.CookieSigner) *SessionCookie {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	path := cfg.CookiePath
	if path == "" {
		path = "/"
	}
	return &SessionCookie{
		signer:   signer,
		name:     cfg.CookieName,
		domain:   cfg.CookieDomain,
		path:     path,
		secure:   cfg.CookieSecure,
		sameSite: sameSite,
	}
}

// Name returns the cookie name
func (sc *SessionCookie) Name() string {
	return sc.name
}

// Set stores token in a cookie that expires with the session
func (sc *SessionCookie) Set(c *gin.Context, token string, expiresAt time.Time) error {
	value, err := sc.signer.Sign(token, expiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.name,
		Value:    value,
		Path:     sc.path,
		Domain:   sc.domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   sc.secure,
		HttpOnly: true,
		SameSite: sc.sameSite,
	})
	return nil
}

// Clear expires the cookie in the browser
func (sc *SessionCookie) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.name,
		Value:    "",
		Path:     sc.path,
		Domain:   sc.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   sc.secure,
		HttpOnly: true,
		SameSite: sc.sameSite,
	})
}

func (sc *SessionCookie) read(c *gin.Context) (*auth.CookieClaims, error) {
	value, err := c.Cookie(sc.name)
	if err != nil || value == "" {
		return nil, http.ErrNoCookie
	}
	return sc.signer.Parse(value)
}

// SessionAuthConfig holds configuration for the session middleware
type SessionAuthConfig struct {
	Sessions SessionValidator
	Cookie   *SessionCookie
	Logger   *zap.Logger
}

// SessionAuth authenticates the request from the session cookie. A bad
// signature, an expired cookie or an unknown session answers 401 and
// clears the cookie. When the session was renewed the cookie is reissued
// with the new expiry.
func SessionAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		claims, err := cfg.Cookie.read(c)
		if errors.Is(err, http.ErrNoCookie) {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if err != nil {
			cfg.Cookie.Clear(c)
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeSessionInvalid, identity.ErrSessionInvalid.Message)
			return
		}

		sess, err := cfg.Sessions.Validate(c.Request.Context(), claims.SessionToken)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				cfg.Cookie.Clear(c)
				abortWithError(c, http.StatusUnauthorized, de.Code, de.Message)
				return
			}
			log.Error("Session lookup failed", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
			return
		}

		if claims.ExpiresAt != nil && sess.ExpiresAt.After(claims.ExpiresAt.Add(time.Minute)) {
			if err := cfg.Cookie.Set(c, claims.SessionToken, sess.ExpiresAt); err != nil {
				log.Warn("Failed to reissue session cookie", zap.Error(err))
			}
		}

		c.Set(SessionKey, sess)
		c.Set(SessionTokenKey, claims.SessionToken)
		c.Set(logger.GinUserIDKey, sess.UserID.String())

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), sess.UserID.String())
		ctx = audit.WithActor(ctx, audit.Actor{
			UserID:    sess.UserID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CSRF requires unsafe methods to echo the session's CSRF token in the
// X-CSRF-Token header. Must run after SessionAuth.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		sess := GetSession(c)
		header := c.GetHeader(CSRFHeader)
		if sess == nil || header == "" || !sess.MatchesCSRF(header) {
			abortWithError(c, http.StatusForbidden, dto.ErrCodeCSRF, "Missing or invalid CSRF token")
			return
		}
		c.Next()
	}
}
