package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/auth"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	manager *session.Manager
	signer  *auth.CookieSigner
	cookie  *SessionCookie
	router  *gin.Engine
}

func newSessionFixture(t *testing.T, ttl, renewThreshold time.Duration) *sessionFixture {
	t.Helper()
	cfg := config.SessionConfig{
		TTL:            ttl,
		RenewThreshold: renewThreshold,
		CookieName:     "flowdesk_session",
		CookieSameSite: "lax",
	}
	signer, err := auth.NewCookieSigner("0123456789abcdef0123456789abcdef", "flowdesk")
	require.NoError(t, err)

	f := &sessionFixture{
		manager: session.NewManager(session.NewMemoryStore(), cfg, zap.NewNop(), nil),
		signer:  signer,
		cookie:  NewSessionCookie(cfg, signer),
	}

	f.router = gin.New()
	f.router.Use(RequestID())
	authed := f.router.Group("/api", SessionAuth(SessionAuthConfig{Sessions: f.manager, Cookie: f.cookie}), CSRF())
	authed.GET("/me", func(c *gin.Context) {
		actor, ok := audit.ActorFromContext(c.Request.Context())
		require.True(t, ok)
		c.String(http.StatusOK, actor.UserID.String())
	})
	authed.POST("/things", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return f
}

func (f *sessionFixture) open(t *testing.T) (string, *identity.Session) {
	t.Helper()
	token, sess, err := f.manager.Create(context.Background(), session.CreateInput{
		Scope: identity.SessionScope{
			UserID:    uuid.New(),
			AccountID: uuid.New(),
			TenantID:  uuid.New(),
			RoleID:    uuid.New(),
		},
		UserAgent: "test",
		IP:        "127.0.0.1",
	})
	require.NoError(t, err)
	return token, sess
}

func (f *sessionFixture) request(t *testing.T, method, path, cookieValue, csrf string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: "flowdesk_session", Value: cookieValue})
	}
	if csrf != "" {
		req.Header.Set(CSRFHeader, csrf)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func clearedCookie(w *httptest.ResponseRecorder) bool {
	for _, c := range w.Result().Cookies() {
		if c.Name == "flowdesk_session" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestSessionAuth(t *testing.T) {
	f := newSessionFixture(t, 24*time.Hour, 12*time.Hour)
	token, sess := f.open(t)
	value, err := f.signer.Sign(token, sess.ExpiresAt)
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/me", value, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, sess.UserID.String(), w.Body.String())
		assert.Empty(t, w.Result().Cookies(), "no reissue while the session is fresh")
	})

	t.Run("missing cookie", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Code)
	})

	t.Run("bad signature clears the cookie", func(t *testing.T) {
		other, err := auth.NewCookieSigner("another-secret-another-secret-xx", "flowdesk")
		require.NoError(t, err)
		forged, err := other.Sign(token, sess.ExpiresAt)
		require.NoError(t, err)

		w := f.request(t, http.MethodGet, "/api/me", forged, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeSessionInvalid, decodeResponse(t, w).Code)
		assert.True(t, clearedCookie(w))
	})

	t.Run("expired cookie", func(t *testing.T) {
		expired, err := f.signer.Sign(token, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		w := f.request(t, http.MethodGet, "/api/me", expired, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, clearedCookie(w))
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := f.signer.Sign(sess.ID+".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", sess.ExpiresAt)
		require.NoError(t, err)

		w := f.request(t, http.MethodGet, "/api/me", forged, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeSessionInvalid, decodeResponse(t, w).Code)
	})

	t.Run("revoked session", func(t *testing.T) {
		token2, sess2 := f.open(t)
		value2, err := f.signer.Sign(token2, sess2.ExpiresAt)
		require.NoError(t, err)
		require.NoError(t, f.manager.Revoke(context.Background(), sess2.UserID, sess2.ID))

		w := f.request(t, http.MethodGet, "/api/me", value2, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeSessionNotFound, decodeResponse(t, w).Code)
		assert.True(t, clearedCookie(w))
	})
}

func TestSessionAuth_ReissuesRenewedCookie(t *testing.T) {
	// every validation renews when the threshold equals the ttl
	f := newSessionFixture(t, time.Hour, time.Hour)
	token, sess := f.open(t)
	value, err := f.signer.Sign(token, sess.ExpiresAt.Add(-30*time.Minute))
	require.NoError(t, err)

	w := f.request(t, http.MethodGet, "/api/me", value, "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	got, err := f.signer.Verify(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestCSRF(t *testing.T) {
	f := newSessionFixture(t, 24*time.Hour, 12*time.Hour)
	token, sess := f.open(t)
	value, err := f.signer.Sign(token, sess.ExpiresAt)
	require.NoError(t, err)

	t.Run("safe methods skip the check", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/me", value, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/things", value, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeCSRF, decodeResponse(t, w).Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/things", value, "not-the-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("matching token", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/things", value, sess.CSRFToken)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}
