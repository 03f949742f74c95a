package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/auth"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/flowdesk/backend/internal/infrastructure/telemetry"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/flowdesk/backend/internal/interfaces/http/handler"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "/api", r.prefix)
	assert.Empty(t, r.registrars)
}

func TestRouterWithPrefix(t *testing.T) {
	r := NewRouter(gin.New(), WithPrefix("/internal"))
	assert.Equal(t, "/internal", r.prefix)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Use(func(c *gin.Context) {
		c.Header("X-Api", "1")
		c.Next()
	})
	r.Register(group)
	r.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Api"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("pipelines", "/pipelines")
		assert.Equal(t, "pipelines", g.Name())
		assert.Equal(t, "/pipelines", g.Prefix())
		assert.Zero(t, g.Routes())
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("items", "/items")
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
		g.GET("", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
		assert.Equal(t, 5, g.Routes())

		g.RegisterRoutes(engine.Group("/api"))

		for method, path := range map[string]string{
			http.MethodGet:    "/api/items",
			http.MethodPost:   "/api/items",
			http.MethodPut:    "/api/items/1",
			http.MethodPatch:  "/api/items/1",
			http.MethodDelete: "/api/items/1",
		} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.Equal(t, method, w.Body.String())
		}
	})

	t.Run("subgroups inherit middleware", func(t *testing.T) {
		engine := gin.New()
		var calls []string
		g := NewDomainGroup("tenant", "/tenant").Use(func(c *gin.Context) {
			calls = append(calls, "tenant")
			c.Next()
		})
		g.Group("roles", "/:tenantId/roles").
			Use(func(c *gin.Context) {
				calls = append(calls, "roles")
				c.Next()
			}).
			GET("", func(c *gin.Context) { c.String(http.StatusOK, c.Param("tenantId")) })

		g.RegisterRoutes(engine.Group("/api"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tenant/abc/roles", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())
		assert.Equal(t, []string{"tenant", "roles"}, calls)
	})
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Access(ctx context.Context, tenantID, userID uuid.UUID) (*appidentity.TenantAccess, error) {
	args := m.Called(ctx, tenantID, userID)
	if a := args.Get(0); a != nil {
		return a.(*appidentity.TenantAccess), args.Error(1)
	}
	return nil, args.Error(1)
}

type apiFixture struct {
	api      *API
	sessions *session.Manager
	signer   *auth.CookieSigner
	tenants  *mockResolver
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "flowdesk", Env: "test"},
		Session: config.SessionConfig{
			TTL:            time.Hour,
			RenewThreshold: time.Minute,
			CookieName:     "flowdesk_session",
			CookieSameSite: "lax",
		},
		HTTP: config.HTTPConfig{
			MaxBodySize:           1 << 20,
			RateLimitEnabled:      true,
			RateLimitRequests:     100,
			RateLimitWindow:       time.Minute,
			AuthRateLimitRequests: 1,
			AuthRateLimitWindow:   time.Minute,
		},
		Telemetry: config.TelemetryConfig{ServiceName: "flowdesk"},
	}
}

func newAPIFixture(t *testing.T, cfg *config.Config) *apiFixture {
	t.Helper()
	signer, err := auth.NewCookieSigner("0123456789abcdef0123456789abcdef", "flowdesk")
	require.NoError(t, err)
	cookie := middleware.NewSessionCookie(cfg.Session, signer)

	f := &apiFixture{
		sessions: session.NewManager(session.NewMemoryStore(), cfg.Session, zap.NewNop(), nil),
		signer:   signer,
		tenants:  new(mockResolver),
	}

	f.api, err = New(Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		Handlers: Handlers{
			System:   handler.NewSystemHandler("test", nil),
			Session:  handler.NewSessionHandler(nil, nil, cookie),
			Account:  handler.NewAccountHandler(nil),
			Billing:  handler.NewBillingHandler(nil),
			Tenant:   handler.NewTenantHandler(nil, nil),
			Role:     handler.NewRoleHandler(nil),
			Pipeline: handler.NewPipelineHandler(nil, nil),
			File:     handler.NewFileHandler(nil),
			Audit:    handler.NewAuditHandler(nil),
		},
		Sessions: f.sessions,
		Cookie:   cookie,
		Tenants:  f.tenants,
		Registry: telemetry.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(f.api.Close)
	return f
}

// login opens a session and returns the signed cookie value and CSRF token
func (f *apiFixture) login(t *testing.T, userID uuid.UUID) (string, string) {
	t.Helper()
	token, sess, err := f.sessions.Create(context.Background(), session.CreateInput{
		Scope: identity.SessionScope{
			UserID:    userID,
			AccountID: uuid.New(),
			TenantID:  uuid.New(),
			RoleID:    uuid.New(),
		},
	})
	require.NoError(t, err)
	value, err := f.signer.Sign(token, sess.ExpiresAt)
	require.NoError(t, err)
	return value, sess.CSRFToken
}

func (f *apiFixture) do(method, path, cookie, csrf, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "flowdesk_session", Value: cookie})
	}
	if csrf != "" {
		req.Header.Set(middleware.CSRFHeader, csrf)
	}
	w := httptest.NewRecorder()
	f.api.Engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	return resp.Code
}

func TestNew_PublicEndpoints(t *testing.T) {
	f := newAPIFixture(t, testConfig())

	t.Run("health", func(t *testing.T) {
		w := f.do(http.MethodGet, "/health", "", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("system info", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/system/info", "", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Flowdesk API")
	})

	t.Run("metrics", func(t *testing.T) {
		w := f.do(http.MethodGet, "/metrics", "", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "go_goroutines")
	})

	t.Run("unknown route uses the error envelope", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/nope", "", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
	})

	t.Run("swagger is not mounted when disabled", func(t *testing.T) {
		w := f.do(http.MethodGet, "/swagger/index.html", "", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stripe webhook needs no session", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/webhooks/stripe", "", "", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeWebhookSignature, errorCode(t, w))
	})
}

func TestNew_StripeWebhookBypassesGlobalLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimitRequests = 2
	f := newAPIFixture(t, cfg)

	for i := 0; i < 5; i++ {
		w := f.do(http.MethodPost, stripeWebhookPath, "", "", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, "delivery %d", i)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	for i := 0; i < 2; i++ {
		w := f.do(http.MethodGet, "/api/system/info", "", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(http.MethodGet, "/api/system/info", "", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestNew_SessionRoutes(t *testing.T) {
	f := newAPIFixture(t, testConfig())

	t.Run("current session requires a cookie", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/session", "", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))
	})

	t.Run("unsafe methods require the CSRF header", func(t *testing.T) {
		cookie, _ := f.login(t, uuid.New())
		w := f.do(http.MethodPut, "/api/session/tenant", cookie, "", `{}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeCSRF, errorCode(t, w))
	})

	t.Run("auth endpoints have their own limit", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/session/login", "", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(http.MethodPost, "/api/session/login", "", "", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))
	})
}

func TestNew_TenantRoutes(t *testing.T) {
	f := newAPIFixture(t, testConfig())
	userID := uuid.New()
	tenantID := uuid.New()
	cookie, _ := f.login(t, userID)

	t.Run("non-member is forbidden", func(t *testing.T) {
		other := uuid.New()
		f.tenants.On("Access", mock.Anything, other, userID).Return(nil, shared.ErrForbidden).Once()

		w := f.do(http.MethodGet, "/api/tenant/"+other.String()+"/pipelines", cookie, "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("role without permission is forbidden", func(t *testing.T) {
		tenant := &identity.Tenant{Name: "Acme"}
		tenant.ID = tenantID
		access := &appidentity.TenantAccess{
			Tenant:     tenant,
			Membership: &identity.Membership{},
			Role:       &identity.Role{Name: "viewer", Allowed: []string{string(identity.PermTenantRead)}},
		}
		f.tenants.On("Access", mock.Anything, tenantID, userID).Return(access, nil).Once()

		w := f.do(http.MethodGet, "/api/tenant/"+tenantID.String()+"/audit-logs", cookie, "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
	})

	t.Run("malformed tenant id is not found", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/tenant/not-a-uuid/roles", cookie, "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	f.tenants.AssertExpectations(t)
}
