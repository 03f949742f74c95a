package router

import (
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/infrastructure/telemetry"
	"github.com/flowdesk/backend/internal/interfaces/http/handler"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by New
type Handlers struct {
	System   *handler.SystemHandler
	Session  *handler.SessionHandler
	Account  *handler.AccountHandler
	Billing  *handler.BillingHandler
	Tenant   *handler.TenantHandler
	Role     *handler.RoleHandler
	Pipeline *handler.PipelineHandler
	File     *handler.FileHandler
	Audit    *handler.AuditHandler
}

// Dependencies is everything New needs to build the engine. Meter and
// Registry are optional.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Handlers Handlers
	Sessions middleware.SessionValidator
	Cookie   *middleware.SessionCookie
	Tenants  middleware.TenantResolver
	Meter    metric.Meter
	Registry *prometheus.Registry
}

// API is the configured gin engine plus the background state of its
// middleware
type API struct {
	Engine *gin.Engine

	limiters []*middleware.RateLimiter
}

// Close stops the rate limiter cleanup goroutines
func (a *API) Close() {
	for _, l := range a.limiters {
		l.Stop()
	}
}

// New builds the engine with the global middleware chain and every route
func New(deps Dependencies) (*API, error) {
	cfg := deps.Config
	log := deps.Logger
	h := deps.Handlers

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	api := &API{Engine: engine}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(middleware.SpanEnricher())
	if deps.Meter != nil {
		engine.Use(middleware.HTTPMetrics(deps.Meter, telemetry.HTTPDurationBuckets))
	}
	engine.Use(middleware.Profiling(cfg.Telemetry.ProfilingEnabled))
	engine.Use(logger.GinMiddleware(log))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		api.limiters = append(api.limiters, limiter)
		// Stripe deliveries are signed and exempt
		engine.Use(middleware.RateLimit(limiter, stripeWebhookPath))
	}

	engine.NoRoute(func(c *gin.Context) {
		h.System.NotFound(c, "Route not found")
	})

	engine.GET("/health", h.System.Health)
	if deps.Registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.Swagger.Enabled && !cfg.App.IsProduction() {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.Swagger.AllowedIPs),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	authed := []gin.HandlerFunc{
		middleware.SessionAuth(middleware.SessionAuthConfig{
			Sessions: deps.Sessions,
			Cookie:   deps.Cookie,
			Logger:   log,
		}),
		middleware.CSRF(),
	}

	var authLimit []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		api.limiters = append(api.limiters, limiter)
		authLimit = append(authLimit, middleware.RateLimit(limiter))
	}

	r := NewRouter(engine)
	r.Register(systemRoutes(h))
	r.Register(sessionRoutes(h, authed, authLimit))
	r.Register(accountRoutes(h, authed))
	r.Register(tenantRoutes(h, authed, deps.Tenants, log))
	r.Register(webhookRoutes(h))
	r.Setup()

	return api, nil
}

func systemRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo)
}

func sessionRoutes(h Handlers, authed, authLimit []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("session", "/session")

	public := g.Group("session-public", "").Use(authLimit...)
	public.POST("/signup", h.Session.Signup)
	public.POST("/login", h.Session.Login)
	public.POST("/password/forgot", h.Session.ForgotPassword)
	public.POST("/password/reset", h.Session.ResetPassword)

	current := g.Group("session-current", "").Use(authed...)
	current.GET("", h.Session.Current)
	current.DELETE("", h.Session.Logout)
	current.PUT("/tenant", h.Session.SwitchTenant)
	current.PUT("/account", h.Session.SwitchAccount)
	current.GET("/list", h.Session.ListSessions)
	current.DELETE("/list/:sessionId", h.Session.RevokeSession)
	current.PUT("/profile", h.Session.UpdateProfile)
	current.PUT("/password", h.Session.ChangePassword)

	return g
}

func accountRoutes(h Handlers, authed []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("account", "/account").Use(authed...)
	g.GET("", h.Account.List)

	account := g.Group("account-item", "/:accountId")
	account.GET("", h.Account.Get)
	account.PUT("", h.Account.Update)
	account.GET("/tenants", h.Account.ListTenants)
	account.POST("/tenants", h.Account.CreateTenant)

	billing := account.Group("billing", "/billing")
	billing.GET("", h.Billing.Get)
	billing.POST("/subscription", h.Billing.Subscribe)
	billing.DELETE("/subscription", h.Billing.Cancel)
	billing.GET("/invoices", h.Billing.Invoices)

	return g
}

func tenantRoutes(h Handlers, authed []gin.HandlerFunc, tenants middleware.TenantResolver, log *zap.Logger) *DomainGroup {
	perm := func(p identity.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(p, log)
	}

	g := NewDomainGroup("tenant", "/tenant").Use(authed...)
	g.GET("", h.Tenant.List)

	tenant := g.Group("tenant-item", "/:tenantId").Use(middleware.TenantAccess(tenants, log))
	tenant.GET("", perm(identity.PermTenantRead), h.Tenant.Get)
	tenant.PUT("", perm(identity.PermTenantUpdate), h.Tenant.Update)
	tenant.DELETE("", perm(identity.PermTenantDelete), h.Tenant.Delete)

	members := tenant.Group("members", "/members")
	members.GET("", perm(identity.PermMemberRead), h.Tenant.ListMembers)
	members.POST("", perm(identity.PermMemberManage), h.Tenant.AddMember)
	members.PUT("/:membershipId", perm(identity.PermMemberManage), h.Tenant.ChangeMemberRole)
	members.DELETE("/:membershipId", perm(identity.PermMemberManage), h.Tenant.RemoveMember)

	roles := tenant.Group("roles", "/roles")
	roles.GET("", perm(identity.PermRoleRead), h.Role.List)
	roles.GET("/:roleId", perm(identity.PermRoleRead), h.Role.Get)
	roles.POST("", perm(identity.PermRoleManage), h.Role.Create)
	roles.PUT("/:roleId", perm(identity.PermRoleManage), h.Role.Update)
	roles.DELETE("/:roleId", perm(identity.PermRoleManage), h.Role.Delete)

	templates := tenant.Group("pipeline-templates", "/pipeline-templates")
	templates.GET("", perm(identity.PermTemplateRead), h.Pipeline.ListTemplates)
	templates.GET("/:templateId", perm(identity.PermTemplateRead), h.Pipeline.GetTemplate)
	templates.POST("", perm(identity.PermTemplateWrite), h.Pipeline.CreateTemplate)
	templates.PUT("/:templateId", perm(identity.PermTemplateWrite), h.Pipeline.UpdateTemplate)
	templates.DELETE("/:templateId", perm(identity.PermTemplateWrite), h.Pipeline.DeleteTemplate)
	templates.POST("/:templateId/steps", perm(identity.PermTemplateWrite), h.Pipeline.AddStep)
	templates.PUT("/:templateId/steps/:stepId", perm(identity.PermTemplateWrite), h.Pipeline.UpdateStep)
	templates.DELETE("/:templateId/steps/:stepId", perm(identity.PermTemplateWrite), h.Pipeline.DeleteStep)
	templates.POST("/:templateId/steps/:stepId/items", perm(identity.PermTemplateWrite), h.Pipeline.AddItem)
	templates.PUT("/:templateId/items/:itemId", perm(identity.PermTemplateWrite), h.Pipeline.UpdateItem)
	templates.DELETE("/:templateId/items/:itemId", perm(identity.PermTemplateWrite), h.Pipeline.DeleteItem)

	pipelines := tenant.Group("pipelines", "/pipelines")
	pipelines.GET("", perm(identity.PermPipelineRead), h.Pipeline.ListPipelines)
	pipelines.GET("/:pipelineId", perm(identity.PermPipelineRead), h.Pipeline.GetPipeline)
	pipelines.POST("", perm(identity.PermPipelineWrite), h.Pipeline.CreatePipeline)
	pipelines.PUT("/:pipelineId", perm(identity.PermPipelineWrite), h.Pipeline.UpdatePipeline)
	pipelines.POST("/:pipelineId/archive", perm(identity.PermPipelineWrite), h.Pipeline.ArchivePipeline)
	pipelines.DELETE("/:pipelineId", perm(identity.PermPipelineWrite), h.Pipeline.DeletePipeline)
	pipelines.PATCH("/:pipelineId/items/:itemId", perm(identity.PermPipelineWrite), h.Pipeline.UpdatePipelineItem)

	files := tenant.Group("files", "/files")
	files.POST("", perm(identity.PermFileWrite), h.File.Upload)
	files.GET("", perm(identity.PermFileRead), h.File.List)
	files.GET("/:fileId", perm(identity.PermFileRead), h.File.Get)
	files.GET("/:fileId/content", perm(identity.PermFileRead), h.File.Content)
	files.DELETE("/:fileId", perm(identity.PermFileWrite), h.File.Delete)

	tenant.GET("/audit-logs", perm(identity.PermAuditRead), h.Audit.List)

	return g
}

// stripeWebhookPath is where webhookRoutes mounts the Stripe endpoint
const stripeWebhookPath = "/api/webhooks/stripe"

func webhookRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("webhooks", "/webhooks").
		POST("/stripe", h.Billing.StripeWebhook)
}

