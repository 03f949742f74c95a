package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaudit "github.com/flowdesk/backend/internal/application/audit"
	appbilling "github.com/flowdesk/backend/internal/application/billing"
	appfile "github.com/flowdesk/backend/internal/application/file"
	appidentity "github.com/flowdesk/backend/internal/application/identity"
	apppipeline "github.com/flowdesk/backend/internal/application/pipeline"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/auth"
	"github.com/flowdesk/backend/internal/infrastructure/billing"
	"github.com/flowdesk/backend/internal/infrastructure/cache"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/event"
	"github.com/flowdesk/backend/internal/infrastructure/logger"
	"github.com/flowdesk/backend/internal/infrastructure/mail"
	"github.com/flowdesk/backend/internal/infrastructure/persistence"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/tenant"
	"github.com/flowdesk/backend/internal/infrastructure/scheduler"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/flowdesk/backend/internal/infrastructure/storage"
	"github.com/flowdesk/backend/internal/infrastructure/telemetry"
	"github.com/flowdesk/backend/internal/interfaces/http/handler"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/flowdesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/flowdesk/backend/docs"
)

//go:generate swag init -g cmd/server/main.go -d ../../ --v3.1

//	@title			Flowdesk API
//	@version		1.0
//	@description	Multi-tenant workspace backend: accounts, tenants, roles, pipelines, files and billing.

//	@BasePath	/api

//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						flowdesk_session
//	@description				Signed session cookie set by /session/login and /session/signup

//	@securityDefinitions.apikey	CSRFToken
//	@in							header
//	@name						X-CSRF-Token
//	@description				CSRF token of the session, required on unsafe methods

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	shutdownTimeout   = 30 * time.Second
	jobTimeout        = 10 * time.Minute
	resetTokenTTL     = time.Hour
	idempotencyPrefix = "flowdesk:stripe:event:"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.Logs.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting Flowdesk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == "sqlite" {
		// postgres schemas are managed by cmd/migrate
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	if err := tenant.Enable(db.DB); err != nil {
		log.Fatal("Failed to register tenant guard", zap.Error(err))
	}
	if cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Database.Driver, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Session.Store == "redis" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories
	repos := persistence.NewIdentityRepositories(db.DB)
	tx := persistence.NewGormTransactor(db.DB)
	templateRepo := persistence.NewGormTemplateRepository(db.DB)
	pipelineRepo := persistence.NewGormPipelineRepository(db.DB)
	fileRepo := persistence.NewGormFileRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Stores backed by Redis when configured, memory otherwise
	sessionStore, resetTokens, processed := newStores(redisClient, cfg.Session)
	sessions := session.NewManager(sessionStore, cfg.Session, log, session.NewMetrics(tel.Registry))

	blobs, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	mailer, err := mail.New(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	templates, err := mail.NewTemplates(cfg.App.Name, cfg.App.BaseURL)
	if err != nil {
		log.Fatal("Failed to load mail templates", zap.Error(err))
	}

	// Audit entries are written from domain events
	bus := event.NewInMemoryEventBus(log)
	recorder := appaudit.NewRecorder(auditRepo, log)
	bus.Subscribe(recorder, recorder.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	authService := appidentity.NewAuthService(tx, repos, sessions, mailer, templates, bus, appidentity.NewMetrics(tel.Registry), log)
	userService := appidentity.NewUserService(repos.Users, sessions, resetTokens, cfg.Session.ResetTokenTTL, mailer, templates, bus, log)
	accountService := appidentity.NewAccountService(tx, repos, bus, log)
	tenantService := appidentity.NewTenantService(repos, sessions, bus, log)
	memberService := appidentity.NewMemberService(repos, sessions, mailer, templates, bus, log)
	roleService := appidentity.NewRoleService(repos.Roles, repos.Memberships, bus, log)
	templateService := apppipeline.NewTemplateService(templateRepo, bus, log)
	pipelineService := apppipeline.NewService(pipelineRepo, templateRepo, bus, log)
	fileService := appfile.NewService(fileRepo, blobs, cfg.Storage.MaxUploadSize, bus, log)
	auditService := appaudit.NewService(auditRepo)

	billingCfg := appbilling.ServiceConfig{
		Accounts:  repos.Accounts,
		Invoices:  invoiceRepo,
		Processed: processed,
		Events:    bus,
		Metrics:   appbilling.NewMetrics(tel.Registry),
		Logger:    log,
	}
	if cfg.Stripe.SecretKey != "" {
		gateway, err := billing.NewStripeAdapter(cfg.Stripe, log)
		if err != nil {
			log.Fatal("Failed to configure Stripe", zap.Error(err))
		}
		billingCfg.Gateway = gateway
	} else {
		log.Warn("Stripe is not configured, billing endpoints are disabled")
	}
	billingService := appbilling.NewService(billingCfg)

	// Background jobs
	jobs := scheduler.NewScheduler(log, jobTimeout)
	if cfg.Retention.Enabled {
		retention := scheduler.NewRetentionJob(
			persistence.NewPurger(db.DB),
			fileRepo,
			blobs,
			auditRepo,
			cfg.Retention,
			tel.Registry,
			log,
		)
		if err := retention.Register(jobs); err != nil {
			log.Fatal("Failed to schedule retention job", zap.Error(err))
		}
	}
	jobs.Start()

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	signer, err := auth.NewCookieSigner(cfg.Session.CookieSecret, cfg.App.Name)
	if err != nil {
		log.Fatal("Failed to create cookie signer", zap.Error(err))
	}
	cookie := middleware.NewSessionCookie(cfg.Session, signer)

	checks := map[string]handler.Pinger{
		"database": db,
		"sessions": sessions,
	}

	api, err := router.New(router.Dependencies{
		Config: cfg,
		Logger: log,
		Handlers: router.Handlers{
			System:   handler.NewSystemHandler(version, checks),
			Session:  handler.NewSessionHandler(authService, userService, cookie),
			Account:  handler.NewAccountHandler(accountService),
			Billing:  handler.NewBillingHandler(billingService),
			Tenant:   handler.NewTenantHandler(tenantService, memberService),
			Role:     handler.NewRoleHandler(roleService),
			Pipeline: handler.NewPipelineHandler(templateService, pipelineService),
			File:     handler.NewFileHandler(fileService),
			Audit:    handler.NewAuditHandler(auditService),
		},
		Sessions: sessions,
		Cookie:   cookie,
		Tenants:  tenantService,
		Meter:    tel.Meter.Meter("github.com/flowdesk/backend/http"),
		Registry: tel.Registry,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        api.Engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	api.Close()
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newStores picks the session, reset token and webhook dedup stores. A nil
// client selects the in-memory implementations.
func newStores(client *redis.Client, cfg config.SessionConfig) (identity.SessionStore, identity.ResetTokenStore, shared.IdempotencyStore) {
	ttl := cfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = resetTokenTTL
	}
	if client == nil {
		return session.NewMemoryStore(), auth.NewInMemoryResetTokenStore(ttl), cache.NewInMemoryIdempotencyStore()
	}
	return session.NewRedisStore(client),
		auth.NewRedisResetTokenStore(client, ttl),
		cache.NewRedisIdempotencyStore(client, idempotencyPrefix)
}
