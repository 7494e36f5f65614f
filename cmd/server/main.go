package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	analyticsapp "github.com/pharmapos/backend/internal/application/analytics"
	catalogapp "github.com/pharmapos/backend/internal/application/catalog"
	identityapp "github.com/pharmapos/backend/internal/application/identity"
	notificationapp "github.com/pharmapos/backend/internal/application/notification"
	partnerapp "github.com/pharmapos/backend/internal/application/partner"
	salesapp "github.com/pharmapos/backend/internal/application/sales"
	"github.com/pharmapos/backend/internal/infrastructure/auth"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"github.com/pharmapos/backend/internal/infrastructure/config"
	"github.com/pharmapos/backend/internal/infrastructure/event"
	"github.com/pharmapos/backend/internal/infrastructure/logger"
	"github.com/pharmapos/backend/internal/infrastructure/persistence"
	"github.com/pharmapos/backend/internal/infrastructure/printing"
	"github.com/pharmapos/backend/internal/infrastructure/realtime"
	"github.com/pharmapos/backend/internal/infrastructure/scheduler"
	"github.com/pharmapos/backend/internal/infrastructure/storage"
	"github.com/pharmapos/backend/internal/infrastructure/telemetry"
	"github.com/pharmapos/backend/internal/interfaces/http/handler"
	"github.com/pharmapos/backend/internal/interfaces/http/middleware"
	"github.com/pharmapos/backend/internal/interfaces/http/router"

	_ "github.com/pharmapos/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			PharmaPOS API
//	@version		1.0
//	@description	Point of sale, inventory and analytics backend for a single pharmacy
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/pharmapos/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	log := logger.New(logCfg)

	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
	}

	// Logs go to the collector as well as stdout when export is on
	var logProvider *telemetry.LoggerProvider
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogExportEnabled {
		logProvider, err = telemetry.NewLoggerProvider(ctx, telCfg, log)
		if err != nil {
			log.Fatal("Failed to initialize log exporter", zap.Error(err))
		}
		log = logger.New(logCfg, logProvider.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting PharmaPOS",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)
	loc := cfg.App.Location()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	meter := meterProvider.Meter("github.com/pharmapos/backend")

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		AuthToken:       cfg.Profiling.AuthToken,
		SampleRate:      cfg.Profiling.SampleRate,
	}, log)
	if err != nil {
		log.Warn("Continuing without continuous profiling", zap.Error(err))
	}
	if profiler != nil && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(!cfg.App.IsProduction()),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.InstrumentDB(db.DB, meter, telemetry.DBConfig{
		TraceEnabled:    cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Warn("Database instrumentation disabled", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	log.Info("Database connected")

	// Redis is optional; without it cache, blacklist and fan-out stay in process
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		redisClient = client
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)

	metrics, err := telemetry.NewPharmacyMetrics(telemetry.PharmacyMetricsConfig{
		Meter:           meter,
		Logger:          log,
		StockProvider:   telemetry.NewGormStockSnapshotProvider(db.DB),
		CollectInterval: cfg.Telemetry.MetricsInterval,
		ExpiryWarnDays:  cfg.Inventory.ExpiryWarnDays,
	})
	if err != nil {
		log.Fatal("Failed to register pharmacy metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log, event.WithObserver(metrics))

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient, cfg.Cache.KeyPrefix+"auth:")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Query cache for analytics views
	cacheBackend, err := cache.NewBackend(cfg.Cache, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	queryCache := cache.NewQueryCache(cacheBackend.Store, cache.QueryCacheConfig{
		Namespace:  "analytics:",
		DefaultTTL: cfg.Cache.DefaultTTL,
		StaleTime:  cfg.Cache.StaleTime,
	}, metrics, log)
	log.Info("Cache ready", zap.String("backend", cacheBackend.Kind))

	// Realtime fan-out
	hub := realtime.NewHub(realtime.HubConfig{
		Heartbeat:  cfg.Notification.HeartbeatInterval,
		MaxClients: cfg.Notification.MaxStreamClients,
	}, log)
	var broadcaster telemetry.NotificationBroadcaster = realtime.NewLocalBroadcaster(hub)
	if redisClient != nil {
		redisBroadcaster := realtime.NewRedisBroadcaster(redisClient, hub, cfg.Notification.Channel, log)
		go redisBroadcaster.Run(ctx)
		broadcaster = redisBroadcaster
	}

	// Application services
	productService := catalogapp.NewProductService(
		productRepo, categoryRepo, movementRepo,
		persistence.NewGormCatalogTransactionScope(db.DB),
		eventBus,
		catalogapp.ProductServiceConfig{
			ExpiryWarnDays:      cfg.Inventory.ExpiryWarnDays,
			DefaultReorderLevel: cfg.Inventory.DefaultReorderLevel,
			MaxImageBytes:       cfg.Storage.MaxImageBytes,
			ImageURLExpiry:      cfg.Storage.PresignExpiry,
			Location:            loc,
		},
		log,
	)
	if cfg.Storage.Enabled {
		images, err := storage.NewS3ImageStorage(cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		if err := images.EnsureBucket(ctx); err != nil {
			log.Warn("Image bucket is not reachable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		productService.SetImageStorage(images)
	}
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo)

	saleService := salesapp.NewSaleService(
		saleRepo, contactRepo,
		persistence.NewGormSalesTransactionScope(db.DB),
		eventBus,
		salesapp.SaleServiceConfig{
			TaxRate:       cfg.Sales.TaxRate,
			Currency:      cfg.Sales.Currency,
			VoidWindow:    cfg.Sales.VoidWindow,
			ReceiptPrefix: cfg.Sales.ReceiptPrefix,
			Store: salesapp.StoreInfo{
				Name:    cfg.Sales.StoreName,
				Address: cfg.Sales.StoreAddress,
				Phone:   cfg.Sales.StorePhone,
			},
			Location: loc,
		},
		log,
	)
	var pdf printing.PDFRenderer
	if cfg.Printing.Enabled {
		chrome, err := printing.NewChromedpRenderer(printing.ChromedpConfig{
			RemoteURL: cfg.Printing.ChromeRemoteURL,
			Timeout:   cfg.Printing.Timeout,
			NoSandbox: true,
		}, log)
		if err != nil {
			log.Warn("PDF receipts disabled", zap.Error(err))
		} else {
			pdf = chrome
		}
	}
	receipts, err := printing.NewReceiptRenderer(pdf, printing.ReceiptConfig{
		PaperWidthMM: cfg.Printing.PaperWidthMM,
		Timeout:      cfg.Printing.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to parse receipt template", zap.Error(err))
	}
	saleService.SetReceiptRenderer(receipts)

	contactService := partnerapp.NewContactService(contactRepo, saleRepo, log)

	authService := identityapp.NewAuthService(userRepo, roleRepo, jwtService, blacklist, identityapp.AuthServiceConfig{
		MaxLoginAttempts: cfg.JWT.MaxLoginAttempts,
		LockDuration:     cfg.JWT.LockDuration,
	}, log)
	userService := identityapp.NewUserService(userRepo, roleRepo, eventBus, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	roleService := identityapp.NewRoleService(roleRepo, userRepo, eventBus, log)

	seeder := identityapp.NewSeeder(roleRepo, userRepo, log)
	if _, err := seeder.SeedSystemRoles(ctx); err != nil {
		log.Fatal("Failed to seed system roles", zap.Error(err))
	}
	if email := os.Getenv(config.EnvPrefix + "_ADMIN_EMAIL"); email != "" {
		if _, err := seeder.SeedAdmin(ctx, identityapp.AdminSeed{
			Email:    email,
			Password: os.Getenv(config.EnvPrefix + "_ADMIN_PASSWORD"),
			FullName: "Administrator",
		}); err != nil {
			log.Warn("Administrator was not seeded", zap.Error(err))
		}
	}

	notificationService := notificationapp.NewNotificationService(notificationRepo, metrics.WrapBroadcaster(broadcaster), notificationapp.ServiceConfig{
		PollIntervalSeconds: cfg.Notification.PollIntervalSeconds(),
		DedupWindow:         cfg.Notification.DedupWindow,
		Retention:           cfg.Notification.Retention,
	}, log)
	alertHandler := notificationapp.NewAlertHandler(notificationService, productRepo, notificationapp.AlertConfig{
		LargeSaleThreshold: cfg.Sales.LargeSaleThreshold,
		ExpiryWarnDays:     cfg.Inventory.ExpiryWarnDays,
		Currency:           cfg.Sales.Currency,
		Location:           loc,
	}, log)

	analyticsCfg := analyticsapp.Config{
		Location:       loc,
		ExpiryWarnDays: cfg.Inventory.ExpiryWarnDays,
		ViewTTLs:       cfg.Cache.ViewTTLs,
	}
	dashboardService := analyticsapp.NewDashboardService(saleRepo, productRepo, queryCache, analyticsCfg, log)
	financialService := analyticsapp.NewFinancialService(saleRepo, categoryRepo, queryCache, analyticsCfg, log)
	invalidator := analyticsapp.NewCacheInvalidator(queryCache, log)
	prefetcher := analyticsapp.NewPrefetcher(dashboardService, financialService, log)

	// Event subscriptions run after the publishing transaction commits
	eventBus.Subscribe(alertHandler, alertHandler.EventTypes()...)
	eventBus.Subscribe(invalidator, invalidator.EventTypes()...)
	eventBus.Subscribe(metrics, metrics.EventTypes()...)

	// Background jobs
	jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Workers:       cfg.Scheduler.Workers,
		QueueSize:     cfg.Scheduler.QueueSize,
		JobTimeout:    cfg.Scheduler.JobTimeout,
		RetryAttempts: cfg.Scheduler.RetryAttempts,
		RetryDelay:    cfg.Scheduler.RetryDelay,
	}, metrics, log)
	jobs.Register("dashboard.prefetch", prefetcher.WarmDashboard)
	jobs.Register("finance.prefetch", prefetcher.WarmFinancial)
	jobs.Register("inventory.expiry_scan", func(ctx context.Context) error {
		_, err := alertHandler.ScanExpiry(ctx)
		return err
	})
	jobs.Register("notification.retention", func(ctx context.Context) error {
		_, err := notificationService.PurgeExpired(ctx)
		return err
	})
	cron := scheduler.NewCronTrigger(jobs, loc, log)
	for _, entry := range []scheduler.Entry{
		{Task: "dashboard.prefetch", Spec: cfg.Scheduler.DashboardSpec},
		{Task: "finance.prefetch", Spec: cfg.Scheduler.FinancialSpec},
		{Task: "inventory.expiry_scan", Spec: cfg.Scheduler.ExpiryScanSpec},
		{Task: "notification.retention", Spec: cfg.Scheduler.RetentionSpec},
	} {
		if err := cron.Add(entry); err != nil {
			log.Fatal("Invalid schedule", zap.String("task", entry.Task), zap.Error(err))
		}
	}

	// Start background components
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	hub.Start()
	cacheBackend.Start(ctx)
	metrics.Start(ctx)
	if cfg.Scheduler.Enabled {
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		if err := cron.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	probePaths := []string{"/health", "/ready", cfg.Metrics.Path}
	httpMetrics := middleware.NewHTTPMetrics(probePaths...)

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(cfg.App.IsProduction()),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   probePaths,
		}),
		middleware.SpanErrorMarker(),
	)
	if cfg.Metrics.Enabled {
		engine.Use(httpMetrics.Middleware())
		engine.GET(cfg.Metrics.Path, httpMetrics.Handler())
	}

	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:       jwtService,
		TokenBlacklist:   blacklist,
		SkipPaths:        []string{"/health", "/ready", cfg.Metrics.Path, "/api/v1/auth/login", "/api/v1/auth/refresh"},
		SkipPathPrefixes: []string{"/swagger"},
		QueryTokenPaths:  []string{"/api/v1/notifications/stream", "/api/v1/notifications/ws"},
		Logger:           log,
	})

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version,
		handler.WithHealthCheck("database", sqlDB.PingContext),
		handler.WithRealtimeClients(hub.ClientCount),
	)
	if redisClient != nil {
		handler.WithHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})(systemHandler)
	}
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.Swagger, jwtMiddleware),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	// API routes: authenticate, then throttle per user, then check permissions per route
	stopCleanup := make(chan struct{})
	apiMiddleware := []gin.HandlerFunc{
		jwtMiddleware,
		middleware.TracingAttributeInjector(),
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RPS:     cfg.HTTP.RateLimitRPS,
			Burst:   cfg.HTTP.RateLimitBurst,
			IdleTTL: 10 * time.Minute,
			Logger:  log,
		})
		limiter.StartCleanup(time.Minute, stopCleanup)
		apiMiddleware = append(apiMiddleware, limiter.Middleware())
	}
	apiMiddleware = append(apiMiddleware, middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled: profiler != nil && profiler.IsEnabled(),
	}))

	authLimiter := middleware.NewAuthRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow, log)
	authLimiter.StartCleanup(time.Minute, stopCleanup)
	permissions := middleware.NewPermissionChecker(log)

	r := router.NewRouter(engine, router.WithAPIVersion("v1")).Use(apiMiddleware...)
	r.RegisterGroups(router.APIGroups(router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Product:  handler.NewProductHandler(productService),
		Category: handler.NewCategoryHandler(categoryService),
		Sale:     handler.NewSaleHandler(saleService, authService),
		Contact:  handler.NewContactHandler(contactService),
		Notification: handler.NewNotificationHandler(notificationService, hub, handler.NotificationHandlerConfig{
			AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
		}, log),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Finance:   handler.NewFinanceHandler(financialService),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(roleService),
		System:    systemHandler,
	}, permissions.Require, authLimiter.Middleware())...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop producers first, then drain, then release connections
	if cfg.Scheduler.Enabled {
		if err := cron.Stop(shutdownCtx); err != nil {
			log.Warn("Cron trigger did not stop cleanly", zap.Error(err))
		}
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not drain", zap.Error(err))
		}
	}
	close(stopCleanup)
	hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	metrics.Stop()
	if err := receipts.Close(); err != nil {
		log.Warn("Failed to close receipt renderer", zap.Error(err))
	}
	if err := cacheBackend.Close(); err != nil {
		log.Warn("Failed to close cache", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if logProvider != nil {
		_ = logProvider.Shutdown(shutdownCtx)
	}
}
