package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/ims/engine/internal/application/catalog"
	eventapp "github.com/ims/engine/internal/application/event"
	inventoryapp "github.com/ims/engine/internal/application/inventory"
	warehouseapp "github.com/ims/engine/internal/application/warehouse"
	"github.com/ims/engine/internal/infrastructure/auth"
	"github.com/ims/engine/internal/infrastructure/cache"
	"github.com/ims/engine/internal/infrastructure/config"
	"github.com/ims/engine/internal/infrastructure/event"
	"github.com/ims/engine/internal/infrastructure/lock"
	"github.com/ims/engine/internal/infrastructure/logger"
	"github.com/ims/engine/internal/infrastructure/notification"
	"github.com/ims/engine/internal/infrastructure/persistence"
	"github.com/ims/engine/internal/infrastructure/scheduler"
	"github.com/ims/engine/internal/infrastructure/telemetry"
	"github.com/ims/engine/internal/interfaces/http/handler"
	"github.com/ims/engine/internal/interfaces/http/middleware"
	"github.com/ims/engine/internal/interfaces/http/router"
)

//	@title			IMS Engine API
//	@version		1.0
//	@description	Multi-tenant inventory management core: stock ledger, reservations, dashboard metrics and real-time notifications

//	@contact.name	API Support
//	@contact.email	support@ims.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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

	log.Info("Starting IMS Engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: all providers are no-ops when disabled. Logs are teed to
	// the collector alongside the configured output.
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Warn("OTEL log export unavailable", zap.Error(err))
	} else if logsProvider.IsEnabled() {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := logsProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down logger provider", zap.Error(err))
			}
		}()
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logsProvider, cfg.Telemetry.ServiceName)
		if err != nil {
			log.Warn("Failed to bridge logger to OTEL, keeping local output only", zap.Error(err))
		} else {
			log = bridged
		}
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Continuous profiling; a warn-and-continue concern like Redis below.
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.PyroscopeAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
	}

	// Database
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	db.DB.Logger = logger.NewGormLogger(log, gormLogLevel)
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracingCfg := telemetry.DefaultDBTracingConfig()
		dbTracingCfg.Enabled = true
		dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		tracingPlugin := telemetry.NewDBTracingPlugin(dbTracingCfg, log)
		if err := db.DB.Use(tracingPlugin); err != nil {
			log.Warn("Failed to install database tracing plugin", zap.Error(err))
		}
	}

	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else if dbMetrics != nil {
			defer dbMetrics.Stop()
		}
	}

	// Redis backs the hot metrics cache, the command result store, and the
	// event dedup store. Without it all three fall back to in-process
	// implementations.
	var metricsCache inventoryapp.MetricsCache
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory caches", zap.Error(err))
		metricsCache = cache.NewInMemoryMetricsCache()
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		metricsCache = cache.NewRedisMetricsCache(redisClient)
		log.Info("Redis connected successfully")
	}

	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	resultStore, err := storeFactory.CreateCommandResultStore()
	if err != nil {
		log.Fatal("Failed to create command result store", zap.Error(err))
	}
	idempotencyStore, err := storeFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	itemRepo := persistence.NewGormInventoryItemRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	metricsReader := persistence.NewGormMetricsReader(db.DB)
	metricsCacheRepo := persistence.NewGormDashboardMetricsCacheRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Event plumbing: a serializer with every event type registered, the
	// outbox publisher recording events inside command transactions, and the
	// in-process bus delivering them after commit.
	eventSerializer := event.NewRegisteredSerializer()
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	eventBus := event.NewInMemoryEventBus(log)

	// Notification hub fans events out to websocket subscribers.
	hub := notification.NewHub(notification.HubConfig{
		QueueSize:        cfg.Notifications.QueueSize,
		SubscriberBuffer: cfg.Notifications.SubscriberBuffer,
		Workers:          cfg.Notifications.Workers,
		DashboardWindow:  cfg.Notifications.DashboardWindow,
	}, log)
	if err := hub.Start(ctx); err != nil {
		log.Fatal("Failed to start notification hub", zap.Error(err))
	}
	defer func() {
		if err := hub.Stop(context.Background()); err != nil {
			log.Error("Error stopping notification hub", zap.Error(err))
		}
	}()
	// The outbox processor replays entries at-least-once, so bus consumers
	// sit behind an event-ID dedup wrapper.
	eventBus.Subscribe(event.NewIdempotentHandler(hub, idempotencyStore, log))

	// Business metrics: counters driven by bus events, gauges collected
	// periodically from the projection table.
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:             meterProvider.Meter("business"),
			Logger:            log,
			InventoryProvider: telemetry.NewGormInventoryMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Business metrics unavailable", zap.Error(err))
		} else {
			eventBus.Subscribe(event.NewBusinessMetricsHandler(businessMetrics))
			businessMetrics.StartPeriodicCollection(ctx, telemetry.NewGormTenantProvider(db.DB), 0)
			defer businessMetrics.Stop()
		}
	}

	// NATS relay mirrors the bus onto external subjects when enabled.
	if cfg.NATS.Enabled {
		relay, err := event.NewNATSRelay(event.NATSRelayConfig{
			URL:           cfg.NATS.URL,
			ClientName:    cfg.App.Name,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			ConnectWait:   cfg.NATS.ConnectWait,
		}, eventSerializer, log)
		if err != nil {
			log.Warn("NATS unavailable, external event relay disabled", zap.Error(err))
		} else {
			eventBus.Subscribe(event.NewIdempotentHandler(relay, idempotencyStore, log))
			defer func() {
				if err := relay.Close(); err != nil {
					log.Error("Error closing NATS relay", zap.Error(err))
				}
			}()
			log.Info("NATS relay connected", zap.String("subject_prefix", cfg.NATS.SubjectPrefix))
		}
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor replays committed outbox entries onto the bus.
	if cfg.Event.ProcessorEnabled {
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
		)
	}

	// Background worker pool runs metrics refreshes and the cache janitor.
	var workerPool *scheduler.WorkerPool
	if cfg.Scheduler.Enabled {
		workerPool = scheduler.NewWorkerPool(scheduler.WorkerPoolConfig{
			Workers:     cfg.Scheduler.Workers,
			QueueSize:   cfg.Scheduler.QueueSize,
			TaskTimeout: cfg.Scheduler.TaskTimeout,
		}, log)
		if err := workerPool.Start(ctx); err != nil {
			log.Fatal("Failed to start worker pool", zap.Error(err))
		}
		defer func() {
			if err := workerPool.Stop(context.Background()); err != nil {
				log.Error("Error stopping worker pool", zap.Error(err))
			}
		}()

		janitor := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
			Name:     "metrics-cache-janitor",
			Interval: cfg.MetricsCache.JanitorPeriod,
		}, workerPool, func(ctx context.Context) {
			if _, err := metricsCacheRepo.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				log.Warn("Metrics cache cleanup failed", zap.Error(err))
			}
		}, log)
		if err := janitor.Start(ctx); err != nil {
			log.Fatal("Failed to start metrics cache janitor", zap.Error(err))
		}
		defer func() {
			if err := janitor.Stop(context.Background()); err != nil {
				log.Error("Error stopping metrics cache janitor", zap.Error(err))
			}
		}()
	}

	// Transaction scopes and per-item locks
	inventoryScope := persistence.NewGormTransactionScope(db.DB)
	catalogScope := persistence.NewGormCatalogTransactionScope(db.DB)
	warehouseScope := persistence.NewGormWarehouseTransactionScope(db.DB)
	itemLocks := lock.NewKeyedLocker()

	// Catalog services
	productService := catalogapp.NewProductService(productRepo, variantRepo, catalogScope, log)
	productService.SetEventPublisher(eventBus)
	productService.SetOutboxSaver(outboxPublisher)
	variantService := catalogapp.NewVariantService(variantRepo, catalogScope, log)
	variantService.SetEventPublisher(eventBus)
	variantService.SetOutboxSaver(outboxPublisher)

	// Warehouse registry
	warehouseService := warehouseapp.NewService(warehouseRepo, itemRepo, warehouseScope, log)
	warehouseService.SetEventPublisher(eventBus)
	warehouseService.SetOutboxSaver(outboxPublisher)

	// Dashboard metrics with the two-level cache
	metricsService := inventoryapp.NewMetricsService(metricsReader, metricsCacheRepo, log)
	metricsService.SetHotCache(metricsCache)
	metricsService.SetEventPublisher(eventBus)
	metricsService.SetCacheTTL(cfg.MetricsCache.HotTTL)
	metricsService.SetRefreshInterval(cfg.Scheduler.RefreshInterval)
	if workerPool != nil {
		metricsService.SetTaskRunner(workerPool)
	}
	if err := metricsService.Start(ctx); err != nil {
		log.Fatal("Failed to start metrics service", zap.Error(err))
	}
	defer func() {
		if err := metricsService.Stop(context.Background()); err != nil {
			log.Error("Error stopping metrics service", zap.Error(err))
		}
	}()

	// Alerts
	alertService := inventoryapp.NewAlertService(alertRepo, variantRepo, log)
	alertService.SetEventPublisher(eventBus)
	alertService.SetOutboxSaver(outboxPublisher)

	// Reservation expiry sweeper
	expirySweeper := inventoryapp.NewExpirySweeper(reservationRepo, itemRepo, inventoryScope, itemLocks, log)
	expirySweeper.SetEventPublisher(eventBus)
	expirySweeper.SetOutboxSaver(outboxPublisher)
	expirySweeper.SetAlertEvaluator(alertService)
	expirySweeper.SetMetricsInvalidator(metricsService)
	expirySweeper.SetInterval(cfg.Sweeper.Interval)
	expirySweeper.SetBatchSize(cfg.Sweeper.BatchSize)
	expirySweeper.SetWarnWindow(cfg.Sweeper.NearDeadline)
	if cfg.Sweeper.Enabled {
		if err := expirySweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start expiry sweeper", zap.Error(err))
		}
		defer func() {
			if err := expirySweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping expiry sweeper", zap.Error(err))
			}
		}()
		log.Info("Expiry sweeper started",
			zap.Duration("interval", cfg.Sweeper.Interval),
			zap.Int("batch_size", cfg.Sweeper.BatchSize),
		)
	}

	// Stock ledger
	stockService := inventoryapp.NewStockService(itemRepo, movementRepo, inventoryScope, itemLocks, log)
	stockService.SetEventPublisher(eventBus)
	stockService.SetOutboxSaver(outboxPublisher)
	stockService.SetAlertEvaluator(alertService)
	stockService.SetMetricsInvalidator(metricsService)
	stockService.SetResultStore(resultStore, 0)

	// Reservations
	reservationService := inventoryapp.NewReservationService(reservationRepo, itemRepo, inventoryScope, itemLocks, log)
	reservationService.SetEventPublisher(eventBus)
	reservationService.SetOutboxSaver(outboxPublisher)
	reservationService.SetAlertEvaluator(alertService)
	reservationService.SetMetricsInvalidator(metricsService)
	reservationService.SetExpiryWaker(expirySweeper)
	reservationService.SetResultStore(resultStore, 0)

	// Read side and outbox admin
	queryService := inventoryapp.NewQueryService(itemRepo, movementRepo, variantRepo)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	productHandler := handler.NewProductHandler(productService)
	variantHandler := handler.NewVariantHandler(variantService)
	warehouseHandler := handler.NewWarehouseHandler(warehouseService)
	stockHandler := handler.NewStockHandler(stockService, queryService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	alertHandler := handler.NewAlertHandler(alertService)
	streamHandler := handler.NewStreamHandler(hub, log)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	systemHandler := handler.NewSystemHandler()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}

	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT authentication guards the API when a secret is configured. Without
	// one (local development) requests fall back to the X-Tenant-ID header.
	// Revoked tokens are rejected through the Redis blacklist when available.
	if cfg.JWT.Secret != "" {
		var tokenBlacklist auth.TokenBlacklist
		if redisClient != nil {
			tokenBlacklist = auth.NewRedisTokenBlacklistWithClient(redisClient)
		}
		r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: tokenBlacklist,
			SkipPaths: []string{
				"/api/v1/ping",
				"/api/v1/system/ping",
				"/api/v1/system/info",
			},
			Logger: log,
		}))
	}

	// Tenant resolution runs after JWT so token claims win over the
	// X-Tenant-ID header; it also binds the tenant to the request logger.
	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.SkipPaths = []string{
		"/api/v1/ping",
		"/api/v1/system/ping",
		"/api/v1/system/info",
	}
	tenantCfg.Logger = log
	// Local development without a token falls back to the default tenant in
	// the handlers, so absence here is not fatal.
	tenantCfg.Required = cfg.JWT.Secret != ""
	r.Use(middleware.TenantMiddlewareWithConfig(tenantCfg))

	// Catalog domain (products, variants, units)
	catalogRoutes := router.NewDomainGroup("catalog", "/catalog")
	catalogRoutes.POST("/products", productHandler.Create)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/:id", productHandler.GetByID)
	catalogRoutes.PUT("/products/:id", productHandler.Update)
	catalogRoutes.PUT("/products/:id/status", productHandler.SetStatus)
	catalogRoutes.DELETE("/products/:id", productHandler.Delete)
	catalogRoutes.POST("/products/:id/restore", productHandler.Restore)
	catalogRoutes.GET("/products/:id/variants", variantHandler.ListByProduct)

	catalogRoutes.POST("/variants", variantHandler.Create)
	catalogRoutes.GET("/variants", variantHandler.List)
	catalogRoutes.GET("/variants/sku/:sku", variantHandler.GetBySKU)
	catalogRoutes.GET("/variants/:id", variantHandler.GetByID)
	catalogRoutes.PUT("/variants/:id/name", variantHandler.Rename)
	catalogRoutes.PUT("/variants/:id/low-stock-threshold", variantHandler.SetLowStockThreshold)
	catalogRoutes.POST("/variants/:id/conversions", variantHandler.AddConversion)
	catalogRoutes.POST("/variants/:id/conversions/remove", variantHandler.RemoveConversion)
	catalogRoutes.POST("/variants/:id/convert/to-base", variantHandler.ConvertToBase)
	catalogRoutes.POST("/variants/:id/convert/from-base", variantHandler.ConvertFromBase)
	catalogRoutes.DELETE("/variants/:id", variantHandler.Delete)
	catalogRoutes.POST("/variants/:id/restore", variantHandler.Restore)

	// Warehouse registry
	warehouseRoutes := router.NewDomainGroup("warehouses", "/warehouses")
	warehouseRoutes.POST("", warehouseHandler.Create)
	warehouseRoutes.GET("", warehouseHandler.List)
	warehouseRoutes.GET("/code/:code", warehouseHandler.GetByCode)
	warehouseRoutes.GET("/:id", warehouseHandler.GetByID)
	warehouseRoutes.PUT("/:id/name", warehouseHandler.Rename)
	warehouseRoutes.PUT("/:id/address", warehouseHandler.SetAddress)
	warehouseRoutes.PUT("/:id/status", warehouseHandler.SetStatus)
	warehouseRoutes.DELETE("/:id", warehouseHandler.Delete)
	warehouseRoutes.POST("/:id/restore", warehouseHandler.Restore)

	// Inventory domain: ledger writes, projection reads, reservations,
	// dashboard, alerts and the websocket stream
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/stock/opening-balance", stockHandler.OpeningBalance)
	inventoryRoutes.POST("/stock/purchases", stockHandler.Purchase)
	inventoryRoutes.POST("/stock/sales", stockHandler.Sale)
	inventoryRoutes.POST("/stock/refunds", stockHandler.Refund)
	inventoryRoutes.POST("/stock/adjustments", stockHandler.Adjustment)
	inventoryRoutes.POST("/stock/write-offs", stockHandler.WriteOff)
	inventoryRoutes.POST("/stock/transfers", stockHandler.Transfer)
	inventoryRoutes.GET("/stock/availability", stockHandler.CheckAvailability)
	inventoryRoutes.GET("/stock/low", stockHandler.LowStock)
	inventoryRoutes.GET("/stock/expiring", stockHandler.ExpiringStock)

	inventoryRoutes.GET("/items/:variant_id/:warehouse_id", stockHandler.GetItem)
	inventoryRoutes.GET("/items/:variant_id/:warehouse_id/movements", stockHandler.MovementHistory)
	inventoryRoutes.GET("/items/:variant_id/:warehouse_id/verify", stockHandler.VerifyLedger)
	inventoryRoutes.PUT("/items/:variant_id/:warehouse_id/negative-stock-policy", stockHandler.SetNegativeStockPolicy)
	inventoryRoutes.PUT("/items/:variant_id/:warehouse_id/expiry-date", stockHandler.SetExpiryDate)
	inventoryRoutes.GET("/warehouses/:id/items", stockHandler.ListByWarehouse)
	inventoryRoutes.GET("/variants/:id/items", stockHandler.ListByVariant)
	inventoryRoutes.GET("/movements/reference/:reference", stockHandler.MovementsByReference)

	inventoryRoutes.POST("/reservations", reservationHandler.Create)
	inventoryRoutes.GET("/reservations", reservationHandler.ListOpenByItem)
	inventoryRoutes.GET("/reservations/reference/:reference", reservationHandler.ListByReference)
	inventoryRoutes.GET("/reservations/:id", reservationHandler.GetByID)
	inventoryRoutes.PUT("/reservations/:id/quantity", reservationHandler.ModifyQuantity)
	inventoryRoutes.PUT("/reservations/:id/expiry", reservationHandler.Extend)
	inventoryRoutes.POST("/reservations/:id/fulfill", reservationHandler.Fulfill)
	inventoryRoutes.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	inventoryRoutes.GET("/dashboard", metricsHandler.GetDashboard)
	inventoryRoutes.GET("/dashboard/custom", metricsHandler.GetDashboardForPeriod)
	inventoryRoutes.POST("/dashboard/refresh", metricsHandler.Refresh)

	inventoryRoutes.GET("/alerts", alertHandler.ListOpen)
	inventoryRoutes.POST("/alerts/:id/acknowledge", alertHandler.Acknowledge)

	inventoryRoutes.GET("/stream", streamHandler.Stream)

	// System domain: health, info and outbox administration
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/outbox/dead", outboxHandler.GetDeadLetterEntries)
	systemRoutes.POST("/outbox/dead/retry-all", outboxHandler.RetryAllDeadEntries)
	systemRoutes.GET("/outbox/stats", outboxHandler.GetStats)
	systemRoutes.GET("/outbox/:id", outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/:id/retry", outboxHandler.RetryDeadEntry)

	r.Register(catalogRoutes).
		Register(warehouseRoutes).
		Register(inventoryRoutes).
		Register(systemRoutes)

	r.Setup()

	// Simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
