package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/agents"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/api/handlers"
	rediscache "github.com/validis-group-holdings/validis-agent-psc-sub000/internal/cache/redis"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	catalogsqlite "github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog/sqlite"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/coordinator"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/metrics"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/middleware/ratelimit"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/middleware/security"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/middleware/validation"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/optimizer"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/router"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/session"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/config"
	appLogger "github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Validis Agent API Server")

	metrics.Init()

	cat, closeCatalog, err := buildCatalog(cfg)
	if err != nil {
		appLogger.Fatal("Failed to build template catalog", zap.Error(err))
	}
	if closeCatalog != nil {
		defer closeCatalog()
	}

	domainAgents := []coordinator.DomainAgent{
		agents.NewAuditAgent(cat),
		agents.NewLendingAgent(cat),
	}

	var intentRouter coordinator.Router
	if cfg.Router.Mode == "openai" && cfg.Router.APIKey != "" {
		intentRouter = router.NewOpenAIRouter(cfg.Router.APIKey, cfg.Router.Model, cfg.Router.Temperature, cfg.Router.TimeoutSec)
	} else {
		intentRouter = router.NewKeywordRouter()
		appLogger.Info("Using keyword intent router")
	}

	ruleOptimizer := optimizer.NewRuleOptimizer(cfg.Optimizer.MaxRowLimit)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)

	coordOpts := []coordinator.Option{}
	if cfg.Coordinator.CacheBackend == "redis" {
		cache, err := rediscache.New(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to connect response cache", zap.Error(err))
		}
		defer cache.Close()
		coordOpts = append(coordOpts, coordinator.WithCache(cache))
	}

	// Session continuity is optional; the service runs without it.
	sessionStore, err := session.NewStore(redisAddr, cfg.Redis.Password, cfg.Redis.DB, 0)
	if err != nil {
		appLogger.Warn("Session store unavailable, continuing without it", zap.Error(err))
	} else {
		defer sessionStore.Close()
		coordOpts = append(coordOpts, coordinator.WithSessionStore(sessionStore))
	}

	coord := coordinator.New(coordinator.Config{
		Timeout:        time.Duration(cfg.Coordinator.TimeoutMS) * time.Millisecond,
		MaxRetries:     cfg.Coordinator.MaxRetries,
		CacheTTL:       time.Duration(cfg.Coordinator.CacheTTLSec) * time.Second,
		HealthInterval: time.Duration(cfg.Coordinator.HealthCheckInterval) * time.Second,
		MaxRowLimit:    cfg.Optimizer.MaxRowLimit,
	}, intentRouter, domainAgents, ruleOptimizer, coordOpts...)

	coord.Initialize()
	defer coord.Shutdown()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Tenant-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	queryHandler := handlers.NewQueryHandler(coord)
	adminHandler := handlers.NewAdminHandler(coord)
	wsHandler := handlers.NewWebSocketHandler(coord)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)

	api.Get("/health", adminHandler.GetHealth)
	api.Get("/metrics", adminHandler.GetMetrics)
	api.Get("/flows", adminHandler.GetActiveFlows)
	api.Delete("/cache", adminHandler.ClearCache)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/query", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// buildCatalog returns the configured template provider. The sqlite backend
// is seeded from the static catalog on first start.
func buildCatalog(cfg *config.Config) (catalog.Provider, func() error, error) {
	static := catalog.NewStatic()

	if cfg.Catalog.Backend != "sqlite" {
		return static, nil, nil
	}

	store, err := catalogsqlite.NewStore(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := store.Seed(static, catalog.DomainAudit, catalog.DomainLending); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}
