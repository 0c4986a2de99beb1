package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/salescoach-team/coaching-engine/pkg/validator"

	"github.com/salescoach-team/coaching-engine/internal/adapter/handler"
	"github.com/salescoach-team/coaching-engine/internal/adapter/repository"
	"github.com/salescoach-team/coaching-engine/internal/infrastructure/cache"
	"github.com/salescoach-team/coaching-engine/internal/infrastructure/database"
	"github.com/salescoach-team/coaching-engine/internal/infrastructure/ticket"
	"github.com/salescoach-team/coaching-engine/internal/usecase/pattern"
	"github.com/salescoach-team/coaching-engine/internal/usecase/sentiment"
	"github.com/salescoach-team/coaching-engine/internal/usecase/session"
	"github.com/salescoach-team/coaching-engine/internal/usecase/suggestion"
	"github.com/salescoach-team/coaching-engine/internal/usecase/talktime"
	pkgai "github.com/salescoach-team/coaching-engine/pkg/ai"
	"github.com/salescoach-team/coaching-engine/pkg/config"
	"github.com/salescoach-team/coaching-engine/pkg/jwt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database (durable event log)
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	bufferRepo := repository.NewContextBufferRepository(redisClient, cfg.Coach.BufferMaxChunks, cfg.Coach.BufferTTL)
	talkTimeRepo := repository.NewTalkTimeRepository(redisClient, cfg.Coach.TalkTimeTTL)
	configRepo := repository.NewConfigRepository(redisClient, cfg.Coach.ConfigTTL)
	snapshotRepo := repository.NewSessionSnapshotRepository(redisClient, cfg.Coach.SnapshotRetention)
	eventLogRepo := repository.NewEventLogRepository(db)

	// Initialize AI completion client
	log.Println("🤖 Initializing AI completion client...")
	completionClient := pkgai.NewCompletionClient(&cfg.AI)

	// Initialize analysis services
	log.Println("📊 Initializing analysis services...")
	accumulator := talktime.NewAccumulator(talkTimeRepo, talktime.NewHeuristicRoleInferrer(), logger)
	detector := pattern.NewDetector(cfg.Coach.InterruptionGap, cfg.Coach.RapidExchangeGap)
	sampler := sentiment.NewSampler(completionClient, cfg.Coach.SentimentSampleInterval, logger)
	generator := suggestion.NewGenerator(completionClient, cfg.Coach.MinContextChunks, cfg.Coach.ConfidenceGate, logger)

	// Initialize session manager
	log.Println("🎧 Initializing session manager...")
	sessionManager := session.NewManager(
		bufferRepo,
		configRepo,
		snapshotRepo,
		eventLogRepo,
		accumulator,
		detector,
		sampler,
		generator,
		logger,
	)

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	// Initialize one-time ticket manager for websocket handshakes
	log.Println("🎫 Initializing ticket manager...")
	ticketManager := ticket.NewManager(cache.NewMemoryStore())

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	coachHandler := handler.NewCoach(sessionManager, ticketManager, jwtManager, configRepo, snapshotRepo, logger)
	liveHandler := handler.NewLive(
		sessionManager,
		ticketManager,
		jwtManager,
		cfg.Server.AllowedOrigins,
		cfg.Coach.KeepAliveInterval,
		cfg.Coach.KeepAliveMisses,
		logger,
	)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, coachHandler, liveHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Drain live coaching sessions before stopping the listener so clients
	// get session_ended and snapshots are flushed.
	sessionManager.CloseAll(ctx, "server_shutdown")

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
