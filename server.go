package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/classifier"
	"github.com/mmdatafocus/disaster_backend/config"
	"github.com/mmdatafocus/disaster_backend/handlers"
	"github.com/mmdatafocus/disaster_backend/middlewares"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/notify"
	"github.com/mmdatafocus/disaster_backend/summarizer"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/mmdatafocus/disaster_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	allowedOrigins := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
	production := strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")

	// Collaborators that need no database are built up front so their routes exist.
	runner := workflow.NewAsyncRunner(logger, time.Minute)
	mailer := notify.NewMailerFromEnv(logger)
	hubOrigins := allowedOrigins
	if !production {
		hubOrigins = nil
	}
	hub := notify.NewHub(hubOrigins, logger)
	images := utils.NewGCSStore()

	var dispatcher *workflow.OutboxDispatcher
	api := &handlers.Handler{
		Files:      images,
		Mailer:     mailer,
		Summarizer: summarizer.NewFromEnv(logger),
		Sockets:    hub.ServeWS,
		Tasks:      runner,
		Logger:     logger,
	}
	if config.ReportEventsEnabled() {
		dispatcher = workflow.NewOutboxDispatcher(nil, logger)
		api.Outbox = dispatcher
	}

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, every endpoint except /healthz returns 503.
	var ready atomic.Bool
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.ReadinessMiddleware(ready.Load))

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	if production {
		corsConfig.AllowOrigins = allowedOrigins
		if len(allowedOrigins) == 0 {
			// deny all if not configured
			corsConfig.AllowOrigins = []string{}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", handlers.IdempotencyHeader, middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationHeader)
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	var limiterClient *redis.Client
	if config.RateLimitEnabled() {
		limiterClient = redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		r.Use(middlewares.NewRateLimiter(limiterClient, limit, window).Middleware())
	}

	userStore := models.NewUserStore(nil)
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware(userStore))
	r.Use(middlewares.ErrorLogger(logger))
	r.Use(gin.Recovery())
	api.RegisterRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry(sigCtx)

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can block tables; run it as a separate job with SKIP_MIGRATIONS=true.
	if !config.SkipMigrations() {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	userStore.DB = db
	reportStore := models.NewReportStore(db, config.ReportEventsEnabled())
	engine := workflow.NewEngine(reportStore, userStore, mailer, runner, logger)
	ingestion := &workflow.Ingestion{
		Classifier:  classifier.NewClientFromEnv(),
		Detector:    workflow.NewDuplicateDetector(reportStore, config.DedupWindow(), config.DedupMinLocationLength()),
		Store:       reportStore,
		Images:      images,
		Users:       userStore,
		Broadcaster: notify.Fanout{mailer, hub},
		Tasks:       runner,
		Ledger:      workflow.NewGormSubmissionLedger(db),
		Logger:      logger,
	}
	if config.DedupLockEnabled() {
		if lock := config.GetRedisLock(); lock != nil {
			ingestion.Locker = workflow.NewRedisLocker(lock)
		}
	}
	api.Users = userStore
	api.Reports = reportStore
	api.Engine = engine
	api.Ingestion = ingestion
	api.Contacts = models.NewContactStore(db)

	// Publishes report events AFTER commit.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if dispatcher != nil {
		if err := config.EnsureReportEventsTopic(sigCtx); err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("report events topic unavailable: " + err.Error())
		}
		dispatcher.DB = db
		go dispatcher.Run(dispatcherCtx)
	}

	maintenance := workflow.NewMaintenance(db, logger)
	if err := maintenance.Start(); err != nil {
		logger.WithFields(logrus.Fields{"field": "maintenance"}).Error("maintenance schedule rejected: " + err.Error())
	}

	ready.Store(true)
	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	if err := runner.Wait(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "tasks"}).Warn("background tasks still running at shutdown: " + err.Error())
	}
	maintenance.Stop(shutdownCtx)

	// best-effort
	_ = config.CloseRedis()
	_ = config.ClosePubSub()
	_ = images.Close()
	if limiterClient != nil {
		_ = limiterClient.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
